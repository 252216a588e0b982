package server

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"connectn/internal/game"
	"connectn/internal/store"
)

// gameToMap converts a Snapshot to the JSON shape of a game object
func gameToMap(s game.Snapshot) map[string]any {
	m := map[string]any{
		"game_id":           s.ID,
		"columns":           s.Config.Columns,
		"rows":              s.Config.Rows,
		"winning_count":     s.Config.WinningCount,
		"max_winning_count": s.MaxWinningCount,
		"player":            s.Player.String(),
		"starting_player":   s.StartingPlayer.String(),
		"toggle_enabled":    s.ToggleEnabled,
		"pieces":            piecesToList(s.Pieces),
		"winner":            s.Winner.String(),
		"winning_run":       piecesToList(s.WinningRun),
		"win_direction":     s.WinDirection.String(),
		"dropping":          nil,
		"round":             s.Round,
		"interval_ms":       s.Interval.Milliseconds(),
		"last_error":        nil,
		"turn_label":        s.TurnLabel(),
		"created_at":        s.CreatedAt.Unix(),
		"updated_at":        s.UpdatedAt.Unix(),
	}
	if s.Dropping != nil {
		m["dropping"] = map[string]any{
			"row":        s.Dropping.Row,
			"col":        s.Dropping.Col,
			"player":     s.Dropping.Player.String(),
			"target_row": s.Dropping.TargetRow,
		}
	}
	if s.LastError != nil {
		m["last_error"] = map[string]any{
			"kind":    errorKind(s.LastError),
			"message": s.LastError.Error(),
		}
	}
	return m
}

func piecesToList(pieces []game.Piece) []any {
	list := make([]any, len(pieces))
	for i, p := range pieces {
		list[i] = map[string]any{
			"row":    p.Row,
			"col":    p.Col,
			"player": p.Player.String(),
		}
	}
	return list
}

// gameResponse wraps a snapshot as {"game": {...}}
func gameResponse(s game.Snapshot) (*structpb.Struct, error) {
	return newStruct(map[string]any{"game": gameToMap(s)})
}

// updateToStruct is one frame of the update stream
func updateToStruct(u Update) (*structpb.Struct, error) {
	return newStruct(map[string]any{
		"game":    gameToMap(u.Snapshot),
		"message": u.Message,
	})
}

func scoreToStruct(score store.Score) (*structpb.Struct, error) {
	return newStruct(map[string]any{
		"game_id": score.GameID,
		"green":   score.Green,
		"red":     score.Red,
		"total":   score.Total(),
	})
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

// errorKind names the category of a recorded error
func errorKind(err error) string {
	switch {
	case errors.Is(err, game.ErrColumnOutOfRange):
		return "column_out_of_range"
	case errors.Is(err, game.ErrColumnFull):
		return "column_full"
	case errors.Is(err, game.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, game.ErrRowOutOfRange):
		return "row_out_of_range"
	case errors.Is(err, game.ErrCellOccupied):
		return "cell_occupied"
	case errors.Is(err, game.ErrInvalidPlayer):
		return "invalid_player"
	default:
		return "unknown"
	}
}

// stringField returns a string field, or "" when absent
func stringField(in *structpb.Struct, key string) string {
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(kind.StringValue)
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	default:
		return ""
	}
}

// intField returns an integral field. ok is false when the field is absent or
// null. Numeric strings are accepted since query parameters arrive that way.
func intField(in *structpb.Struct, key string) (n int, ok bool, err error) {
	v, exists := in.GetFields()[key]
	if !exists {
		return 0, false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, false, nil
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return 0, false, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
		}
		return int(f), true, nil
	case *structpb.Value_StringValue:
		n, err := strconv.Atoi(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return 0, false, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
		}
		return n, true, nil
	default:
		return 0, false, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
	}
}

// requiredInt is intField for fields a command cannot do without
func requiredInt(in *structpb.Struct, key string) (int, error) {
	n, ok, err := intField(in, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return n, nil
}

// boolField returns a boolean field. ok is false when the field is absent.
func boolField(in *structpb.Struct, key string) (b bool, ok bool, err error) {
	v, exists := in.GetFields()[key]
	if !exists {
		return false, false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return false, false, nil
	case *structpb.Value_BoolValue:
		return kind.BoolValue, true, nil
	case *structpb.Value_StringValue:
		b, err := strconv.ParseBool(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return false, false, status.Errorf(codes.InvalidArgument, "%s must be a boolean", key)
		}
		return b, true, nil
	default:
		return false, false, status.Errorf(codes.InvalidArgument, "%s must be a boolean", key)
	}
}

// piecesField parses [{"row":..,"col":..,"player":..}, ...]
func piecesField(in *structpb.Struct, key string) ([]game.Piece, error) {
	v, exists := in.GetFields()[key]
	if !exists {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list", key)
	}

	pieces := make([]game.Piece, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		obj := item.GetStructValue()
		if obj == nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be an object", key, i)
		}
		row, err := requiredInt(obj, "row")
		if err != nil {
			return nil, err
		}
		col, err := requiredInt(obj, "col")
		if err != nil {
			return nil, err
		}
		player, err := game.ParsePlayer(stringField(obj, "player"))
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d]: %v", key, i, err)
		}
		pieces = append(pieces, game.Piece{Coord: game.Coord{Row: row, Col: col}, Player: player})
	}
	return pieces, nil
}
