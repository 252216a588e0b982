package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"connectn/internal/game"
	"connectn/internal/store"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
	MaxBoardSize     = 64

	// updateBuffer is the per-subscriber backlog before updates are dropped
	updateBuffer = 32
)

// Update is one entry of a board's update stream
type Update struct {
	Snapshot game.Snapshot
	Message  string
}

// ConnectNServer implements ConnectNService
type ConnectNServer struct {
	UnimplementedConnectNServiceServer

	gameStore  *store.GameStore
	scoreStore *store.ScoreStore
	logger     *zap.Logger
	clock      clock.Clock

	defaultConfig   game.Config
	defaultInterval time.Duration

	// Subscribers for board updates (gameID -> set of channels)
	subscribersMu sync.RWMutex
	subscribers   map[string]map[chan Update]struct{}
}

// Option customizes a ConnectNServer
type Option func(*ConnectNServer)

// WithDefaults sets the configuration of boards created without one
func WithDefaults(cfg game.Config, interval time.Duration) Option {
	return func(s *ConnectNServer) {
		s.defaultConfig = cfg
		s.defaultInterval = interval
	}
}

// WithClock sets the clock handed to every board
func WithClock(c clock.Clock) Option {
	return func(s *ConnectNServer) {
		s.clock = c
	}
}

// NewConnectNServer creates a new server instance
func NewConnectNServer(gameStore *store.GameStore, scoreStore *store.ScoreStore, logger *zap.Logger, opts ...Option) *ConnectNServer {
	s := &ConnectNServer{
		gameStore:       gameStore,
		scoreStore:      scoreStore,
		logger:          logger,
		clock:           clock.New(),
		defaultConfig:   game.DefaultConfig(),
		defaultInterval: game.DefaultInterval,
		subscribers:     make(map[string]map[chan Update]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame creates a new board
func (s *ConnectNServer) CreateGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg := s.defaultConfig

	columns, hasColumns, err := intField(req, "columns")
	if err != nil {
		return nil, err
	}
	rows, hasRows, err := intField(req, "rows")
	if err != nil {
		return nil, err
	}
	if hasColumns {
		cfg.Columns = columns
	}
	if hasRows {
		cfg.Rows = rows
	}
	if cfg.Columns < 1 || cfg.Rows < 1 || cfg.Columns > MaxBoardSize || cfg.Rows > MaxBoardSize {
		return nil, status.Errorf(codes.InvalidArgument, "columns and rows must be between 1 and %d", MaxBoardSize)
	}

	winningCount, hasWinningCount, err := intField(req, "winning_count")
	if err != nil {
		return nil, err
	}
	if hasWinningCount {
		cfg.WinningCount = winningCount
	} else {
		cfg.WinningCount = game.ClampWinningCount(cfg.WinningCount, cfg.Rows, cfg.Columns)
	}

	opts := []game.Option{
		game.WithLogger(s.logger),
		game.WithClock(s.clock),
		game.WithInterval(s.defaultInterval),
		game.WithObserver(s.observe),
	}

	if name := stringField(req, "starting_player"); name != "" {
		p, err := game.ParsePlayer(name)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		opts = append(opts, game.WithStartingPlayer(p))
	}
	if enabled, ok, err := boolField(req, "toggle_enabled"); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, game.WithToggleEnabled(enabled))
	}
	if ms, ok, err := intField(req, "interval_ms"); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, game.WithInterval(time.Duration(ms)*time.Millisecond))
	}
	pieces, err := piecesField(req, "pieces")
	if err != nil {
		return nil, err
	}
	if len(pieces) > 0 {
		opts = append(opts, game.WithPieces(pieces))
	}

	gameID := uuid.New().String()
	g, err := game.NewGame(gameID, cfg, opts...)
	if err != nil {
		if errors.Is(err, game.ErrInvalidConfiguration) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Errorf(codes.Internal, "failed to create game: %v", err)
	}

	if err := s.gameStore.Create(g); err != nil {
		g.Close()
		return nil, status.Errorf(codes.Internal, "failed to store game: %v", err)
	}

	s.logger.Info("game created",
		zap.String("game_id", gameID),
		zap.Int("columns", cfg.Columns),
		zap.Int("rows", cfg.Rows),
		zap.Int("winning_count", cfg.WinningCount),
	)
	return gameResponse(g.GetSnapshot())
}

// ListGames returns all boards with pagination
func (s *ConnectNServer) ListGames(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, _, err := intField(req, "limit")
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	offset, _, err := intField(req, "offset")
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	snapshots, totalCount := s.gameStore.List(limit, offset)

	games := make([]any, len(snapshots))
	for i, snapshot := range snapshots {
		games[i] = gameToMap(snapshot)
	}

	return newStruct(map[string]any{
		"games":       games,
		"total_count": totalCount,
	})
}

// GetGame retrieves the current state of a board
func (s *ConnectNServer) GetGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.getGame(req)
	if err != nil {
		return nil, err
	}
	return gameResponse(g.GetSnapshot())
}

// DeleteGame removes a board, cancels its drop and ends its update streams
func (s *ConnectNServer) DeleteGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gameID := stringField(req, "game_id")
	if gameID == "" {
		return nil, status.Error(codes.InvalidArgument, "game_id is required")
	}

	if err := s.gameStore.Delete(gameID); err != nil {
		if errors.Is(err, store.ErrGameNotFound) {
			return nil, status.Error(codes.NotFound, "game not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to delete game: %v", err)
	}
	s.scoreStore.Delete(gameID)
	s.closeSubscribers(gameID)

	s.logger.Info("game deleted", zap.String("game_id", gameID))
	return newStruct(map[string]any{"game_id": gameID})
}

// PlacePiece places a piece for the active player. The piece lands by
// gravity unless a row is given.
func (s *ConnectNServer) PlacePiece(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	column, err := requiredInt(req, "column")
	if err != nil {
		return nil, err
	}
	row, hasRow, err := intField(req, "row")
	if err != nil {
		return nil, err
	}
	return s.command(req, func(g *game.Game) error {
		if hasRow {
			return g.PlaceAt(column, row)
		}
		return g.Place(column)
	})
}

// RequestDrop starts an animated drop
func (s *ConnectNServer) RequestDrop(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	column, err := requiredInt(req, "column")
	if err != nil {
		return nil, err
	}
	startRow, _, err := intField(req, "start_row")
	if err != nil {
		return nil, err
	}
	return s.command(req, func(g *game.Game) error {
		return g.RequestDropFrom(column, startRow)
	})
}

// ToggleTurn hands the turn to the other player when allowed
func (s *ConnectNServer) ToggleTurn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.command(req, func(g *game.Game) error {
		g.ToggleTurn()
		return nil
	})
}

// SetToggleEnabled pauses or resumes automatic turn alternation
func (s *ConnectNServer) SetToggleEnabled(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	enabled, ok, err := boolField(req, "enabled")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "enabled is required")
	}
	return s.command(req, func(g *game.Game) error {
		g.SetToggleEnabled(enabled)
		return nil
	})
}

// SetActivePlayer forces whose turn it is
func (s *ConnectNServer) SetActivePlayer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := game.ParsePlayer(stringField(req, "player"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return s.command(req, func(g *game.Game) error {
		return g.SetActivePlayer(p)
	})
}

// SetDimensions resizes an empty board
func (s *ConnectNServer) SetDimensions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	columns, err := requiredInt(req, "columns")
	if err != nil {
		return nil, err
	}
	rows, err := requiredInt(req, "rows")
	if err != nil {
		return nil, err
	}
	if columns > MaxBoardSize || rows > MaxBoardSize {
		return nil, status.Errorf(codes.InvalidArgument, "columns and rows must be at most %d", MaxBoardSize)
	}
	return s.command(req, func(g *game.Game) error {
		return g.SetDimensions(columns, rows)
	})
}

// SetWinningCount sets the run length needed to win
func (s *ConnectNServer) SetWinningCount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	n, err := requiredInt(req, "winning_count")
	if err != nil {
		return nil, err
	}
	return s.command(req, func(g *game.Game) error {
		return g.SetWinningCount(n)
	})
}

// SetInterval changes the drop animation tick
func (s *ConnectNServer) SetInterval(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ms, err := requiredInt(req, "interval_ms")
	if err != nil {
		return nil, err
	}
	return s.command(req, func(g *game.Game) error {
		return g.SetInterval(time.Duration(ms) * time.Millisecond)
	})
}

// ClearError forgets the board's last recorded error
func (s *ConnectNServer) ClearError(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.command(req, func(g *game.Game) error {
		g.ClearError()
		return nil
	})
}

// ResetGame starts a new round on the same board
func (s *ConnectNServer) ResetGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.command(req, func(g *game.Game) error {
		g.Reset()
		return nil
	})
}

// GetScores returns the board's win tally across rounds
func (s *ConnectNServer) GetScores(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.getGame(req)
	if err != nil {
		return nil, err
	}
	return scoreToStruct(s.scoreStore.Get(g.ID))
}

// RenderBoard returns the board as plain text
func (s *ConnectNServer) RenderBoard(ctx context.Context, req *structpb.Struct) (*httpbody.HttpBody, error) {
	g, err := s.getGame(req)
	if err != nil {
		return nil, err
	}
	snapshot := g.GetSnapshot()
	return &httpbody.HttpBody{
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(snapshot.TurnLabel() + "\n" + snapshot.String()),
	}, nil
}

// StreamGameUpdates streams board state to watchers until the board is
// deleted or the client goes away
func (s *ConnectNServer) StreamGameUpdates(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	g, err := s.getGame(req)
	if err != nil {
		return err
	}

	updateCh := s.subscribe(g.ID)
	defer s.unsubscribe(g.ID, updateCh)

	// Send initial state
	if err := s.sendUpdate(stream, Update{Snapshot: g.GetSnapshot(), Message: "Connected to game"}); err != nil {
		return err
	}

	for {
		select {
		case update, ok := <-updateCh:
			if !ok {
				return nil
			}
			if err := s.sendUpdate(stream, update); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

func (s *ConnectNServer) sendUpdate(stream grpc.ServerStreamingServer[structpb.Struct], update Update) error {
	msg, err := updateToStruct(update)
	if err != nil {
		return err
	}
	return stream.Send(msg)
}

// Close ends every update stream. Boards are left to the store.
func (s *ConnectNServer) Close() {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for gameID, subs := range s.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(s.subscribers, gameID)
	}
}

// getGame resolves the game_id field of a request
func (s *ConnectNServer) getGame(req *structpb.Struct) (*game.Game, error) {
	gameID := stringField(req, "game_id")
	if gameID == "" {
		return nil, status.Error(codes.InvalidArgument, "game_id is required")
	}

	g, err := s.gameStore.Get(gameID)
	if err != nil {
		if errors.Is(err, store.ErrGameNotFound) {
			return nil, status.Error(codes.NotFound, "game not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to get game: %v", err)
	}
	return g, nil
}

// command runs fn against the requested board and answers with its
// snapshot. Recorded errors travel in the snapshot's last_error; only
// refusals that leave nothing recorded fail the call.
func (s *ConnectNServer) command(req *structpb.Struct, fn func(g *game.Game) error) (*structpb.Struct, error) {
	g, err := s.getGame(req)
	if err != nil {
		return nil, err
	}

	if err := fn(g); err != nil {
		switch {
		case errors.Is(err, game.ErrGameFinished):
			return nil, status.Error(codes.FailedPrecondition, "game already has a winner")
		case errors.Is(err, game.ErrDropInFlight):
			return nil, status.Error(codes.FailedPrecondition, "a piece is already dropping")
		}
	}

	return gameResponse(g.GetSnapshot())
}

// observe is registered with every board. It runs after each state change.
func (s *ConnectNServer) observe(snapshot game.Snapshot) {
	if snapshot.HasWinner() && s.scoreStore.RecordWin(snapshot.ID, snapshot.Round, snapshot.Winner) {
		s.logger.Info("round won",
			zap.String("game_id", snapshot.ID),
			zap.Int("round", snapshot.Round),
			zap.Stringer("winner", snapshot.Winner),
		)
	}

	s.broadcastUpdate(snapshot.ID, Update{
		Snapshot: snapshot,
		Message:  updateMessage(snapshot),
	})
}

// subscribe registers a channel to receive updates for a board
func (s *ConnectNServer) subscribe(gameID string) chan Update {
	ch := make(chan Update, updateBuffer)

	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	if s.subscribers[gameID] == nil {
		s.subscribers[gameID] = make(map[chan Update]struct{})
	}
	s.subscribers[gameID][ch] = struct{}{}
	return ch
}

// unsubscribe removes and closes a channel unless it was already closed
func (s *ConnectNServer) unsubscribe(gameID string, ch chan Update) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	subs, ok := s.subscribers[gameID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(s.subscribers, gameID)
	}
	close(ch)
}

// closeSubscribers ends every update stream of a board
func (s *ConnectNServer) closeSubscribers(gameID string) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for ch := range s.subscribers[gameID] {
		close(ch)
	}
	delete(s.subscribers, gameID)
}

// broadcastUpdate sends an update to all subscribers of a board
func (s *ConnectNServer) broadcastUpdate(gameID string, update Update) {
	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	if subs, ok := s.subscribers[gameID]; ok {
		for ch := range subs {
			select {
			case ch <- update:
			default:
				// Channel full, skip (non-blocking)
			}
		}
	}
}

// updateMessage generates a human-readable message for a board state
func updateMessage(snapshot game.Snapshot) string {
	if snapshot.HasDrop() && !snapshot.HasWinner() {
		return snapshot.Dropping.Player.String() + " piece dropping"
	}
	return snapshot.TurnLabel()
}
