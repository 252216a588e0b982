package server

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/structpb"

	"connectn/internal/game"
	"connectn/internal/logging"
	"connectn/internal/store"
)

const testInterval = time.Second

type testEnv struct {
	srv    *ConnectNServer
	client *Client
	conn   *grpc.ClientConn
	mock   *clock.Mock
	logs   *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	mock := clock.NewMock()

	gameStore := store.NewGameStore(4)
	srv := NewConnectNServer(gameStore, store.NewScoreStore(4), logger,
		WithClock(mock),
		WithDefaults(game.DefaultConfig(), testInterval),
	)

	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(logging.UnaryServerInterceptor(logger)),
		grpc.ChainStreamInterceptor(logging.StreamServerInterceptor(logger)),
	)
	RegisterConnectNServiceServer(grpcServer, srv)
	go grpcServer.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		srv.Close()
		conn.Close()
		grpcServer.Stop()
		gameStore.Close()
	})

	return &testEnv{
		srv:    srv,
		client: NewClient(conn),
		conn:   conn,
		mock:   mock,
		logs:   logs,
	}
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func gameOf(t *testing.T, resp *structpb.Struct) map[string]any {
	t.Helper()
	g, ok := resp.AsMap()["game"].(map[string]any)
	require.True(t, ok, "response has no game: %v", resp)
	return g
}

func (e *testEnv) createGame(t *testing.T, fields map[string]any) string {
	t.Helper()
	resp, err := e.client.CreateGame(context.Background(), request(t, fields))
	require.NoError(t, err)
	id, _ := gameOf(t, resp)["game_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func (e *testEnv) place(t *testing.T, gameID string, column int) map[string]any {
	t.Helper()
	resp, err := e.client.PlacePiece(context.Background(), request(t, map[string]any{"game_id": gameID, "column": column}))
	require.NoError(t, err)
	return gameOf(t, resp)
}

func (e *testEnv) get(t *testing.T, gameID string) map[string]any {
	t.Helper()
	resp, err := e.client.GetGame(context.Background(), request(t, map[string]any{"game_id": gameID}))
	require.NoError(t, err)
	return gameOf(t, resp)
}

func TestCreateGame_Defaults(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.CreateGame(context.Background(), request(t, nil))
	require.NoError(t, err)

	g := gameOf(t, resp)
	assert.Equal(t, float64(5), g["columns"])
	assert.Equal(t, float64(5), g["rows"])
	assert.Equal(t, float64(4), g["winning_count"])
	assert.Equal(t, float64(7), g["max_winning_count"])
	assert.Equal(t, "green", g["player"])
	assert.Equal(t, "green", g["starting_player"])
	assert.Equal(t, true, g["toggle_enabled"])
	assert.Equal(t, "", g["winner"])
	assert.Equal(t, "Green Turn", g["turn_label"])
	assert.Equal(t, float64(testInterval.Milliseconds()), g["interval_ms"])
	assert.Empty(t, g["pieces"])
	assert.Nil(t, g["dropping"])
	assert.Nil(t, g["last_error"])
}

func TestCreateGame_Options(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.CreateGame(context.Background(), request(t, map[string]any{
		"columns":         7,
		"rows":            6,
		"starting_player": "red",
		"toggle_enabled":  false,
		"interval_ms":     250,
		"pieces": []any{
			map[string]any{"row": 5, "col": 3, "player": "green"},
		},
	}))
	require.NoError(t, err)

	g := gameOf(t, resp)
	assert.Equal(t, float64(7), g["columns"])
	assert.Equal(t, float64(6), g["rows"])
	// The default winning count still fits the larger board
	assert.Equal(t, float64(4), g["winning_count"])
	assert.Equal(t, "red", g["player"])
	assert.Equal(t, false, g["toggle_enabled"])
	assert.Equal(t, float64(250), g["interval_ms"])
	assert.Equal(t, []any{map[string]any{"row": float64(5), "col": float64(3), "player": "green"}}, g["pieces"])
}

func TestCreateGame_Invalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{name: "zero columns", fields: map[string]any{"columns": 0}},
		{name: "huge board", fields: map[string]any{"rows": 1000}},
		{name: "winning count beyond the diagonal", fields: map[string]any{"winning_count": 99}},
		{name: "fractional rows", fields: map[string]any{"rows": 4.5}},
		{name: "unknown starting player", fields: map[string]any{"starting_player": "blue"}},
		{name: "zero interval", fields: map[string]any{"interval_ms": 0}},
		{name: "piece off the board", fields: map[string]any{"pieces": []any{map[string]any{"row": 9, "col": 0, "player": "red"}}}},
		{name: "pieces not a list", fields: map[string]any{"pieces": "none"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.CreateGame(context.Background(), request(t, tt.fields))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestGetGame_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.GetGame(context.Background(), request(t, nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.client.GetGame(context.Background(), request(t, map[string]any{"game_id": "nope"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.client.PlacePiece(context.Background(), request(t, map[string]any{"game_id": "nope", "column": 0}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestPlacePiece_TwoInARow(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t, map[string]any{"winning_count": 2, "toggle_enabled": false})

	g := env.place(t, id, 0)
	assert.Equal(t, "", g["winner"])

	g = env.place(t, id, 1)
	assert.Equal(t, "green", g["winner"])
	assert.Equal(t, "horizontal", g["win_direction"])
	assert.Len(t, g["winning_run"], 2)
	assert.Equal(t, "Green Won", g["turn_label"])

	// Placement after a win is refused and changes nothing
	_, err := env.client.PlacePiece(context.Background(), request(t, map[string]any{"game_id": id, "column": 2}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Len(t, env.get(t, id)["pieces"], 2)

	resp, err := env.client.GetScores(context.Background(), request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"game_id": id, "green": float64(1), "red": float64(0), "total": float64(1)}, resp.AsMap())

	assert.Equal(t, 1, env.logs.FilterMessage("round won").Len())
}

func TestPlacePiece_ExplicitRow(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t, nil)

	resp, err := env.client.PlacePiece(context.Background(), request(t, map[string]any{"game_id": id, "column": 2, "row": 1}))
	require.NoError(t, err)
	g := gameOf(t, resp)
	assert.Equal(t, []any{map[string]any{"row": float64(1), "col": float64(2), "player": "green"}}, g["pieces"])
	assert.Equal(t, "red", g["player"])
}

func TestPlacePiece_RecordedError(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t, nil)

	g := env.place(t, id, 9)
	assert.Empty(t, g["pieces"])
	lastErr, ok := g["last_error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "column_out_of_range", lastErr["kind"])
	assert.Contains(t, lastErr["message"], "column 9")

	// A successful move keeps the error until it is cleared
	g = env.place(t, id, 0)
	assert.NotNil(t, g["last_error"])

	resp, err := env.client.ClearError(context.Background(), request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	assert.Nil(t, gameOf(t, resp)["last_error"])

	_, err = env.client.PlacePiece(context.Background(), request(t, map[string]any{"game_id": id}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPlacePiece_ColumnFull(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t, map[string]any{"columns": 2, "rows": 2, "winning_count": 2})

	env.place(t, id, 0)
	env.place(t, id, 0)
	g := env.place(t, id, 0)

	assert.Len(t, g["pieces"], 2)
	assert.Equal(t, "column_full", g["last_error"].(map[string]any)["kind"])
}

func TestResetGame_ScoresAcrossRounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createGame(t, map[string]any{"winning_count": 1})

	g := env.place(t, id, 0)
	require.Equal(t, "green", g["winner"])

	// Further notifications for a decided round do not count twice
	_, err := env.client.ToggleTurn(ctx, request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)

	resp, err := env.client.ResetGame(ctx, request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	g = gameOf(t, resp)
	assert.Empty(t, g["pieces"])
	assert.Equal(t, "", g["winner"])
	assert.Equal(t, "green", g["player"])
	assert.Equal(t, float64(2), g["round"])

	_, err = env.client.SetActivePlayer(ctx, request(t, map[string]any{"game_id": id, "player": "red"}))
	require.NoError(t, err)
	g = env.place(t, id, 4)
	require.Equal(t, "red", g["winner"])

	resp, err = env.client.GetScores(ctx, request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	scores := resp.AsMap()
	assert.Equal(t, float64(1), scores["green"])
	assert.Equal(t, float64(1), scores["red"])
	assert.Equal(t, float64(2), scores["total"])
}

func TestTurnCommands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createGame(t, nil)

	resp, err := env.client.ToggleTurn(ctx, request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	assert.Equal(t, "red", gameOf(t, resp)["player"])

	resp, err = env.client.SetToggleEnabled(ctx, request(t, map[string]any{"game_id": id, "enabled": false}))
	require.NoError(t, err)
	assert.Equal(t, false, gameOf(t, resp)["toggle_enabled"])

	resp, err = env.client.ToggleTurn(ctx, request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	assert.Equal(t, "red", gameOf(t, resp)["player"])

	resp, err = env.client.SetActivePlayer(ctx, request(t, map[string]any{"game_id": id, "player": "green"}))
	require.NoError(t, err)
	assert.Equal(t, "green", gameOf(t, resp)["player"])

	_, err = env.client.SetActivePlayer(ctx, request(t, map[string]any{"game_id": id, "player": "blue"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.client.SetToggleEnabled(ctx, request(t, map[string]any{"game_id": id}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestConfigurationCommands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createGame(t, nil)

	resp, err := env.client.SetDimensions(ctx, request(t, map[string]any{"game_id": id, "columns": 7, "rows": 6}))
	require.NoError(t, err)
	g := gameOf(t, resp)
	assert.Equal(t, float64(7), g["columns"])
	assert.Equal(t, float64(6), g["rows"])
	assert.Equal(t, float64(9), g["max_winning_count"])

	resp, err = env.client.SetWinningCount(ctx, request(t, map[string]any{"game_id": id, "winning_count": 20}))
	require.NoError(t, err)
	g = gameOf(t, resp)
	assert.Equal(t, float64(9), g["winning_count"])
	assert.Equal(t, "invalid_configuration", g["last_error"].(map[string]any)["kind"])

	resp, err = env.client.SetInterval(ctx, request(t, map[string]any{"game_id": id, "interval_ms": 50}))
	require.NoError(t, err)
	assert.Equal(t, float64(50), gameOf(t, resp)["interval_ms"])

	// Configuration is frozen once pieces are on the board
	env.place(t, id, 0)
	_, err = env.client.ClearError(ctx, request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	resp, err = env.client.SetDimensions(ctx, request(t, map[string]any{"game_id": id, "columns": 3, "rows": 3}))
	require.NoError(t, err)
	g = gameOf(t, resp)
	assert.Equal(t, float64(7), g["columns"])
	assert.Equal(t, "invalid_configuration", g["last_error"].(map[string]any)["kind"])

	_, err = env.client.SetDimensions(ctx, request(t, map[string]any{"game_id": id, "columns": 3}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRequestDrop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createGame(t, nil)

	resp, err := env.client.RequestDrop(ctx, request(t, map[string]any{"game_id": id, "column": 1}))
	require.NoError(t, err)
	g := gameOf(t, resp)
	assert.Equal(t, map[string]any{"row": float64(0), "col": float64(1), "player": "green", "target_row": float64(4)}, g["dropping"])
	assert.Empty(t, g["pieces"])

	_, err = env.client.RequestDrop(ctx, request(t, map[string]any{"game_id": id, "column": 2}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	for i := 0; i < 4; i++ {
		env.mock.Add(testInterval)
		want := float64(i + 1)
		require.Eventually(t, func() bool {
			g := env.get(t, id)
			if g["dropping"] == nil {
				return want == 4
			}
			return g["dropping"].(map[string]any)["row"] == want
		}, time.Second, time.Millisecond)
	}

	g = env.get(t, id)
	assert.Nil(t, g["dropping"])
	assert.Equal(t, []any{map[string]any{"row": float64(4), "col": float64(1), "player": "green"}}, g["pieces"])
	assert.Equal(t, "red", g["player"])
}

func TestListAndDeleteGames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, env.createGame(t, nil))
		env.mock.Add(time.Second)
	}

	resp, err := env.client.ListGames(ctx, request(t, map[string]any{"limit": 2}))
	require.NoError(t, err)
	list := resp.AsMap()
	assert.Equal(t, float64(3), list["total_count"])
	require.Len(t, list["games"], 2)
	assert.Equal(t, ids[0], list["games"].([]any)[0].(map[string]any)["game_id"])

	resp, err = env.client.ListGames(ctx, request(t, map[string]any{"offset": 2}))
	require.NoError(t, err)
	require.Len(t, resp.AsMap()["games"], 1)

	_, err = env.client.DeleteGame(ctx, request(t, map[string]any{"game_id": ids[1]}))
	require.NoError(t, err)

	_, err = env.client.GetGame(ctx, request(t, map[string]any{"game_id": ids[1]}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.client.DeleteGame(ctx, request(t, map[string]any{"game_id": ids[1]}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err = env.client.ListGames(ctx, request(t, nil))
	require.NoError(t, err)
	assert.Equal(t, float64(2), resp.AsMap()["total_count"])
}

func TestRenderBoard(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t, map[string]any{"columns": 2, "rows": 2, "winning_count": 2})
	env.place(t, id, 0)
	env.place(t, id, 1)

	body, err := env.client.RenderBoard(context.Background(), request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", body.GetContentType())

	want := "Green Turn\n" +
		"+---+---+\n" +
		"|   |   |\n" +
		"+---+---+\n" +
		"| G | R |\n" +
		"+---+---+\n"
	assert.Equal(t, want, string(body.GetData()))
}

func TestStreamGameUpdates(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := env.client.StreamGameUpdates(ctx, request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Connected to game", first.AsMap()["message"])

	env.place(t, id, 3)
	update, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Red Turn", update.AsMap()["message"])
	assert.Len(t, gameOf(t, update)["pieces"], 1)

	_, err = env.client.DeleteGame(context.Background(), request(t, map[string]any{"game_id": id}))
	require.NoError(t, err)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamGameUpdates_NotFound(t *testing.T) {
	env := newTestEnv(t)

	stream, err := env.client.StreamGameUpdates(context.Background(), request(t, map[string]any{"game_id": "nope"}))
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServiceDescriptor(t *testing.T) {
	desc, err := protoregistry.GlobalFiles.FindDescriptorByName(ServiceName)
	require.NoError(t, err)

	svc, ok := desc.(protoreflect.ServiceDescriptor)
	require.True(t, ok)
	assert.Equal(t, 17, svc.Methods().Len())

	stream := svc.Methods().ByName("StreamGameUpdates")
	require.NotNil(t, stream)
	assert.True(t, stream.IsStreamingServer())

	render := svc.Methods().ByName("RenderBoard")
	require.NotNil(t, render)
	assert.Equal(t, protoreflect.FullName("google.api.HttpBody"), render.Output().FullName())
}
