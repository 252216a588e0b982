package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type rpcFunc func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (proto.Message, error)

func rpc[Res proto.Message](fn func(context.Context, *structpb.Struct, ...grpc.CallOption) (Res, error)) rpcFunc {
	return func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (proto.Message, error) {
		return fn(ctx, in, opts...)
	}
}

type route struct {
	method  string
	pattern string
	rpc     string
	call    rpcFunc
}

// NewGatewayMux creates the REST mux. JSON is emitted with every field
// populated; plain-text boards pass through as their HttpBody.
func NewGatewayMux() *runtime.ServeMux {
	return runtime.NewServeMux(
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.HTTPBodyMarshaler{
			Marshaler: &runtime.JSONPb{
				MarshalOptions: protojson.MarshalOptions{
					EmitUnpopulated: true,
				},
				UnmarshalOptions: protojson.UnmarshalOptions{
					DiscardUnknown: true,
				},
			},
		}),
	)
}

// RegisterGatewayRoutes maps the REST surface onto ConnectNService calls
// made through client
func RegisterGatewayRoutes(mux *runtime.ServeMux, client *Client) error {
	routes := []route{
		{http.MethodPost, "/api/v1/games", "CreateGame", rpc(client.CreateGame)},
		{http.MethodGet, "/api/v1/games", "ListGames", rpc(client.ListGames)},
		{http.MethodGet, "/api/v1/games/{game_id}", "GetGame", rpc(client.GetGame)},
		{http.MethodDelete, "/api/v1/games/{game_id}", "DeleteGame", rpc(client.DeleteGame)},
		{http.MethodPost, "/api/v1/games/{game_id}/pieces", "PlacePiece", rpc(client.PlacePiece)},
		{http.MethodPost, "/api/v1/games/{game_id}/drops", "RequestDrop", rpc(client.RequestDrop)},
		{http.MethodPost, "/api/v1/games/{game_id}/turn/toggle", "ToggleTurn", rpc(client.ToggleTurn)},
		{http.MethodPost, "/api/v1/games/{game_id}/turn/enabled", "SetToggleEnabled", rpc(client.SetToggleEnabled)},
		{http.MethodPost, "/api/v1/games/{game_id}/turn/player", "SetActivePlayer", rpc(client.SetActivePlayer)},
		{http.MethodPost, "/api/v1/games/{game_id}/dimensions", "SetDimensions", rpc(client.SetDimensions)},
		{http.MethodPost, "/api/v1/games/{game_id}/winning-count", "SetWinningCount", rpc(client.SetWinningCount)},
		{http.MethodPost, "/api/v1/games/{game_id}/interval", "SetInterval", rpc(client.SetInterval)},
		{http.MethodDelete, "/api/v1/games/{game_id}/error", "ClearError", rpc(client.ClearError)},
		{http.MethodPost, "/api/v1/games/{game_id}/reset", "ResetGame", rpc(client.ResetGame)},
		{http.MethodGet, "/api/v1/games/{game_id}/scores", "GetScores", rpc(client.GetScores)},
		{http.MethodGet, "/api/v1/games/{game_id}/board", "RenderBoard", rpc(client.RenderBoard)},
	}

	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, handleRoute(mux, rt)); err != nil {
			return err
		}
	}
	return nil
}

func handleRoute(mux *runtime.ServeMux, rt route) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		inbound, outbound := runtime.MarshalerForRequest(mux, r)

		annotated, err := runtime.AnnotateContext(ctx, mux, r, fullMethod(rt.rpc), runtime.WithHTTPPathPattern(rt.pattern))
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		ctx = annotated

		in, err := decodeRequest(inbound, r, pathParams)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}

		var md runtime.ServerMetadata
		resp, err := rt.call(ctx, in, grpc.Header(&md.HeaderMD), grpc.Trailer(&md.TrailerMD))
		ctx = runtime.NewServerMetadataContext(ctx, md)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}

		runtime.ForwardResponseMessage(ctx, mux, outbound, w, r, resp)
	}
}

// decodeRequest builds the request document from the JSON body, then the
// query string, then the path. Later sources win.
func decodeRequest(inbound runtime.Marshaler, r *http.Request, pathParams map[string]string) (*structpb.Struct, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{}}

	if r.Method == http.MethodPost {
		if err := inbound.NewDecoder(r.Body).Decode(in); err != nil && !errors.Is(err, io.EOF) {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
		if in.Fields == nil {
			in.Fields = map[string]*structpb.Value{}
		}
	}

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			in.Fields[key] = structpb.NewStringValue(values[len(values)-1])
		}
	}
	for key, value := range pathParams {
		in.Fields[key] = structpb.NewStringValue(value)
	}
	return in, nil
}
