package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

type snapshots []query.Event

func (s snapshots) Events() []query.Event { return s }

func testEvents() snapshots {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	workshop, concert := "workshop", "concert"
	return snapshots{
		{ID: "e1", Title: "Go Workshop", Location: "Kyiv", StartDate: base, EventType: &workshop, OwnerID: "u1", CreatedAt: base},
		{ID: "e2", Title: "Jazz Night", Location: "Lviv", StartDate: base.AddDate(0, 0, 1), EventType: &concert, OwnerID: "u2", CreatedAt: base.Add(time.Hour)},
		{ID: "e3", Title: "Rust Workshop", Location: "Kyiv", StartDate: base.AddDate(0, 0, 2), EventType: &workshop, OwnerID: "u2", CreatedAt: base.Add(2 * time.Hour)},
	}
}

func dial(t *testing.T) (*Client, *grpc.ClientConn) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	listing := service.NewListing(testEvents(), service.DefaultSettings(), logger.NewNop())
	grpcSrv, _ := NewGRPCServer(NewServer(listing, logger.NewNop()), "event-listing-test")

	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn), conn
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func itemIDs(t *testing.T, out *structpb.Struct) []string {
	t.Helper()
	items, ok := out.AsMap()["items"].([]any)
	require.True(t, ok)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.(map[string]any)["id"].(string))
	}
	return ids
}

func TestListEvents(t *testing.T) {
	client, _ := dial(t)
	ctx := context.Background()

	out, err := client.ListEvents(ctx, mustStruct(t, map[string]any{
		"eventType": "workshop",
		"sort":      "title-asc",
	}))
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, float64(2), fields["total_matches"])
	assert.Equal(t, true, fields["has_active"])
	assert.Equal(t, []string{"e1", "e3"}, itemIDs(t, out))
	assert.Equal(t, []any{"Kyiv", "Lviv"}, fields["locations"])
}

func TestListEvents_Defaults(t *testing.T) {
	client, _ := dial(t)

	out, err := client.ListEvents(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e3", "e2", "e1"}, itemIDs(t, out))
	assert.Equal(t, false, out.AsMap()["has_active"])
}

func TestListEvents_Mine(t *testing.T) {
	client, _ := dial(t)
	req := mustStruct(t, map[string]any{"mine": true})

	_, err := client.ListEvents(context.Background(), req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), UserMetadataKey, "u2")
	out, err := client.ListEvents(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"e3", "e2"}, itemIDs(t, out))
}

func TestListEvents_InvalidArgument(t *testing.T) {
	client, _ := dial(t)

	for _, fields := range []map[string]any{
		{"price": "cheap"},
		{"colour": "red", "sort": "rating"},
		{"page": 1.5},
		{"search": 42},
		{"date_from": "tomorrow"},
		{"max_price": -1},
		{"date_from": "2024-06-05", "date_to": "2024-06-01"},
	} {
		_, err := client.ListEvents(context.Background(), mustStruct(t, fields))
		assert.Equal(t, codes.InvalidArgument, status.Code(err), fields)
	}
}

func TestGetEvent(t *testing.T) {
	client, _ := dial(t)

	out, err := client.GetEvent(context.Background(), mustStruct(t, map[string]any{"id": "e2"}))
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", out.AsMap()["title"])

	_, err = client.GetEvent(context.Background(), mustStruct(t, map[string]any{"id": "nope"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetEvent(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestLatestEvents(t *testing.T) {
	client, _ := dial(t)

	out, err := client.LatestEvents(context.Background(), mustStruct(t, map[string]any{"limit": 2}))
	require.NoError(t, err)
	assert.Equal(t, []string{"e3", "e2"}, itemIDs(t, out))
}

func TestHealthService(t *testing.T) {
	_, conn := dial(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestReflectionDescribesService(t *testing.T) {
	_, conn := dial(t)

	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(context.Background())
	require.NoError(t, err)
	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: ServiceName},
	}))

	resp, err := stream.Recv()
	require.NoError(t, err)
	require.Nil(t, resp.GetErrorResponse())

	var file *descriptorpb.FileDescriptorProto
	for _, raw := range resp.GetFileDescriptorResponse().GetFileDescriptorProto() {
		fdp := new(descriptorpb.FileDescriptorProto)
		require.NoError(t, proto.Unmarshal(raw, fdp))
		if fdp.GetName() == protoFile {
			file = fdp
		}
	}
	require.NotNil(t, file, "descriptor for %s", protoFile)
	require.Len(t, file.GetService(), 1)

	var methods []string
	for _, m := range file.GetService()[0].GetMethod() {
		methods = append(methods, m.GetName())
		assert.Equal(t, ".google.protobuf.Struct", m.GetInputType())
	}
	assert.ElementsMatch(t, []string{"ListEvents", "GetEvent", "LatestEvents"}, methods)
}
