package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// UserMetadataKey - ключ метаданных с идентификатором пользователя.
const UserMetadataKey = "x-user-id"

var errOwnerRequired = errors.New("mine requires " + UserMetadataKey + " metadata")

type Server struct {
	listing *service.Listing
	log     logger.Logger
}

func NewServer(listing *service.Listing, log logger.Logger) *Server {
	return &Server{
		listing: listing,
		log:     log,
	}
}

// ListEvents выполняет выборку над текущим снимком.
func (s *Server) ListEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	params, err := StructToParams(req, ownerFrom(ctx))
	if err != nil {
		s.log.Warn("invalid list events request",
			"method", "ListEvents",
			"error", err,
		)
		if errors.Is(err, errOwnerRequired) {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res := s.listing.List(service.WithOrigin(ctx, "grpc"), params)

	out, err := ResultToStruct(res, params.HasActiveCriteria())
	if err != nil {
		s.log.Error("failed to encode list events response",
			"method", "ListEvents",
			"error", err,
		)
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return out, nil
}

// GetEvent возвращает событие по {"id": "..."}.
func (s *Server) GetEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req.AsMap(), "id")
	if err != nil || id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	ev, err := s.listing.Get(ctx, id)
	if err != nil {
		return nil, wrapError(err)
	}

	out, err := ToStruct(ev)
	if err != nil {
		s.log.Error("failed to encode event", "method", "GetEvent", "event_id", id, "error", err)
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

// LatestEvents возвращает карусель последних событий; {"limit": n} необязателен.
func (s *Server) LatestEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, err := intField(req.AsMap(), "limit")
	if err != nil || limit < 0 || limit > 50 {
		return nil, status.Error(codes.InvalidArgument, "limit must be between 0 and 50")
	}

	out, err := EventsToStruct(s.listing.Latest(ctx, limit))
	if err != nil {
		s.log.Error("failed to encode latest events", "method", "LatestEvents", "error", err)
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func ownerFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(UserMetadataKey); len(values) > 0 {
		return values[0]
	}
	return ""
}

// wrapError переводит ошибки сервиса в коды gRPC.
func wrapError(err error) error {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		return status.Error(codes.NotFound, "resource not found")
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	}

	return status.Error(codes.Internal, "internal server error")
}
