package grpcx

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/cwrk-planet/session-service/internal/domain"
	"github.com/cwrk-planet/session-service/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type RoomReader interface {
	Snapshot(ctx context.Context, roomID string) (*service.RoomSnapshot, error)
	RoomIDs() []string
}

type CallCounter interface {
	ActiveCount() int
}

type Sweeper interface {
	Sweep(ctx context.Context) int
}

type Server struct {
	rooms  RoomReader
	calls  CallCounter
	reaper Sweeper
}

func NewServer(rooms RoomReader, calls CallCounter, reaper Sweeper) *Server {
	return &Server{rooms: rooms, calls: calls, reaper: reaper}
}

func Register(grpcServer *grpc.Server, s *Server) {
	grpcServer.RegisterService(&PresenceServiceDesc, s)
}

// -------- helpers --------

// toStruct переводит DTO в google.protobuf.Struct через его JSON-представление.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrMalformedEnvelope):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNameTaken):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrNotInRoom), errors.Is(err, domain.ErrNoOfflineSession),
		errors.Is(err, domain.ErrNoActiveCall), errors.Is(err, domain.ErrNotInCall):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrUnknownTarget), errors.Is(err, domain.ErrUnknownSender):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -------- methods --------

func (s *Server) GetRoom(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	roomID := strings.TrimSpace(in.GetValue())
	if roomID == "" {
		return nil, mapErr(domain.ErrInvalidRequest)
	}
	snap, err := s.rooms.Snapshot(ctx, roomID)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := toStruct(map[string]any{
		"roomId":       snap.RoomID,
		"participants": snap.Roster,
		"call":         snap.Call,
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Server) ListRooms(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(map[string]any{
		"items":       s.rooms.RoomIDs(),
		"activeCalls": s.calls.ActiveCount(),
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Server) Sweep(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Int64(int64(s.reaper.Sweep(ctx))), nil
}
