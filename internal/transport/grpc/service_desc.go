package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Сервис описан вручную поверх well-known types, поэтому codegen не нужен:
//
//	service PresenceService {
//	  rpc GetRoom(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	  rpc ListRooms(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc Sweep(google.protobuf.Empty) returns (google.protobuf.Int64Value);
//	}
const ServiceName = "presence.v1.PresenceService"

const (
	methodGetRoom   = "/" + ServiceName + "/GetRoom"
	methodListRooms = "/" + ServiceName + "/ListRooms"
	methodSweep     = "/" + ServiceName + "/Sweep"
)

type PresenceServer interface {
	GetRoom(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
	ListRooms(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Sweep(ctx context.Context, in *emptypb.Empty) (*wrapperspb.Int64Value, error)
}

var PresenceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PresenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRoom", Handler: getRoomHandler},
		{MethodName: "ListRooms", Handler: listRoomsHandler},
		{MethodName: "Sweep", Handler: sweepHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "presence/v1/presence.proto",
}

func getRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServer).GetRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetRoom}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceServer).GetRoom(ctx, req.(*wrapperspb.StringValue))
	})
}

func listRoomsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServer).ListRooms(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListRooms}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceServer).ListRooms(ctx, req.(*emptypb.Empty))
	})
}

func sweepHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServer).Sweep(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSweep}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceServer).Sweep(ctx, req.(*emptypb.Empty))
	})
}

// Client: тонкий клиент для того же описания.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) GetRoom(ctx context.Context, roomID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetRoom, wrapperspb.String(roomID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRooms(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListRooms, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Sweep(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, methodSweep, &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
