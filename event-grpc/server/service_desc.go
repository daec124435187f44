package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Сообщения сервиса описаны как google.protobuf.Struct, поэтому дескриптор объявлен вручную,
// без сгенерированного кода.
const (
	ServiceName = "eventlisting.v1.EventListing"
	protoFile   = "eventlisting/v1/listing.proto"

	listEventsMethod   = "/" + ServiceName + "/ListEvents"
	getEventMethod     = "/" + ServiceName + "/GetEvent"
	latestEventsMethod = "/" + ServiceName + "/LatestEvents"
)

// EventListingServer - серверная часть сервиса списка событий.
type EventListingServer interface {
	ListEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	LatestEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventListingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListEvents", Handler: unaryHandler(listEventsMethod, EventListingServer.ListEvents)},
		{MethodName: "GetEvent", Handler: unaryHandler(getEventMethod, EventListingServer.GetEvent)},
		{MethodName: "LatestEvents", Handler: unaryHandler(latestEventsMethod, EventListingServer.LatestEvents)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}

// FileDescriptor - описание сервиса для reflection. Регистрируется в protoregistry.GlobalFiles,
// как это делает сгенерированный код, поэтому grpcurl видит методы и типы.
var FileDescriptor = mustRegisterFile()

func mustRegisterFile() protoreflect.FileDescriptor {
	structType := "." + string((&structpb.Struct{}).ProtoReflect().Descriptor().FullName())

	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(ServiceDesc.Methods))
	for _, m := range ServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		})
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(protoFile),
		Package:    proto.String("eventlisting.v1"),
		Dependency: []string{structpb.File_google_protobuf_struct_proto.Path()},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("EventListing"),
			Method: methods,
		}},
		Syntax: proto.String("proto3"),
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build %s descriptor: %v", protoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s descriptor: %v", protoFile, err))
	}
	return fd
}

// RegisterEventListingServer регистрирует реализацию на gRPC сервере.
func RegisterEventListingServer(s grpc.ServiceRegistrar, srv EventListingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type method func(EventListingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call method) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EventListingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EventListingServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client - клиент сервиса списка событий.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListEvents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, listEventsMethod, in, opts...)
}

func (c *Client) GetEvent(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, getEventMethod, in, opts...)
}

func (c *Client) LatestEvents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, latestEventsMethod, in, opts...)
}

func (c *Client) invoke(ctx context.Context, fullMethod string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
