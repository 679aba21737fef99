// Package kvrpc describes the gRPC service exposed by a pyaz KV node.
//
// Messages are protobuf well-known types, so the service needs no
// generated code:
//
//	Get(StringValue key)            -> StringValue value, NotFound if absent
//	Set(Struct{key, value})         -> Empty
//	Keys(Empty)                     -> ListValue of string keys
package kvrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "pyaz.kv.v1.KVService"

	GetMethod  = "/" + ServiceName + "/Get"
	SetMethod  = "/" + ServiceName + "/Set"
	KeysMethod = "/" + ServiceName + "/Keys"
)

// KVServiceServer is the server API for the KV service.
type KVServiceServer interface {
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Set(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Keys(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// RegisterKVServiceServer registers srv with s.
func RegisterKVServiceServer(s grpc.ServiceRegistrar, srv KVServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc is the grpc.ServiceDesc for the KV service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KVServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Set", Handler: setHandler},
		{MethodName: "Keys", Handler: keysHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pyaz/kv/v1/kv.proto",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func setHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SetMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).Set(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func keysHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).Keys(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: KeysMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).Keys(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// SetRequest builds the Set message for key and value.
func SetRequest(key, value string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"key":   structpb.NewStringValue(key),
		"value": structpb.NewStringValue(value),
	}}
}

// ParseSetRequest extracts key and value from a Set message.
func ParseSetRequest(req *structpb.Struct) (key, value string) {
	fields := req.GetFields()
	return fields["key"].GetStringValue(), fields["value"].GetStringValue()
}

// Client is the client API for the KV service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Get(ctx context.Context, key string, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, GetMethod, wrapperspb.String(key), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Set(ctx context.Context, key, value string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, SetMethod, SetRequest(key, value), new(emptypb.Empty), opts...)
}

func (c *Client) Keys(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, KeysMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		keys = append(keys, v.GetStringValue())
	}
	return keys, nil
}
