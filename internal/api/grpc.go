package api

import (
	"context"
	"errors"

	"github.com/heysubinoy/pyazgate/pkg/kv"
	"github.com/heysubinoy/pyazgate/pkg/kvrpc"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPCServer implements the kvrpc.KVServiceServer interface.
// It wraps a kv.Store and exposes it over gRPC.
type GRPCServer struct {
	Store kv.Store
}

var _ kvrpc.KVServiceServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new gRPC server with the given store.
func NewGRPCServer(store kv.Store) *GRPCServer {
	return &GRPCServer{
		Store: store,
	}
}

// Get retrieves a value by key.
func (s *GRPCServer) Get(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	key := req.GetValue()
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	value, found, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, storeStatus(err, "failed to get key")
	}
	if !found {
		return nil, status.Errorf(codes.NotFound, "key %q not found", key)
	}
	return wrapperspb.String(value), nil
}

// Set stores a key-value pair.
func (s *GRPCServer) Set(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	key, value := kvrpc.ParseSetRequest(req)
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	if err := s.Store.Set(ctx, key, value); err != nil {
		return nil, storeStatus(err, "failed to set key")
	}
	return &emptypb.Empty{}, nil
}

// Keys lists every key in the store.
func (s *GRPCServer) Keys(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	keys, err := s.Store.Keys(ctx)
	if err != nil {
		return nil, storeStatus(err, "failed to list keys")
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(keys))}
	for _, k := range keys {
		out.Values = append(out.Values, structpb.NewStringValue(k))
	}
	return out, nil
}

func storeStatus(err error, msg string) error {
	log.WithError(err).Warn(msg)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, msg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msg)
	default:
		return status.Error(codes.Unavailable, msg)
	}
}
