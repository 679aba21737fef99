package api

import (
	"context"
	"testing"

	"github.com/heysubinoy/pyazgate/internal/store"
	"github.com/heysubinoy/pyazgate/pkg/kvrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestGRPCServer(t *testing.T) {
	ctx := context.Background()
	srv := NewGRPCServer(store.NewMemStore())

	_, err := srv.Set(ctx, kvrpc.SetRequest("a", "1"))
	require.NoError(t, err)

	got, err := srv.Get(ctx, wrapperspb.String("a"))
	require.NoError(t, err)
	assert.Equal(t, "1", got.GetValue())

	_, err = srv.Get(ctx, wrapperspb.String("b"))
	assert.Equal(t, codes.NotFound, status.Code(err))

	keys, err := srv.Keys(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	require.Len(t, keys.GetValues(), 1)
	assert.Equal(t, "a", keys.GetValues()[0].GetStringValue())
}

func TestGRPCServer_EmptyKey(t *testing.T) {
	ctx := context.Background()
	srv := NewGRPCServer(store.NewMemStore())

	_, err := srv.Get(ctx, wrapperspb.String(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = srv.Set(ctx, kvrpc.SetRequest("", "v"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCServer_StoreErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := NewGRPCServer(store.NewMemStore())

	_, err := srv.Get(ctx, wrapperspb.String("a"))
	assert.Equal(t, codes.Canceled, status.Code(err))

	_, err = srv.Keys(ctx, &emptypb.Empty{})
	assert.Equal(t, codes.Canceled, status.Code(err))
}
