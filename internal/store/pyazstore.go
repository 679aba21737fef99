package store

import (
	"context"
	"fmt"

	"github.com/heysubinoy/pyazgate/pkg/kv"
	"github.com/heysubinoy/pyazgate/pkg/kvrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// PyazStore is a kv.Store backed by a remote pyaz KV node reached over
// gRPC. A single ClientConn is shared by all callers.
type PyazStore struct {
	conn   *grpc.ClientConn
	client *kvrpc.Client
}

var _ kv.Store = (*PyazStore)(nil)

// DialPyaz creates a client for the node at addr. The connection is
// established lazily on the first call.
func DialPyaz(addr string, opts ...grpc.DialOption) (*PyazStore, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating grpc client for %s: %w", addr, err)
	}
	return &PyazStore{conn: conn, client: kvrpc.NewClient(conn)}, nil
}

func (s *PyazStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx)
	if err != nil {
		return nil, kv.Unavailable("pyaz keys", rpcError(err))
	}
	return keys, nil
}

func (s *PyazStore) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := s.client.Get(ctx, key)
	if status.Code(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, kv.Unavailable("pyaz get", rpcError(err))
	}
	return resp.GetValue(), true, nil
}

func (s *PyazStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value); err != nil {
		return kv.Unavailable("pyaz set", rpcError(err))
	}
	return nil
}

func (s *PyazStore) Close() error {
	return s.conn.Close()
}

// rpcError turns deadline and cancellation statuses back into their
// context errors so callers can match them with errors.Is.
func rpcError(err error) error {
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	case codes.Canceled:
		return fmt.Errorf("%w: %v", context.Canceled, err)
	}
	return err
}
