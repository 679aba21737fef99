package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/heysubinoy/pyazgate/internal/api"
	"github.com/heysubinoy/pyazgate/internal/gateway"
	"github.com/heysubinoy/pyazgate/internal/store"
	"github.com/heysubinoy/pyazgate/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T) *client.Client {
	t.Helper()
	srv := httptest.NewServer(api.NewServer(gateway.New(store.NewMemStore(), time.Second), nil).Handler())
	t.Cleanup(srv.Close)
	return client.New(srv.URL + "/")
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newGateway(t)

	msg, err := c.Set(ctx, "a key/with slash", "välue & more")
	require.NoError(t, err)
	assert.Equal(t, "Key 'a key/with slash' set with value 'välue & more'", msg)

	value, err := c.Get(ctx, "a key/with slash")
	require.NoError(t, err)
	assert.Equal(t, "välue & more", value)

	all, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a key/with slash": "välue & more"}, all)
}

func TestClient_NotFound(t *testing.T) {
	_, err := newGateway(t).Get(context.Background(), "missing")

	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"Store unavailable"}`))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL).GetAll(context.Background())

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "Store unavailable", apiErr.Detail)
}
