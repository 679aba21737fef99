package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/heysubinoy/pyazgate/internal/gateway"
	"github.com/heysubinoy/pyazgate/internal/store"
	"github.com/heysubinoy/pyazgate/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, s kv.Store, timeout time.Duration) http.Handler {
	t.Helper()
	instrumented := store.NewInstrumentedStore(s, "test")
	return NewServer(gateway.New(instrumented, timeout), instrumented).Handler()
}

func do(t *testing.T, h http.Handler, method, target string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w.Code, body
}

func setPath(key, value string) string {
	return "/set/" + url.PathEscape(key) + "/" + url.PathEscape(value)
}

func getPath(key string) string {
	return "/get/" + url.PathEscape(key)
}

func TestSetThenGet(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)

	code, body := do(t, h, http.MethodPost, "/set/foo/bar")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"message": "Key 'foo' set with value 'bar'"}, body)

	code, body = do(t, h, http.MethodGet, "/get/foo")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"key": "foo", "value": "bar"}, body)
}

func TestGetMissing(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)

	code, body := do(t, h, http.MethodGet, "/get/nope")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, map[string]any{"detail": "Key 'nope' not found"}, body)
}

func TestGetAll_Empty(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get-all", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"keys_values": {}}`, w.Body.String())
}

func TestGetAll(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)
	do(t, h, http.MethodPost, "/set/a/1")
	do(t, h, http.MethodPost, "/set/b/2")

	code, body := do(t, h, http.MethodGet, "/get-all")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"keys_values": map[string]any{"a": "1", "b": "2"}}, body)
}

func TestOverwrite(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)
	do(t, h, http.MethodPost, "/set/k/v1")
	do(t, h, http.MethodPost, "/set/k/v2")

	_, body := do(t, h, http.MethodGet, "/get/k")
	assert.Equal(t, "v2", body["value"])
}

func TestSpecialCharactersRoundTrip(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)

	values := []string{
		"hello world",
		"ünïcödé 日本語 🚀",
		`{"json": ["reserved", "chars"]}`,
		`<b>tags</b> & "quotes" 'single'`,
		"slash/inside/value",
		"..",
		"percent %41 literal",
	}
	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			key := "key " + v
			code, body := do(t, h, http.MethodPost, setPath(key, v))
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, "Key '"+key+"' set with value '"+v+"'", body["message"])

			code, body = do(t, h, http.MethodGet, getPath(key))
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, key, body["key"])
			assert.Equal(t, v, body["value"])
		})
	}
}

func TestResponsesAreNotHTMLEscaped(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)
	do(t, h, http.MethodPost, setPath("k", "<&>"))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get/k", nil))
	assert.Contains(t, w.Body.String(), `"value":"<&>"`)
}

func TestInvalidInput(t *testing.T) {
	mem := store.NewMemStore()
	h := newTestServer(t, mem, time.Second)

	for _, target := range []string{"/get/%FF", "/set/%FF/v", "/set/k/%C3%28"} {
		method := http.MethodGet
		if strings.HasPrefix(target, "/set") {
			method = http.MethodPost
		}
		code, body := do(t, h, method, target)
		assert.Equal(t, http.StatusBadRequest, code, target)
		assert.Contains(t, body["detail"], "invalid input", target)
	}

	keys, err := mem.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRouting(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)

	code, body := do(t, h, http.MethodGet, "/get/")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not Found", body["detail"])

	code, _ = do(t, h, http.MethodPost, "/set/k/")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, h, http.MethodGet, "/set/k/v")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "Method Not Allowed", body["detail"])

	code, _ = do(t, h, http.MethodPost, "/get-all")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestStoreUnavailable(t *testing.T) {
	srv := miniredis.RunT(t)
	rs := store.NewRedisStore(store.RedisOptions{Addr: srv.Addr(), DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { rs.Close() })
	h := newTestServer(t, rs, time.Second)
	srv.Close()

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/get-all"},
		{http.MethodPost, "/set/k/v"},
		{http.MethodGet, "/get/k"},
	} {
		code, body := do(t, h, tc.method, tc.target)
		assert.Equal(t, http.StatusServiceUnavailable, code, tc.target)
		assert.Equal(t, "Store unavailable", body["detail"], tc.target)
	}

	code, body := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body["status"])
}

type hangingStore struct{}

func (hangingStore) Keys(ctx context.Context) ([]string, error) {
	<-ctx.Done()
	return nil, kv.Unavailable("keys", ctx.Err())
}

func (hangingStore) Get(ctx context.Context, _ string) (string, bool, error) {
	<-ctx.Done()
	return "", false, kv.Unavailable("get", ctx.Err())
}

func (hangingStore) Set(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return kv.Unavailable("set", ctx.Err())
}

func TestStoreTimeout(t *testing.T) {
	h := newTestServer(t, hangingStore{}, 20*time.Millisecond)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/get-all"},
		{http.MethodPost, "/set/k/v"},
		{http.MethodGet, "/get/k"},
	} {
		code, body := do(t, h, tc.method, tc.target)
		assert.Equal(t, http.StatusGatewayTimeout, code, tc.target)
		assert.Equal(t, "Store timed out", body["detail"], tc.target)
	}
}

func TestRedisBackedEndToEnd(t *testing.T) {
	srv := miniredis.RunT(t)
	require.NoError(t, srv.Set("preexisting", "yes"))
	rs := store.NewRedisStore(store.RedisOptions{Addr: srv.Addr()})
	t.Cleanup(func() { rs.Close() })
	h := newTestServer(t, rs, time.Second)

	code, _ := do(t, h, http.MethodPost, "/set/a/1")
	require.Equal(t, http.StatusOK, code)

	_, body := do(t, h, http.MethodGet, "/get-all")
	assert.Equal(t, map[string]any{"keys_values": map[string]any{"a": "1", "preexisting": "yes"}}, body)

	code, body = do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestConcurrentSetsLastWriteWins(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)

	var wg sync.WaitGroup
	for _, v := range []string{"x", "y", "z"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/set/race/"+v, nil))
		}()
	}
	wg.Wait()

	code, body := do(t, h, http.MethodGet, "/get/race")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, []any{"x", "y", "z"}, body["value"])
}

func TestDebugStats(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)
	do(t, h, http.MethodPost, "/set/a/1")
	do(t, h, http.MethodGet, "/get/a")

	code, body := do(t, h, http.MethodGet, "/debug/stats")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "test", body["backend"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, store.NewMemStore(), time.Second)
	do(t, h, http.MethodGet, "/get/a")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pyazgate_http_requests_total")
}

func TestPanicRecovered(t *testing.T) {
	h := NewServer(gateway.New(nil, time.Second), nil).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get/a", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
