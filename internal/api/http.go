package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/felixge/httpsnoop"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/heysubinoy/pyazgate/internal/gateway"
	"github.com/heysubinoy/pyazgate/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pyazgate",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route and status code.",
}, []string{"route", "code"})

// Server exposes the key-value façade over HTTP.
type Server struct {
	Gateway *gateway.Adapter
	// Stats, when set, is reported on /debug/stats.
	Stats *store.InstrumentedStore
	// RequestLogging logs every request with its status and duration.
	RequestLogging bool
}

// NewServer creates a new HTTP server over the given adapter.
func NewServer(gw *gateway.Adapter, stats *store.InstrumentedStore) *Server {
	return &Server{
		Gateway: gw,
		Stats:   stats,
	}
}

// Handler returns a router with every endpoint and middleware installed.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	// Match on the escaped path and keep it uncleaned so keys and values
	// such as "a%2Fb" or ".." reach the handlers verbatim.
	r.UseEncodedPath()
	r.SkipClean(true)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	// Catch panics and return 500s
	r.Use(gorillaHandlers.RecoveryHandler(
		gorillaHandlers.PrintRecoveryStack(true),
		gorillaHandlers.RecoveryLogger(log.StandardLogger()),
	))
	r.Use(s.instrument)

	s.RegisterRoutes(r)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	if s.Stats != nil {
		r.Handle("/debug/stats", MetricsHandler(s.Stats)).Methods(http.MethodGet)
	}
	return r
}

// RegisterRoutes registers the key-value handlers on the given router.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/get-all", s.handleGetAll).Methods(http.MethodGet)
	r.HandleFunc("/set/{key}/{value}", s.handleSet).Methods(http.MethodPost)
	r.HandleFunc("/get/{key}", s.handleGet).Methods(http.MethodGet)
}

// handleGetAll handles GET /get-all.
// Returns every key with its value; an empty store yields an empty object.
func (s *Server) handleGetAll(w http.ResponseWriter, r *http.Request) {
	snap := s.Gateway.List(r.Context())
	if snap.Outcome != gateway.OK {
		writeUnavailable(w, snap.Err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		KeysValues map[string]string `json:"keys_values"`
	}{snap.Entries})
}

// handleSet handles POST /set/{key}/{value}.
// The value is stored verbatim, replacing any previous one.
func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSet(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.Gateway.Write(r.Context(), req.Key, req.Value)
	if res.Outcome != gateway.OK {
		writeUnavailable(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{fmt.Sprintf("Key '%s' set with value '%s'", req.Key, req.Value)})
}

// handleGet handles GET /get/{key}.
// Returns 404 when the key does not exist.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGet(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.Gateway.Read(r.Context(), req.Key)
	switch res.Outcome {
	case gateway.OK:
		writeJSON(w, http.StatusOK, struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}{req.Key, res.Value})
	case gateway.Absent:
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Key '%s' not found", req.Key))
	default:
		writeUnavailable(w, res.Err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.Gateway.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// instrument counts requests per route and optionally logs them.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		httpRequests.WithLabelValues(route, fmt.Sprint(m.Code)).Inc()

		if s.RequestLogging {
			log.WithFields(log.Fields{
				"duration": fmt.Sprintf("%dms", m.Duration.Milliseconds()),
				"status":   m.Code,
				"method":   r.Method,
				"path":     r.URL.EscapedPath(),
			}).Info("request")
		}
	})
}

// writeUnavailable maps a store failure to a 5xx. The cause is logged by
// the adapter and not echoed to the caller.
func writeUnavailable(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeDetail(w, http.StatusGatewayTimeout, "Store timed out")
		return
	}
	writeDetail(w, http.StatusServiceUnavailable, "Store unavailable")
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, struct {
		Detail string `json:"detail"`
	}{detail})
}

// writeJSON encodes v without HTML escaping so values round-trip
// byte for byte.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("encoding response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
