package api

import (
	"net/http"

	"github.com/heysubinoy/pyazgate/internal/store"
)

// MetricsHandler returns current store metrics as JSON.
// Prometheus series for the same counters are served on /metrics.
func MetricsHandler(instrumentedStore *store.InstrumentedStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := instrumentedStore.GetMetrics()

		response := map[string]interface{}{
			"backend": metrics.Backend,
			"operations": map[string]uint64{
				"keys": metrics.KeysCount,
				"get":  metrics.GetCount,
				"set":  metrics.SetCount,
			},
			"errors": metrics.ErrorCount,
			"avg_latency": map[string]string{
				"keys": metrics.KeysAvgLatency.String(),
				"get":  metrics.GetAvgLatency.String(),
				"set":  metrics.SetAvgLatency.String(),
			},
		}

		writeJSON(w, http.StatusOK, response)
	}
}
