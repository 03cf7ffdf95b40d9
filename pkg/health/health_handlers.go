package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the checks of one kind. General checks answer 200 while
// degraded; readiness and liveness answer 200 only when healthy.
func (hc *Checker) Handler(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := hc.Run(kind)
		code := http.StatusOK
		switch {
		case response.Status == StatusUnhealthy:
			code = http.StatusServiceUnavailable
		case response.Status == StatusDegraded && kind != General:
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}

// Mount serves the three kinds on mux under /health, /ready and /live.
func (hc *Checker) Mount(mux *http.ServeMux) {
	mux.Handle("/health", hc.Handler(General))
	mux.Handle("/ready", hc.Handler(Readiness))
	mux.Handle("/live", hc.Handler(Liveness))
}
