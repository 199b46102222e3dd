// Package health serves the liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// ReadinessReporter reports whether the restriction catalogue is loaded
// and how many polygons it holds.
type ReadinessReporter interface {
	Ready() bool
	Len() int
}

func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status       string `json:"status"`
			Restrictions int    `json:"restrictions,omitempty"`
		}
		ready := rr.Ready()
		out := resp{Status: "not_ready"}
		if ready {
			out.Status = "ready"
			out.Restrictions = rr.Len()
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
