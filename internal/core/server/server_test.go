package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type readyFlag bool

func (r readyFlag) Ready() bool { return bool(r) }
func (r readyFlag) Len() int    { return 3 }

func TestNewRouter_ProbesAndMountedRoutes(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(l, readyFlag(false), func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })
	})

	cases := []struct {
		path string
		code int
		body string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusServiceUnavailable, "not_ready"},
		{"/ping", http.StatusOK, "pong"},
		{"/metrics", http.StatusOK, "go_goroutines"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.code || !strings.Contains(rr.Body.String(), tc.body) {
			t.Fatalf("%s: code=%d body=%q", tc.path, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("%s: missing CORS header", tc.path)
		}
	}
}
