package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/observability"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_DrawingMetrics_CustomRegistry_Smoke(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test"}})
	p.Register(observability.Collectors()...)

	observability.ObserveTransition("commit")
	observability.ObserveRejection("vertex_outside")
	observability.ObserveStorageOp("set", nil, 0.002)
	observability.ObserveCatalogueFetch("ok")
	observability.ObserveDrawnArea(12.5)
	observability.ObserveRefreshEvent("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, s := range []string{
		`drawn_area_hectares_bucket`,
		`storage_operation_duration_seconds_count`,
	} {
		if !strings.Contains(body, s) {
			t.Fatalf("expected metrics to contain %q;\n---\n%s", s, body)
		}
	}

	assertHasMetricLine(t, body, "session_transitions_total", `op="commit"`)
	assertHasMetricLine(t, body, "session_rejections_total", `kind="vertex_outside"`)
	assertHasMetricLine(t, body, "storage_op_total", `op="set"`, `result="ok"`)
	assertHasMetricLine(t, body, "catalogue_fetch_total", `outcome="ok"`)
	assertHasMetricLine(t, body, "catalogue_refresh_events_total", `outcome="ok"`)
	assertHasMetricLine(t, body, "app_build_info", `version="test"`)
}
