package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/xavierca1/leadsync/internal/entity"
)

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/runs/{id}", "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/runs/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/runs/def", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/runs/{id}", "404"))
	assert.Equal(t, before+2, after)
}

func TestRecordCycle(t *testing.T) {
	run := entity.NewSyncRunResult("s", []int64{0})
	run.Processed, run.New, run.Removed, run.Unchanged = 10, 3, 1, 7
	run.Duration = 2 * time.Second

	before := testutil.ToFloat64(syncCyclesTotal.WithLabelValues("SUCCESS"))
	RecordCycle(run)

	assert.Equal(t, before+1, testutil.ToFloat64(syncCyclesTotal.WithLabelValues("SUCCESS")))
	assert.Equal(t, float64(3), testutil.ToFloat64(syncLastChanges.WithLabelValues("new")))
	assert.Equal(t, float64(7), testutil.ToFloat64(syncLastChanges.WithLabelValues("unchanged")))

	failed := entity.NewSyncRunResult("s", nil)
	failed.Status = entity.SyncStatusError
	failed.New = 99
	RecordCycle(failed)
	assert.Equal(t, float64(3), testutil.ToFloat64(syncLastChanges.WithLabelValues("new")), "failed cycles do not move the gauges")
}

func TestRecordReconciliation(t *testing.T) {
	before := testutil.ToFloat64(crmReconciliationsTotal.WithLabelValues("SKIPPED"))
	RecordReconciliation(entity.ProcessingSkipped)
	assert.Equal(t, before+1, testutil.ToFloat64(crmReconciliationsTotal.WithLabelValues("SKIPPED")))
}
