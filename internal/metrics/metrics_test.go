package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/router"
)

func TestRecorder_ObserveResult(t *testing.T) {
	r := NewRecorder()

	r.ObserveResult(router.ActivationResult{PathwayID: "sepsis", Status: router.StatusActive, Activated: true, Escalation: pathway.EscalationCritical})
	r.ObserveResult(router.ActivationResult{PathwayID: "sepsis", Status: router.StatusNotActivated, Escalation: pathway.EscalationNone})
	r.ObserveResult(router.ActivationResult{PathwayID: "croup", Status: router.StatusError, ErrorKind: "traversal", Escalation: pathway.EscalationNone})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.results.WithLabelValues("sepsis", "active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.results.WithLabelValues("sepsis", "not_activated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.escalations.WithLabelValues("sepsis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("croup", "traversal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.escalations.WithLabelValues("croup")))
}

func TestRecorder_ObserveRouteAndMessage(t *testing.T) {
	r := NewRecorder()

	r.ObserveRoute(3*time.Millisecond, 2)
	r.ObserveMessage(true)
	r.ObserveMessage(false)
	r.ObserveMessage(false)

	assert.Equal(t, 1, testutil.CollectAndCount(r.routeDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.workerMessages.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.workerMessages.WithLabelValues("error")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveResult(router.ActivationResult{PathwayID: "uti", Status: router.StatusActive, Activated: true})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pathway_router_pathway_results_total{pathway="uti",status="active"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewRecorder_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewRecorder()
		NewRecorder()
	}, "each recorder owns its registry")
}
