package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRecalculation(t *testing.T) {
	m := New()

	m.ObserveRecalculation("attendance.recorded", 5*time.Millisecond, 12, 2, 1, nil)
	m.ObserveRecalculation("manual", time.Millisecond, 0, 0, 0, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recalculations.WithLabelValues("attendance.recorded", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recalculations.WithLabelValues("manual", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.rankedStudents))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.orphanReferences))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scoreAnomalies))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.EventPublished("quiz.submitted")
	m.SetBreakerOpen("ranking-cache", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `portal_events_published_total{event_type="quiz.submitted"} 1`)
	assert.Contains(t, body, `portal_circuit_breaker_open{name="ranking-cache"} 1`)
}
