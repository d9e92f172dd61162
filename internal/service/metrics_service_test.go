package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/schedule/grid", 200, 20*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveGridBuild(models.GranularityWeek, time.Millisecond)
	m.RecordStaleResponse("appointments")
	m.RecordDroppedRecords("appointments", 3)
	m.RecordDroppedRecords("appointments", 0)
	m.RecordExportJob(models.ExportFormatICS, models.ExportStatusFinished)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(1), snap.GridsBuilt)
	assert.Equal(t, uint64(1), snap.StaleResponsesDiscarded)
	assert.Equal(t, uint64(3), snap.DroppedRecords)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "stale_responses_discarded_total"))
	assert.True(t, strings.Contains(body, `export_jobs_total{format="ics",status="FINISHED"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordStaleResponse("resources")
	m.ObserveGridBuild(models.GranularityDay, time.Millisecond)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
