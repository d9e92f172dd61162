package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

type gridServiceStub struct {
	window    models.ViewWindow
	selection models.ResourceSelection
	steps     int
	hit       bool
	err       error
}

func (g *gridServiceStub) Today() caldate.Date { return caldate.MustParse("2024-05-08") }

func (g *gridServiceStub) Window(anchor caldate.Date, granularity models.Granularity, steps int) models.WindowInfo {
	g.window = models.ViewWindow{AnchorDate: anchor, Granularity: granularity}
	g.steps = steps
	return models.WindowInfo{Window: g.window, RangeStart: anchor, RangeEnd: anchor}
}

func (g *gridServiceStub) BuildCached(ctx context.Context, session models.Session, window models.ViewWindow, selection models.ResourceSelection) (*models.GridView, models.CacheStatus, error) {
	g.window, g.selection = window, selection
	status := models.CacheStatus{Key: "agenda:grid:test", Hit: g.hit, TTL: 30 * time.Second}
	if g.err != nil {
		return nil, status, g.err
	}
	grid := &models.GridView{Window: window, Selection: selection, RangeStart: window.AnchorDate, RangeEnd: window.AnchorDate}
	return grid, status, nil
}

type rendererStub struct {
	format models.ExportFormat
}

func (r *rendererStub) RenderNow(ctx context.Context, session models.Session, format models.ExportFormat, window models.ViewWindow, selection models.ResourceSelection) (*service.RenderedExport, error) {
	r.format = format
	return &service.RenderedExport{Data: []byte("%PDF-1.3"), Filename: "grid.pdf", ContentType: "application/pdf"}, nil
}

func newScheduleContext(target string, session models.Session) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Set(middleware.ContextSessionKey, session)
	return c, w
}

func TestScheduleHandlerGridDefaultsToSessionScope(t *testing.T) {
	grids := &gridServiceStub{hit: true}
	handler := NewScheduleHandler(grids, nil)
	own := int64(3)
	c, w := newScheduleContext("/schedule/grid?view=day", models.Session{UserID: "s1", Role: models.RoleStaff, ResourceID: &own})

	handler.Grid(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-05-08", grids.window.AnchorDate.String())
	assert.Equal(t, models.GranularityDay, grids.window.Granularity)
	assert.Equal(t, models.SingleResource(3), grids.selection)

	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body.Meta["cache_hit"])
	assert.Equal(t, "agenda:grid:test", body.Meta["cache_key"])
	assert.Equal(t, float64(30), body.Meta["cache_ttl_seconds"])
	assert.Equal(t, "2024-05-08", body.Meta["range_start"])
	assert.Equal(t, "HIT", w.Header().Get(middleware.CacheHeader))
}

func TestScheduleHandlerGridExplicitSelection(t *testing.T) {
	grids := &gridServiceStub{}
	handler := NewScheduleHandler(grids, nil)
	c, w := newScheduleContext("/schedule/grid?date=2024-05-06&resource=all", models.Session{UserID: "u1", Role: models.RoleAdmin})

	handler.Grid(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, grids.selection.IsAll())
	assert.Equal(t, models.GranularityWeek, grids.window.Granularity)
}

func TestScheduleHandlerGridRejectsBadQuery(t *testing.T) {
	for _, target := range []string{
		"/schedule/grid?view=month",
		"/schedule/grid?date=08-05-2024",
		"/schedule/grid?resource=-1",
	} {
		handler := NewScheduleHandler(&gridServiceStub{}, nil)
		c, w := newScheduleContext(target, models.Session{Role: models.RoleAdmin})
		handler.Grid(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestScheduleHandlerGridFetchFailure(t *testing.T) {
	grids := &gridServiceStub{err: appErrors.FetchFailed(errors.New("timeout"), "failed to load appointments")}
	handler := NewScheduleHandler(grids, nil)
	c, w := newScheduleContext("/schedule/grid", models.Session{Role: models.RoleAdmin})

	handler.Grid(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestScheduleHandlerWindowStep(t *testing.T) {
	grids := &gridServiceStub{}
	handler := NewScheduleHandler(grids, nil)
	c, w := newScheduleContext("/schedule/window?date=2024-05-06&view=week&step=-1", models.Session{Role: models.RoleAdmin})

	handler.Window(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -1, grids.steps)

	c, w = newScheduleContext("/schedule/window?step=x", models.Session{Role: models.RoleAdmin})
	handler.Window(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerGridPDF(t *testing.T) {
	renderer := &rendererStub{}
	handler := NewScheduleHandler(&gridServiceStub{}, renderer)
	c, w := newScheduleContext("/schedule/grid/pdf?view=week", models.Session{Role: models.RoleScheduler})

	handler.GridPDF(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ExportFormatPDF, renderer.format)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "grid.pdf")
}

func TestScheduleHandlerRequiresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedule/grid", nil)

	NewScheduleHandler(&gridServiceStub{}, nil).Grid(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
