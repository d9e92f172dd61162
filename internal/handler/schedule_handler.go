package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/response"
)

type gridService interface {
	Today() caldate.Date
	Window(anchor caldate.Date, granularity models.Granularity, steps int) models.WindowInfo
	BuildCached(ctx context.Context, session models.Session, window models.ViewWindow, selection models.ResourceSelection) (*models.GridView, models.CacheStatus, error)
}

type gridRenderer interface {
	RenderNow(ctx context.Context, session models.Session, format models.ExportFormat, window models.ViewWindow, selection models.ResourceSelection) (*service.RenderedExport, error)
}

// ScheduleHandler serves the time grid views.
type ScheduleHandler struct {
	grids    gridService
	renderer gridRenderer
}

// NewScheduleHandler constructs handler. renderer may be nil when exports
// are disabled.
func NewScheduleHandler(grids gridService, renderer gridRenderer) *ScheduleHandler {
	return &ScheduleHandler{grids: grids, renderer: renderer}
}

// Window godoc
// @Summary Describe a view window
// @Description Resolves the date range of a day or week view and its neighbours
// @Tags Schedule
// @Produce json
// @Param date query string false "Anchor date (YYYY-MM-DD), defaults to today"
// @Param view query string false "day or week" default(week)
// @Param step query int false "Views to move from the anchor"
// @Success 200 {object} response.Envelope
// @Router /schedule/window [get]
func (h *ScheduleHandler) Window(c *gin.Context) {
	window, err := h.windowFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	step := 0
	if raw := c.Query("step"); raw != "" {
		step, err = strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "step must be an integer"))
			return
		}
	}
	response.JSON(c, http.StatusOK, h.grids.Window(window.AnchorDate, window.Granularity, step), nil)
}

// Grid godoc
// @Summary Laid out schedule grid
// @Description Returns slot labels, resource columns and positioned appointment blocks
// @Tags Schedule
// @Produce json
// @Param date query string false "Anchor date (YYYY-MM-DD), defaults to today"
// @Param view query string false "day or week" default(week)
// @Param resource query string false "Resource id or all"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /schedule/grid [get]
func (h *ScheduleHandler) Grid(c *gin.Context) {
	session, window, selection, err := h.scope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grid, status, err := h.grids.BuildCached(c.Request.Context(), session, window, selection)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheStatus(c, status)
	middleware.SetRange(c, grid.RangeStart, grid.RangeEnd)
	response.JSON(c, http.StatusOK, grid, nil, middleware.ExtractMeta(c))
}

// GridPDF godoc
// @Summary Schedule grid as PDF
// @Tags Schedule
// @Produce application/pdf
// @Param date query string false "Anchor date (YYYY-MM-DD), defaults to today"
// @Param view query string false "day or week" default(week)
// @Param resource query string false "Resource id or all"
// @Success 200 {file} binary
// @Router /schedule/grid/pdf [get]
func (h *ScheduleHandler) GridPDF(c *gin.Context) {
	if h.renderer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "pdf rendering disabled"))
		return
	}
	session, window, selection, err := h.scope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rendered, err := h.renderer.RenderNow(c.Request.Context(), session, models.ExportFormatPDF, window, selection)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Bytes(c, rendered.Filename, rendered.ContentType, rendered.Data)
}

func (h *ScheduleHandler) scope(c *gin.Context) (models.Session, models.ViewWindow, models.ResourceSelection, error) {
	session, err := sessionFromContext(c)
	if err != nil {
		return session, models.ViewWindow{}, models.ResourceSelection{}, err
	}
	window, err := h.windowFromQuery(c)
	if err != nil {
		return session, window, models.ResourceSelection{}, err
	}
	selection := session.DefaultSelection()
	if raw, ok := c.GetQuery("resource"); ok {
		selection, err = models.ParseResourceSelection(raw)
		if err != nil {
			return session, window, selection, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "resource must be an id or all")
		}
	}
	return session, window, selection, nil
}

func (h *ScheduleHandler) windowFromQuery(c *gin.Context) (models.ViewWindow, error) {
	granularity, err := models.ParseGranularity(c.Query("view"), models.GranularityWeek)
	if err != nil {
		return models.ViewWindow{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "view must be day or week")
	}
	anchor, err := dateQuery(c, "date")
	if err != nil {
		return models.ViewWindow{}, err
	}
	if anchor.IsZero() {
		anchor = h.grids.Today()
	}
	return models.ViewWindow{AnchorDate: anchor, Granularity: granularity}, nil
}
