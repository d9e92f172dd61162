package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/response"
)

type appointmentService interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	Get(ctx context.Context, id int64) (*models.Appointment, error)
	Create(ctx context.Context, input models.AppointmentInput) (*models.Appointment, error)
	CreateSeries(ctx context.Context, input models.AppointmentSeriesInput) ([]models.Appointment, error)
	Update(ctx context.Context, id int64, patch models.AppointmentPatch) (*models.Appointment, error)
	Delete(ctx context.Context, id int64) error
}

// AppointmentHandler exposes appointment endpoints.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler constructs handler.
func NewAppointmentHandler(svc appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// List godoc
// @Summary List appointments
// @Tags Appointments
// @Produce json
// @Param resource_id query string false "Resource id or comma separated ids"
// @Param client_id query int false "Client id"
// @Param date query string false "Single day (YYYY-MM-DD)"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	filter, err := appointmentFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	appts, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, nil, map[string]interface{}{"count": len(appts)})
}

// Get godoc
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	appt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Create godoc
// @Summary Create appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body models.AppointmentInput true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var input models.AppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	appt, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// CreateSeries godoc
// @Summary Create recurring appointments
// @Description Expands an RRULE from the given date and start time into individual appointments
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body models.AppointmentSeriesInput true "Series payload"
// @Success 201 {object} response.Envelope
// @Router /appointments/series [post]
func (h *AppointmentHandler) CreateSeries(c *gin.Context) {
	var input models.AppointmentSeriesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	appts, err := h.service.CreateSeries(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, appts, nil, map[string]interface{}{"count": len(appts)})
}

// Update godoc
// @Summary Update appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Param payload body models.AppointmentPatch true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [patch]
func (h *AppointmentHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var patch models.AppointmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	appt, err := h.service.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Delete godoc
// @Summary Delete appointment
// @Tags Appointments
// @Param id path int true "Appointment ID"
// @Success 204 {object} response.Envelope
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func appointmentFilterFromQuery(c *gin.Context) (models.AppointmentFilter, error) {
	var filter models.AppointmentFilter
	if raw := c.Query("resource_id"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				return filter, appErrors.Clone(appErrors.ErrValidation, "resource_id must be positive integers")
			}
			filter.ResourceIDs = append(filter.ResourceIDs, id)
		}
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "client_id must be a positive integer")
		}
		filter.ClientID = &id
	}

	date, err := dateQuery(c, "date")
	if err != nil {
		return filter, err
	}
	if !date.IsZero() {
		filter.From, filter.To = &date, &date
		return filter, nil
	}

	from, err := dateQuery(c, "from")
	if err != nil {
		return filter, err
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		return filter, err
	}
	if !from.IsZero() {
		filter.From = &from
	}
	if !to.IsZero() {
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return filter, nil
}
