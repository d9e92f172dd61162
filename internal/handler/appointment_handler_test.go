package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

type appointmentServiceMock struct {
	filter    models.AppointmentFilter
	patch     models.AppointmentPatch
	series    models.AppointmentSeriesInput
	deleteErr error
}

func (m *appointmentServiceMock) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	m.filter = filter
	return []models.Appointment{{ID: 1}}, nil
}

func (m *appointmentServiceMock) Get(ctx context.Context, id int64) (*models.Appointment, error) {
	return &models.Appointment{ID: id}, nil
}

func (m *appointmentServiceMock) Create(ctx context.Context, input models.AppointmentInput) (*models.Appointment, error) {
	return &models.Appointment{ID: 9, ResourceID: input.ResourceID}, nil
}

func (m *appointmentServiceMock) CreateSeries(ctx context.Context, input models.AppointmentSeriesInput) ([]models.Appointment, error) {
	m.series = input
	return []models.Appointment{{ID: 1}, {ID: 2}}, nil
}

func (m *appointmentServiceMock) Update(ctx context.Context, id int64, patch models.AppointmentPatch) (*models.Appointment, error) {
	m.patch = patch
	return &models.Appointment{ID: id}, nil
}

func (m *appointmentServiceMock) Delete(ctx context.Context, id int64) error {
	return m.deleteErr
}

func newJSONContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAppointmentHandlerListParsesFilters(t *testing.T) {
	svc := &appointmentServiceMock{}
	handler := NewAppointmentHandler(svc)

	c, w := newJSONContext(http.MethodGet, "/appointments?resource_id=1,2&from=2024-05-06&to=2024-05-12&client_id=4", "")
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{1, 2}, svc.filter.ResourceIDs)
	assert.Equal(t, "2024-05-06", svc.filter.From.String())
	assert.Equal(t, "2024-05-12", svc.filter.To.String())
	assert.Equal(t, int64(4), *svc.filter.ClientID)

	c, w = newJSONContext(http.MethodGet, "/appointments?date=2024-05-07", "")
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, *svc.filter.From, *svc.filter.To)
}

func TestAppointmentHandlerListRejectsBadRange(t *testing.T) {
	handler := NewAppointmentHandler(&appointmentServiceMock{})
	for _, target := range []string{
		"/appointments?from=2024-05-12&to=2024-05-06",
		"/appointments?resource_id=abc",
		"/appointments?date=yesterday",
	} {
		c, w := newJSONContext(http.MethodGet, target, "")
		handler.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestAppointmentHandlerPatch(t *testing.T) {
	svc := &appointmentServiceMock{}
	handler := NewAppointmentHandler(svc)
	c, w := newJSONContext(http.MethodPatch, "/appointments/5", `{"start_time":"10:30","end_time":"11:15"}`)
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.patch.StartTime)
	assert.Equal(t, caldate.NewClock(10, 30), *svc.patch.StartTime)
	assert.Nil(t, svc.patch.Date)
}

func TestAppointmentHandlerCreateSeries(t *testing.T) {
	svc := &appointmentServiceMock{}
	handler := NewAppointmentHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/appointments/series",
		`{"resource_id":1,"date":"2024-05-06","start_time":"09:00","end_time":"10:00","title":"Checkup","rrule":"FREQ=WEEKLY;COUNT=2"}`)

	handler.CreateSeries(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=2", svc.series.RRule)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestAppointmentHandlerDeleteErrors(t *testing.T) {
	handler := NewAppointmentHandler(&appointmentServiceMock{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "appointment not found")})

	c, w := newJSONContext(http.MethodDelete, "/appointments/abc", "")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newJSONContext(http.MethodDelete, "/appointments/3", "")
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
