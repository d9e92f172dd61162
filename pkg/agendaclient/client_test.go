package agendaclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL+"/api/v1", WithToken("tok"))
	require.NoError(t, err)
	return client
}

func TestListAppointmentsNormalisesAliases(t *testing.T) {
	var query string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/appointments", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		query = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"data":[
			{"id":1,"resource_id":2,"date":"2024-05-06","start_time":"09:00","end_time":"10:00","title":"Cut","client_name":"Ana"},
			{"id":"2","resourceId":3,"startTime":"2024-05-07T11:00:00Z","endTime":"2024-05-07T11:30:00Z","service":"Color","clientName":"Bia","colorTag":"#ff0000"},
			{"id":3,"resource":{"id":1},"day":"2024-05-08","start":"14:00","end":"15:00","client":{"name":"Caio"}},
			{"id":4,"resource_id":1,"date":"2024-05-08"}
		]}`)
	})

	from, to := caldate.MustParse("2024-05-06"), caldate.MustParse("2024-05-12")
	records, err := client.ListAppointments(context.Background(), models.AppointmentFilter{ResourceIDs: []int64{2, 3}, From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, "from=2024-05-06&resource_id=2%2C3&to=2024-05-12", query)
	require.Len(t, records, 4)

	first, err := records[0].Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Ana", first.ClientName)
	assert.Equal(t, caldate.NewClock(9, 0), first.StartTime)

	second, err := records[1].Normalize()
	require.NoError(t, err)
	assert.Equal(t, int64(3), second.ResourceID)
	assert.Equal(t, "2024-05-07", second.Date.String())
	assert.Equal(t, caldate.NewClock(11, 30), second.EndTime)
	assert.Equal(t, "Color", second.Title)
	assert.Equal(t, "#ff0000", *second.ColorTag)

	third, err := records[2].Normalize()
	require.NoError(t, err)
	assert.Equal(t, int64(1), third.ResourceID)
	assert.Equal(t, "Caio", third.ClientName)

	_, err = records[3].Normalize()
	assert.True(t, errors.Is(err, appErrors.ErrMalformedRecord))
}

func TestListAppointmentsKeepsNonObjectElementsAsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[42,{"id":1,"resource_id":2,"date":"2024-05-06","start_time":"09:00","end_time":"10:00"},"oops"]}`)
	})

	records, err := client.ListAppointments(context.Background(), models.AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	_, err = records[0].Normalize()
	assert.True(t, errors.Is(err, appErrors.ErrMalformedRecord))
	appt, err := records[1].Normalize()
	require.NoError(t, err)
	assert.Equal(t, int64(1), appt.ID)
	_, err = records[2].Normalize()
	assert.True(t, errors.Is(err, appErrors.ErrMalformedRecord))
}

func TestListResourcesAcceptsBarePayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Ana","color":"#00aa00"},{"id":2,"display_name":"Bruno","active":false}]`)
	})

	resources, err := client.ListResources(context.Background())
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "Ana", resources[0].DisplayName)
	assert.True(t, resources[0].Active)
	assert.False(t, resources[1].Active)
}

func TestStatusErrorsMapToFetchFailedAndNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":"NOT_FOUND","message":"appointment not found"}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	err := client.DeleteAppointment(context.Background(), 9)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Contains(t, err.Error(), "appointment not found")

	_, err = client.ListResources(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrFetchFailed))
}

func TestUndecodableBodyIsFetchFailed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>gateway</html>`)
	})
	_, err := client.ListAppointments(context.Background(), models.AppointmentFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrFetchFailed))
}

func TestTransportErrorIsFetchFailed(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client, err := New(server.URL)
	require.NoError(t, err)
	server.Close()

	_, err = client.ListResources(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrFetchFailed))
}

func TestLoginStoresTokenAndMutationsRoundTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_, _ = io.WriteString(w, `{"data":{"access_token":"fresh","refresh_token":"r"}}`)
		case "/api/v1/appointments":
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			var input models.AppointmentInput
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&input))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{
				"id": 11, "resource_id": input.ResourceID, "date": input.Date, "start_time": input.StartTime, "end_time": input.EndTime, "title": input.Title,
			}})
		case "/api/v1/appointments/11":
			assert.Equal(t, http.MethodPatch, r.Method)
			_, _ = io.WriteString(w, `{"data":{"id":11,"resource_id":1,"date":"2024-05-07","start_time":"10:00","end_time":"11:00"}}`)
		}
	})

	_, err := client.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fresh", client.Token())

	created, err := client.CreateAppointment(context.Background(), models.AppointmentInput{
		ResourceID: 1,
		Date:       caldate.MustParse("2024-05-06"),
		StartTime:  caldate.NewClock(9, 0),
		EndTime:    caldate.NewClock(10, 0),
		Title:      "Trim",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)

	date := caldate.MustParse("2024-05-07")
	moved, err := client.UpdateAppointment(context.Background(), 11, models.AppointmentPatch{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, date, moved.Date)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
}
