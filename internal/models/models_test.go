package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

func int64Ptr(v int64) *int64 { return &v }

func TestAppointmentRecordNormalize(t *testing.T) {
	date := caldate.MustParse("2024-05-06")
	start := caldate.MustParseClock("09:00")
	end := caldate.MustParseClock("10:00")

	appt, err := AppointmentRecord{
		ID: int64Ptr(1), ResourceID: int64Ptr(2), Date: &date, StartTime: &start, EndTime: &end,
		Title: "Cut", ClientName: "Ana",
	}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, int64(1), appt.ID)
	assert.Equal(t, 60, appt.DurationMinutes())

	_, err = AppointmentRecord{ID: int64Ptr(3), ResourceID: int64Ptr(2), Date: &date, StartTime: &start}.Normalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMalformedRecord))
	assert.Contains(t, err.Error(), "end_time")
}

func TestAppointmentPatchApply(t *testing.T) {
	appt := Appointment{ID: 1, ResourceID: 2, Title: "Cut", StartTime: caldate.NewClock(9, 0), EndTime: caldate.NewClock(10, 0)}
	newStart := caldate.NewClock(9, 30)
	title := "Colour"
	AppointmentPatch{StartTime: &newStart, Title: &title}.Apply(&appt)
	assert.Equal(t, "09:30", appt.StartTime.String())
	assert.Equal(t, "10:00", appt.EndTime.String())
	assert.Equal(t, "Colour", appt.Title)
	assert.Equal(t, int64(2), appt.ResourceID)
}

func TestParseResourceSelection(t *testing.T) {
	sel, err := ParseResourceSelection("all")
	require.NoError(t, err)
	assert.True(t, sel.IsAll())

	sel, err = ParseResourceSelection("7")
	require.NoError(t, err)
	assert.Equal(t, "7", sel.String())

	_, err = ParseResourceSelection("-1")
	assert.Error(t, err)
}

func TestSessionDefaultSelection(t *testing.T) {
	staff := Session{UserID: "u1", Role: RoleStaff, ResourceID: int64Ptr(4)}
	assert.Equal(t, SingleResource(4), staff.DefaultSelection())
	assert.False(t, staff.CanEdit())

	admin := SessionFromClaims(&JWTClaims{UserID: "u2", Role: RoleAdmin})
	assert.True(t, admin.DefaultSelection().IsAll())
	assert.True(t, admin.CanEdit())
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("", GranularityWeek)
	require.NoError(t, err)
	assert.Equal(t, GranularityWeek, g)
	g, err = ParseGranularity("Daily", GranularityWeek)
	require.NoError(t, err)
	assert.Equal(t, 1, g.SpanDays())
	_, err = ParseGranularity("month", GranularityWeek)
	assert.Error(t, err)
}
