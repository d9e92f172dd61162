package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

func testAppointment(id, resourceID int64, date, start, end string) models.Appointment {
	return models.Appointment{
		ID:         id,
		ResourceID: resourceID,
		Date:       caldate.MustParse(date),
		StartTime:  caldate.MustParseClock(start),
		EndTime:    caldate.MustParseClock(end),
		Title:      "Consultation",
		ClientName: "Client",
	}
}

func testRecord(id, resourceID int64, date, start, end string) models.AppointmentRecord {
	return testAppointment(id, resourceID, date, start, end).Record()
}

func weekOf(date string) models.ViewWindow {
	return models.ViewWindow{AnchorDate: caldate.MustParse(date), Granularity: models.GranularityWeek}
}

func TestMergeIsIdempotent(t *testing.T) {
	batch := []models.AppointmentRecord{
		testRecord(1, 1, "2024-05-06", "09:00", "10:00"),
		testRecord(2, 2, "2024-05-07", "11:00", "12:00"),
	}
	r := NewAppointmentReconciler()
	r.Merge([]models.AppointmentRecord{testRecord(9, 1, "2024-04-01", "08:00", "09:00")})

	first := r.Merge(batch)
	once := r.Snapshot()
	second := r.Merge(batch)

	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 2, second.Replaced)
	assert.Equal(t, once, r.Snapshot())
	assert.Equal(t, 3, r.Len())
}

func TestMergeRetainsEntriesMissingFromBatch(t *testing.T) {
	r := NewAppointmentReconciler()
	r.Merge([]models.AppointmentRecord{testRecord(1, 1, "2024-05-06", "09:00", "10:00")})
	r.Merge([]models.AppointmentRecord{testRecord(2, 2, "2024-05-06", "09:00", "10:00")})

	_, ok := r.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestMergeDropsMalformedRecords(t *testing.T) {
	missingEnd := testRecord(2, 1, "2024-05-06", "10:00", "11:00")
	missingEnd.EndTime = nil
	missingID := testRecord(3, 1, "2024-05-06", "12:00", "13:00")
	missingID.ID = nil

	r := NewAppointmentReconciler()
	result := r.Merge([]models.AppointmentRecord{
		testRecord(1, 1, "2024-05-06", "09:00", "10:00"),
		missingEnd,
		missingID,
		testRecord(4, 1, "2024-05-06", "14:00", "15:00"),
	})

	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 2, result.Dropped)
	require.Len(t, result.Errors, 2)
	assert.True(t, errors.Is(result.Errors[0], appErrors.ErrMalformedRecord))
	assert.Equal(t, 2, r.Len())
	_, ok := r.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 2, r.Dropped())
}

func TestUpsertOneReplacesInsteadOfDuplicating(t *testing.T) {
	r := NewAppointmentReconciler()
	r.Merge([]models.AppointmentRecord{testRecord(1, 1, "2024-05-06", "09:00", "10:00")})
	require.NoError(t, r.UpsertOne(testAppointment(1, 1, "2024-05-06", "09:30", "10:30")))

	visible := r.VisibleFor(weekOf("2024-05-06"), models.AllResources())
	require.Len(t, visible, 1)
	assert.Equal(t, "09:30", visible[0].StartTime.String())
	assert.Equal(t, "10:30", visible[0].EndTime.String())
}

func TestUpsertOneRejectsMissingID(t *testing.T) {
	r := NewAppointmentReconciler()
	err := r.UpsertOne(testAppointment(0, 1, "2024-05-06", "09:00", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrMalformedRecord))
	assert.Equal(t, 0, r.Len())
}

func TestRemoveAbsentIDIsNoop(t *testing.T) {
	r := NewAppointmentReconciler()
	r.Merge([]models.AppointmentRecord{testRecord(2, 1, "2024-05-06", "09:00", "10:00")})
	before := r.VisibleFor(weekOf("2024-05-06"), models.AllResources())

	assert.False(t, r.Remove(1))
	assert.Equal(t, before, r.VisibleFor(weekOf("2024-05-06"), models.AllResources()))

	assert.True(t, r.Remove(2))
	assert.Empty(t, r.VisibleFor(weekOf("2024-05-06"), models.AllResources()))
}

func TestVisibleForFiltersAndOrders(t *testing.T) {
	r := NewAppointmentReconciler()
	r.MergeAppointments([]models.Appointment{
		testAppointment(5, 2, "2024-05-07", "09:00", "10:00"),
		testAppointment(4, 1, "2024-05-07", "09:00", "10:00"),
		testAppointment(3, 1, "2024-05-06", "15:00", "16:00"),
		testAppointment(2, 1, "2024-05-13", "09:00", "10:00"),
		testAppointment(1, 1, "2024-05-05", "09:00", "10:00"),
	})

	visible := r.VisibleFor(weekOf("2024-05-09"), models.AllResources())
	ids := make([]int64, len(visible))
	for i, appt := range visible {
		ids[i] = appt.ID
	}
	assert.Equal(t, []int64{3, 4, 5}, ids)

	onlyTwo := r.VisibleFor(weekOf("2024-05-09"), models.SingleResource(2))
	require.Len(t, onlyTwo, 1)
	assert.Equal(t, int64(5), onlyTwo[0].ID)

	day := models.ViewWindow{AnchorDate: caldate.MustParse("2024-05-06"), Granularity: models.GranularityDay}
	require.Len(t, r.VisibleFor(day, models.AllResources()), 1)
}
