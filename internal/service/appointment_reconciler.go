package service

import (
	"sort"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// MergeResult reports what a merge did with its batch.
type MergeResult struct {
	Inserted int
	Replaced int
	Dropped  int
	Errors   []error
}

// AppointmentReconciler owns the canonical appointment collection of one
// view, keyed by appointment id. It is not safe for concurrent use; the
// owning controller serialises access.
type AppointmentReconciler struct {
	items   map[int64]models.Appointment
	dropped int
}

// NewAppointmentReconciler returns an empty collection.
func NewAppointmentReconciler() *AppointmentReconciler {
	return &AppointmentReconciler{items: make(map[int64]models.Appointment)}
}

// Merge replaces or inserts every well-formed record. Entries missing from
// the batch are kept. Malformed records are skipped and counted.
func (r *AppointmentReconciler) Merge(records []models.AppointmentRecord) MergeResult {
	var result MergeResult
	for _, record := range records {
		appt, err := record.Normalize()
		if err != nil {
			result.Dropped++
			result.Errors = append(result.Errors, err)
			continue
		}
		if r.put(appt) {
			result.Replaced++
		} else {
			result.Inserted++
		}
	}
	r.dropped += result.Dropped
	return result
}

// MergeAppointments merges already normalised appointments.
func (r *AppointmentReconciler) MergeAppointments(appts []models.Appointment) MergeResult {
	records := make([]models.AppointmentRecord, len(appts))
	for i, appt := range appts {
		records[i] = appt.Record()
	}
	return r.Merge(records)
}

// UpsertOne applies a single saved appointment.
func (r *AppointmentReconciler) UpsertOne(appt models.Appointment) error {
	if appt.ID <= 0 {
		r.dropped++
		return appErrors.Malformed("appointment: missing id")
	}
	r.put(appt)
	return nil
}

// Remove drops id and reports whether it was present.
func (r *AppointmentReconciler) Remove(id int64) bool {
	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	return true
}

// Get returns the appointment with id.
func (r *AppointmentReconciler) Get(id int64) (models.Appointment, bool) {
	appt, ok := r.items[id]
	return appt, ok
}

// Len is the number of appointments held.
func (r *AppointmentReconciler) Len() int { return len(r.items) }

// Dropped is the cumulative count of rejected records.
func (r *AppointmentReconciler) Dropped() int { return r.dropped }

// Snapshot returns every appointment ordered by id.
func (r *AppointmentReconciler) Snapshot() []models.Appointment {
	out := make([]models.Appointment, 0, len(r.items))
	for _, appt := range r.items {
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// VisibleFor returns the appointments inside window and selection, ordered
// by date, start time, resource and id.
func (r *AppointmentReconciler) VisibleFor(window models.ViewWindow, selection models.ResourceSelection) []models.Appointment {
	start, end := WindowRange(window)
	out := make([]models.Appointment, 0)
	for _, appt := range r.items {
		if !appt.Date.Within(start, end) || !BelongsTo(appt, selection) {
			continue
		}
		out = append(out, appt)
	}
	SortAppointments(out)
	return out
}

// SortAppointments orders by date, start time, resource and id.
func SortAppointments(appts []models.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		a, b := appts[i], appts[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		return a.ID < b.ID
	})
}

func (r *AppointmentReconciler) put(appt models.Appointment) bool {
	_, existed := r.items[appt.ID]
	r.items[appt.ID] = appt
	return existed
}
