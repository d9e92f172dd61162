package service

import (
	"context"

	"github.com/noah-isme/agenda-api/internal/models"
)

// LocalScheduleStore serves a schedule view straight from the in-process
// services.
type LocalScheduleStore struct {
	resources    *ResourceService
	appointments *AppointmentService
}

// NewLocalScheduleStore wires the store to its services.
func NewLocalScheduleStore(resources *ResourceService, appointments *AppointmentService) *LocalScheduleStore {
	return &LocalScheduleStore{resources: resources, appointments: appointments}
}

// ListResources returns the active resources.
func (s *LocalScheduleStore) ListResources(ctx context.Context) ([]models.Resource, error) {
	return s.resources.List(ctx, models.ResourceFilter{})
}

// ListAppointments returns appointments as inbound records.
func (s *LocalScheduleStore) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.AppointmentRecord, error) {
	appts, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	records := make([]models.AppointmentRecord, len(appts))
	for i, appt := range appts {
		records[i] = appt.Record()
	}
	return records, nil
}

// CreateAppointment stores a new appointment.
func (s *LocalScheduleStore) CreateAppointment(ctx context.Context, input models.AppointmentInput) (*models.Appointment, error) {
	return s.appointments.Create(ctx, input)
}

// UpdateAppointment applies a partial change.
func (s *LocalScheduleStore) UpdateAppointment(ctx context.Context, id int64, patch models.AppointmentPatch) (*models.Appointment, error) {
	return s.appointments.Update(ctx, id, patch)
}

// DeleteAppointment removes an appointment.
func (s *LocalScheduleStore) DeleteAppointment(ctx context.Context, id int64) error {
	return s.appointments.Delete(ctx, id)
}
