package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/agenda-api/internal/models"
)

const appointmentColumns = "id, resource_id, client_id, date, start_time, end_time, title, client_name, color_tag, notes, created_at, updated_at"

// AppointmentRepository persists appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// List returns appointments matching filter ordered by date, start time,
// resource and id.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	base := "FROM appointments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if len(filter.ResourceIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("resource_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ResourceIDs))
	}
	if filter.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, *filter.ClientID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY date ASC, start_time ASC, resource_id ASC, id ASC", appointmentColumns, base)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id int64) (*models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE id = $1", appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &appt, nil
}

const insertAppointment = `INSERT INTO appointments (resource_id, client_id, date, start_time, end_time, title, client_name, color_tag, notes, created_at, updated_at)
VALUES (:resource_id, :client_id, :date, :start_time, :end_time, :title, :client_name, :color_tag, :notes, :created_at, :updated_at) RETURNING id`

// Create stores an appointment and fills its generated id.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	return insertAppointmentRow(ctx, r.db, appt)
}

// CreateMany stores a batch of appointments in one transaction.
func (r *AppointmentRepository) CreateMany(ctx context.Context, appts []models.Appointment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin appointment batch: %w", err)
	}
	for i := range appts {
		if err := insertAppointmentRow(ctx, tx, &appts[i]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit appointment batch: %w", err)
	}
	return nil
}

func insertAppointmentRow(ctx context.Context, q sqlx.ExtContext, appt *models.Appointment) error {
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	rows, err := sqlx.NamedQueryContext(ctx, q, insertAppointment, appt)
	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&appt.ID); err != nil {
			return fmt.Errorf("scan appointment id: %w", err)
		}
	}
	return rows.Err()
}

// Update overwrites the mutable columns of an appointment.
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments SET resource_id = :resource_id, client_id = :client_id, date = :date, start_time = :start_time, end_time = :end_time,
title = :title, client_name = :client_name, color_tag = :color_tag, notes = :notes, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, appt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an appointment. A missing row yields sql.ErrNoRows.
func (r *AppointmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return expectAffected(res)
}
