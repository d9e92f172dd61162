package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// Appointment is a booked block of time owned by one resource.
type Appointment struct {
	ID         int64         `db:"id" json:"id"`
	ResourceID int64         `db:"resource_id" json:"resource_id"`
	ClientID   *int64        `db:"client_id" json:"client_id,omitempty"`
	Date       caldate.Date  `db:"date" json:"date"`
	StartTime  caldate.Clock `db:"start_time" json:"start_time"`
	EndTime    caldate.Clock `db:"end_time" json:"end_time"`
	Title      string        `db:"title" json:"title"`
	ClientName string        `db:"client_name" json:"client_name"`
	ColorTag   *string       `db:"color_tag" json:"color_tag,omitempty"`
	Notes      *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// DurationMinutes returns end minus start; non-positive values have no layout.
func (a Appointment) DurationMinutes() int {
	return a.EndTime.Minutes() - a.StartTime.Minutes()
}

// Record converts the appointment back into its inbound shape.
func (a Appointment) Record() AppointmentRecord {
	id, resourceID := a.ID, a.ResourceID
	date, start, end := a.Date, a.StartTime, a.EndTime
	return AppointmentRecord{
		ID:         &id,
		ResourceID: &resourceID,
		ClientID:   a.ClientID,
		Date:       &date,
		StartTime:  &start,
		EndTime:    &end,
		Title:      a.Title,
		ClientName: a.ClientName,
		ColorTag:   a.ColorTag,
		Notes:      a.Notes,
	}
}

// AppointmentRecord is an appointment as received from a data store, before
// its required fields have been checked.
type AppointmentRecord struct {
	ID         *int64         `json:"id"`
	ResourceID *int64         `json:"resource_id"`
	ClientID   *int64         `json:"client_id,omitempty"`
	Date       *caldate.Date  `json:"date"`
	StartTime  *caldate.Clock `json:"start_time"`
	EndTime    *caldate.Clock `json:"end_time"`
	Title      string         `json:"title"`
	ClientName string         `json:"client_name"`
	ColorTag   *string        `json:"color_tag,omitempty"`
	Notes      *string        `json:"notes,omitempty"`
}

// Normalize returns the canonical appointment or a MalformedRecord error
// naming every missing field.
func (r AppointmentRecord) Normalize() (Appointment, error) {
	var missing []string
	if r.ID == nil || *r.ID <= 0 {
		missing = append(missing, "id")
	}
	if r.ResourceID == nil {
		missing = append(missing, "resource_id")
	}
	if r.Date == nil || r.Date.IsZero() {
		missing = append(missing, "date")
	}
	if r.StartTime == nil {
		missing = append(missing, "start_time")
	}
	if r.EndTime == nil {
		missing = append(missing, "end_time")
	}
	if len(missing) > 0 {
		label := "?"
		if r.ID != nil {
			label = strconv.FormatInt(*r.ID, 10)
		}
		return Appointment{}, appErrors.Malformed("appointment %s: missing %s", label, strings.Join(missing, ", "))
	}
	return Appointment{
		ID:         *r.ID,
		ResourceID: *r.ResourceID,
		ClientID:   r.ClientID,
		Date:       *r.Date,
		StartTime:  *r.StartTime,
		EndTime:    *r.EndTime,
		Title:      r.Title,
		ClientName: r.ClientName,
		ColorTag:   r.ColorTag,
		Notes:      r.Notes,
	}, nil
}

// AppointmentFilter narrows appointment listings. From and To are inclusive.
type AppointmentFilter struct {
	ResourceIDs []int64
	ClientID    *int64
	From        *caldate.Date
	To          *caldate.Date
}

// AppointmentInput carries the fields of a new appointment.
type AppointmentInput struct {
	ResourceID int64         `json:"resource_id" validate:"required,gt=0"`
	ClientID   *int64        `json:"client_id,omitempty"`
	Date       caldate.Date  `json:"date"`
	StartTime  caldate.Clock `json:"start_time"`
	EndTime    caldate.Clock `json:"end_time"`
	Title      string        `json:"title" validate:"required,max=200"`
	ClientName string        `json:"client_name" validate:"max=200"`
	ColorTag   *string       `json:"color_tag,omitempty" validate:"omitempty,max=32"`
	Notes      *string       `json:"notes,omitempty"`
}

// AppointmentPatch carries a partial update; nil fields are left untouched.
type AppointmentPatch struct {
	ResourceID *int64         `json:"resource_id,omitempty" validate:"omitempty,gt=0"`
	ClientID   *int64         `json:"client_id,omitempty"`
	Date       *caldate.Date  `json:"date,omitempty"`
	StartTime  *caldate.Clock `json:"start_time,omitempty"`
	EndTime    *caldate.Clock `json:"end_time,omitempty"`
	Title      *string        `json:"title,omitempty" validate:"omitempty,max=200"`
	ClientName *string        `json:"client_name,omitempty" validate:"omitempty,max=200"`
	ColorTag   *string        `json:"color_tag,omitempty" validate:"omitempty,max=32"`
	Notes      *string        `json:"notes,omitempty"`
}

// Apply copies the set fields of p onto a.
func (p AppointmentPatch) Apply(a *Appointment) {
	if p.ResourceID != nil {
		a.ResourceID = *p.ResourceID
	}
	if p.ClientID != nil {
		a.ClientID = p.ClientID
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.StartTime != nil {
		a.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		a.EndTime = *p.EndTime
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.ClientName != nil {
		a.ClientName = *p.ClientName
	}
	if p.ColorTag != nil {
		a.ColorTag = p.ColorTag
	}
	if p.Notes != nil {
		a.Notes = p.Notes
	}
}

// AppointmentSeriesInput creates one appointment per RRULE occurrence.
type AppointmentSeriesInput struct {
	AppointmentInput
	RRule string `json:"rrule" validate:"required"`
}
