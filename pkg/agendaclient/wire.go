package agendaclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

// Field aliases accepted from older agenda backends. The first key present
// wins.
var (
	idKeys         = []string{"id", "appointment_id", "appointmentId"}
	resourceKeys   = []string{"resource_id", "resourceId", "resource", "staff_id", "staffId"}
	clientIDKeys   = []string{"client_id", "clientId"}
	dateKeys       = []string{"date", "day"}
	startKeys      = []string{"start_time", "startTime", "start"}
	endKeys        = []string{"end_time", "endTime", "end"}
	titleKeys      = []string{"title", "service"}
	clientKeys     = []string{"client_name", "clientName", "client"}
	colorKeys      = []string{"color_tag", "colorTag", "color"}
	notesKeys      = []string{"notes", "note"}
	displayKeys    = []string{"display_name", "displayName", "name"}
	activeKeys     = []string{"active", "enabled"}
	resourceColors = []string{"color", "colour"}
)

type fields map[string]json.RawMessage

func (f fields) raw(keys []string) (json.RawMessage, bool) {
	for _, key := range keys {
		if value, ok := f[key]; ok && string(value) != "null" {
			return value, true
		}
	}
	return nil, false
}

func (f fields) str(keys []string) (string, bool) {
	value, ok := f.raw(keys)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		return n.String(), true
	}
	// nested objects such as {"client": {"name": "..."}}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(value, &nested); err == nil {
		return fields(nested).str([]string{"name", "full_name", "fullName", "display_name", "title"})
	}
	return "", false
}

func (f fields) intID(keys []string) (*int64, bool) {
	value, ok := f.raw(keys)
	if !ok {
		return nil, false
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(value, &nested); err == nil {
		return fields(nested).intID([]string{"id"})
	}
	text := strings.Trim(string(value), `"`)
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func (f fields) optionalString(keys []string) *string {
	s, ok := f.str(keys)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// decodeRecord maps one appointment payload onto the canonical record.
// Fields that cannot be read are left nil for Normalize to report.
func decodeRecord(data json.RawMessage) (models.AppointmentRecord, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return models.AppointmentRecord{}, fmt.Errorf("decode appointment: %w", err)
	}

	var rec models.AppointmentRecord
	rec.ID, _ = f.intID(idKeys)
	rec.ResourceID, _ = f.intID(resourceKeys)
	rec.ClientID, _ = f.intID(clientIDKeys)
	rec.Title, _ = f.str(titleKeys)
	rec.ClientName, _ = f.str(clientKeys)
	rec.ColorTag = f.optionalString(colorKeys)
	rec.Notes = f.optionalString(notesKeys)

	if raw, ok := f.str(dateKeys); ok {
		if date, err := caldate.Parse(raw); err == nil {
			rec.Date = &date
		}
	}
	if raw, ok := f.str(startKeys); ok {
		if clock, err := caldate.ParseClock(raw); err == nil {
			rec.StartTime = &clock
		}
		// timestamps carry the day when no separate date field exists
		if rec.Date == nil && strings.Contains(raw, "T") {
			if date, err := caldate.Parse(raw); err == nil {
				rec.Date = &date
			}
		}
	}
	if raw, ok := f.str(endKeys); ok {
		if clock, err := caldate.ParseClock(raw); err == nil {
			rec.EndTime = &clock
		}
	}
	return rec, nil
}

func decodeResource(data json.RawMessage) (models.Resource, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return models.Resource{}, fmt.Errorf("decode resource: %w", err)
	}
	id, ok := f.intID(idKeys)
	if !ok {
		return models.Resource{}, fmt.Errorf("decode resource: missing id")
	}
	resource := models.Resource{ID: *id, Active: true}
	resource.DisplayName, _ = f.str(displayKeys)
	resource.Color = f.optionalString(resourceColors)
	resource.Email = f.optionalString([]string{"email"})
	resource.Phone = f.optionalString([]string{"phone"})
	if raw, ok := f.raw(activeKeys); ok {
		var active bool
		if err := json.Unmarshal(raw, &active); err == nil {
			resource.Active = active
		}
	}
	return resource, nil
}

func decodeAppointment(data json.RawMessage) (*models.Appointment, error) {
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	appt, err := rec.Normalize()
	if err != nil {
		return nil, err
	}
	return &appt, nil
}
