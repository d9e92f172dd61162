package export

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/noah-isme/agenda-api/internal/models"
)

// ICSRenderer turns appointments into an iCalendar feed.
type ICSRenderer struct {
	productID string
	domain    string
	loc       *time.Location
	now       func() time.Time
}

// NewICSRenderer constructs a renderer. Wall-clock times are interpreted in loc.
func NewICSRenderer(domain string, loc *time.Location) *ICSRenderer {
	if domain == "" {
		domain = "agenda.local"
	}
	if loc == nil {
		loc = time.Local
	}
	return &ICSRenderer{
		productID: "-//agenda-api//schedule export//EN",
		domain:    domain,
		loc:       loc,
		now:       time.Now,
	}
}

// Render emits one VEVENT per appointment. resources maps resource ids to
// display names for the LOCATION property.
func (r *ICSRenderer) Render(name string, appts []models.Appointment, resources map[int64]string) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(r.productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	cal.SetXWRTimezone(r.loc.String())

	stamp := r.now().UTC()
	for _, appt := range appts {
		if appt.StartTime >= appt.EndTime {
			continue
		}
		event := cal.AddEvent(fmt.Sprintf("appointment-%d@%s", appt.ID, r.domain))
		if !appt.UpdatedAt.IsZero() {
			event.SetDtStampTime(appt.UpdatedAt.UTC())
		} else {
			event.SetDtStampTime(stamp)
		}
		event.SetStartAt(appt.StartTime.On(appt.Date, r.loc))
		event.SetEndAt(appt.EndTime.On(appt.Date, r.loc))
		event.SetSummary(summary(appt))
		if resource, ok := resources[appt.ResourceID]; ok {
			event.SetLocation(resource)
		}
		if appt.Notes != nil && *appt.Notes != "" {
			event.SetDescription(*appt.Notes)
		}
		if appt.ColorTag != nil {
			event.SetProperty(ical.ComponentPropertyCategories, *appt.ColorTag)
		}
	}
	return []byte(cal.Serialize()), nil
}

func summary(appt models.Appointment) string {
	parts := []string{strings.TrimSpace(appt.Title)}
	if client := strings.TrimSpace(appt.ClientName); client != "" {
		parts = append(parts, client)
	}
	return strings.Join(parts, " - ")
}
