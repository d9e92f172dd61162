package service

import (
	"fmt"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

// MinBlockHeightPx keeps very short appointments clickable.
const MinBlockHeightPx = 1.0

// SlotLabels returns one "HH:00" label per slot row starting at startHour.
func SlotLabels(startHour, count int) []string {
	if count <= 0 {
		return []string{}
	}
	labels := make([]string, count)
	for i := 0; i < count; i++ {
		labels[i] = fmt.Sprintf("%02d:00", (startHour+i)%24)
	}
	return labels
}

// MinutesSinceWindowStart is the signed distance from the first slot row.
// Values outside [0, window) are returned as is so callers can detect them.
func MinutesSinceWindowStart(t caldate.Clock, windowStartHour int) int {
	return t.Minutes() - windowStartHour*60
}

// LayoutAppointment places an appointment vertically. ok is false when the
// appointment has no positive duration.
func LayoutAppointment(appt models.Appointment, windowStartHour int, pxPerMinute, headerOffsetPx float64) (models.BlockLayout, bool) {
	startMinutes := MinutesSinceWindowStart(appt.StartTime, windowStartHour)
	endMinutes := MinutesSinceWindowStart(appt.EndTime, windowStartHour)
	if endMinutes <= startMinutes {
		return models.BlockLayout{}, false
	}
	height := float64(endMinutes-startMinutes) * pxPerMinute
	if height < MinBlockHeightPx {
		height = MinBlockHeightPx
	}
	return models.BlockLayout{
		Top:    float64(startMinutes)*pxPerMinute + headerOffsetPx,
		Height: height,
	}, true
}

// ColumnOffset is the left edge, in percent, of sub-column index out of count.
func ColumnOffset(index, count int) float64 {
	if count <= 0 {
		return 0
	}
	return 100 * float64(index) / float64(count)
}

// ColumnWidth is the width, in percent, of each of count sub-columns.
func ColumnWidth(count int) float64 {
	if count <= 0 {
		return 0
	}
	return 100 / float64(count)
}
