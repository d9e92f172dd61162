package service

import (
	"time"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

// Navigate shifts the window anchor by deltaDays calendar days.
func Navigate(window models.ViewWindow, deltaDays int) models.ViewWindow {
	window.AnchorDate = window.AnchorDate.AddDays(deltaDays)
	return window
}

// Step moves the window by whole views: one day per step for daily views and
// seven days per step for weekly views.
func Step(window models.ViewWindow, steps int) models.ViewWindow {
	return Navigate(window, steps*window.Granularity.SpanDays())
}

// WeekRange returns the Monday on or before anchor and the Sunday after it.
func WeekRange(anchor caldate.Date) (caldate.Date, caldate.Date) {
	// Monday=0 ... Sunday=6
	offset := (int(anchor.Weekday()) + 6) % 7
	start := anchor.AddDays(-offset)
	return start, start.AddDays(6)
}

// WindowRange returns the inclusive date range displayed by window.
func WindowRange(window models.ViewWindow) (caldate.Date, caldate.Date) {
	if window.Granularity == models.GranularityWeek {
		return WeekRange(window.AnchorDate)
	}
	return window.AnchorDate, window.AnchorDate
}

// WindowDays lists every displayed date in order.
func WindowDays(window models.ViewWindow) []caldate.Date {
	start, end := WindowRange(window)
	days := make([]caldate.Date, 0, 7)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// InWindow reports whether date falls inside the displayed range.
func InWindow(window models.ViewWindow, date caldate.Date) bool {
	start, end := WindowRange(window)
	return date.Within(start, end)
}

// DescribeWindow bundles the range and the anchors one step either side.
func DescribeWindow(window models.ViewWindow) models.WindowInfo {
	start, end := WindowRange(window)
	return models.WindowInfo{
		Window:     window,
		RangeStart: start,
		RangeEnd:   end,
		Days:       WindowDays(window),
		Previous:   Step(window, -1).AnchorDate,
		Next:       Step(window, 1).AnchorDate,
	}
}

// DayLabel renders a column heading such as "Mon 06/05".
func DayLabel(d caldate.Date) string {
	return d.In(time.UTC).Format("Mon 02/01")
}
