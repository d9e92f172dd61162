package service

import (
	"github.com/noah-isme/agenda-api/internal/models"
)

// GridConfig holds the slot geometry of each view.
type GridConfig struct {
	Day            models.GridGeometry
	Week           models.GridGeometry
	HeaderOffsetPx float64
}

// DefaultGridConfig is ten slots from 08:00 for days and eight slots from
// 09:00 for weeks, 62px per slot.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Day:  models.GridGeometry{SlotStartHour: 8, SlotCount: 10, SlotHeightPx: 62},
		Week: models.GridGeometry{SlotStartHour: 9, SlotCount: 8, SlotHeightPx: 62},
	}
}

// GeometryFor picks the geometry of a granularity.
func (c GridConfig) GeometryFor(g models.Granularity) models.GridGeometry {
	if g == models.GranularityWeek {
		return c.Week
	}
	return c.Day
}

// BuildGrid lays out appointments for window. Appointments outside the slot
// rows are counted rather than drawn; partial overlaps are clipped to the
// rows. Same-resource overlaps share coordinates.
func BuildGrid(cfg GridConfig, window models.ViewWindow, resources []models.Resource, selection models.ResourceSelection, appts []models.Appointment) models.GridView {
	geometry := cfg.GeometryFor(window.Granularity)
	rangeStart, rangeEnd := WindowRange(window)
	shown := SelectResources(resources, selection)

	resourceIndex := make(map[int64]int, len(shown))
	for i, resource := range shown {
		resourceIndex[resource.ID] = i
	}

	days := WindowDays(window)
	columns := make([]models.GridColumn, len(days))
	for i, day := range days {
		subColumns := make([]models.GridResourceColumn, len(shown))
		for j, resource := range shown {
			subColumns[j] = models.GridResourceColumn{
				ResourceID:  resource.ID,
				DisplayName: resource.DisplayName,
				Color:       resource.Color,
				OffsetPct:   ColumnOffset(j, len(shown)),
				WidthPct:    ColumnWidth(len(shown)),
			}
		}
		columns[i] = models.GridColumn{Index: i, Date: day, Label: DayLabel(day), Resources: subColumns}
	}

	ordered := make([]models.Appointment, len(appts))
	copy(ordered, appts)
	SortAppointments(ordered)

	view := models.GridView{
		Window:         window,
		RangeStart:     rangeStart,
		RangeEnd:       rangeEnd,
		Selection:      selection,
		Geometry:       geometry,
		HeaderOffsetPx: cfg.HeaderOffsetPx,
		SlotLabels:     SlotLabels(geometry.SlotStartHour, geometry.SlotCount),
		Columns:        columns,
		Blocks:         make([]models.GridBlock, 0, len(ordered)),
	}

	windowHeight := geometry.HeightPx()
	for _, appt := range ordered {
		if !appt.Date.Within(rangeStart, rangeEnd) || !BelongsTo(appt, selection) {
			continue
		}
		resIdx, ok := resourceIndex[appt.ResourceID]
		if !ok {
			view.Summary.UnknownColumn++
			continue
		}
		layout, ok := LayoutAppointment(appt, geometry.SlotStartHour, geometry.PxPerMinute(), 0)
		if !ok {
			view.Summary.InvalidTimes++
			continue
		}
		startMinutes := MinutesSinceWindowStart(appt.StartTime, geometry.SlotStartHour)
		endMinutes := MinutesSinceWindowStart(appt.EndTime, geometry.SlotStartHour)
		if endMinutes <= 0 || startMinutes >= geometry.WindowMinutes() {
			view.Summary.OutOfHours++
			continue
		}

		top, bottom := layout.Top, layout.Top+layout.Height
		clippedTop, clippedBottom := false, false
		if top < 0 {
			top, clippedTop = 0, true
		}
		if bottom > windowHeight {
			bottom, clippedBottom = windowHeight, true
		}
		height := bottom - top
		if height < MinBlockHeightPx {
			height = MinBlockHeightPx
		}

		view.Blocks = append(view.Blocks, models.GridBlock{
			AppointmentID: appt.ID,
			ResourceID:    appt.ResourceID,
			Date:          appt.Date,
			ColumnIndex:   appt.Date.DaysSince(rangeStart),
			ResourceIndex: resIdx,
			Top:           top + cfg.HeaderOffsetPx,
			Height:        height,
			LeftPct:       ColumnOffset(resIdx, len(shown)),
			WidthPct:      ColumnWidth(len(shown)),
			StartTime:     appt.StartTime,
			EndTime:       appt.EndTime,
			Title:         appt.Title,
			ClientName:    appt.ClientName,
			ColorTag:      appt.ColorTag,
			ClippedTop:    clippedTop,
			ClippedBottom: clippedBottom,
		})
	}
	view.Summary.Rendered = len(view.Blocks)
	return view
}
