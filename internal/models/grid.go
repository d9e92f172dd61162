package models

import (
	"time"

	"github.com/noah-isme/agenda-api/pkg/caldate"
)

// GridGeometry describes the slot rows of one view.
type GridGeometry struct {
	SlotStartHour int     `json:"slot_start_hour"`
	SlotCount     int     `json:"slot_count"`
	SlotHeightPx  float64 `json:"slot_height_px"`
}

// PxPerMinute is the vertical scale of the grid.
func (g GridGeometry) PxPerMinute() float64 {
	return g.SlotHeightPx / 60
}

// WindowMinutes is the number of minutes the slot rows cover.
func (g GridGeometry) WindowMinutes() int {
	return g.SlotCount * 60
}

// HeightPx is the total height of the slot rows.
func (g GridGeometry) HeightPx() float64 {
	return float64(g.SlotCount) * g.SlotHeightPx
}

// BlockLayout is the vertical placement of one appointment.
type BlockLayout struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// GridView is a fully laid out schedule grid.
type GridView struct {
	Window         ViewWindow        `json:"window"`
	RangeStart     caldate.Date      `json:"range_start"`
	RangeEnd       caldate.Date      `json:"range_end"`
	Selection      ResourceSelection `json:"selection"`
	Geometry       GridGeometry      `json:"geometry"`
	HeaderOffsetPx float64           `json:"header_offset_px"`
	SlotLabels     []string          `json:"slot_labels"`
	Columns        []GridColumn      `json:"columns"`
	Blocks         []GridBlock       `json:"blocks"`
	Summary        GridSummary       `json:"summary"`
}

// GridColumn is one date column, split into resource sub-columns.
type GridColumn struct {
	Index     int                  `json:"index"`
	Date      caldate.Date         `json:"date"`
	Label     string               `json:"label"`
	Resources []GridResourceColumn `json:"resources"`
}

// GridResourceColumn is a resource's horizontal share of a date column.
type GridResourceColumn struct {
	ResourceID  int64   `json:"resource_id"`
	DisplayName string  `json:"display_name"`
	Color       *string `json:"color,omitempty"`
	OffsetPct   float64 `json:"offset_pct"`
	WidthPct    float64 `json:"width_pct"`
}

// GridBlock is a positioned appointment.
type GridBlock struct {
	AppointmentID int64         `json:"appointment_id"`
	ResourceID    int64         `json:"resource_id"`
	Date          caldate.Date  `json:"date"`
	ColumnIndex   int           `json:"column_index"`
	ResourceIndex int           `json:"resource_index"`
	Top           float64       `json:"top"`
	Height        float64       `json:"height"`
	LeftPct       float64       `json:"left_pct"`
	WidthPct      float64       `json:"width_pct"`
	StartTime     caldate.Clock `json:"start_time"`
	EndTime       caldate.Clock `json:"end_time"`
	Title         string        `json:"title"`
	ClientName    string        `json:"client_name"`
	ColorTag      *string       `json:"color_tag,omitempty"`
	ClippedTop    bool          `json:"clipped_top,omitempty"`
	ClippedBottom bool          `json:"clipped_bottom,omitempty"`
}

// GridSummary counts appointments that did not become blocks.
type GridSummary struct {
	Rendered      int `json:"rendered"`
	OutOfHours    int `json:"out_of_hours"`
	InvalidTimes  int `json:"invalid_times"`
	UnknownColumn int `json:"unknown_column"`
}

// CacheStatus reports whether a read was served from cache and under which
// key it is stored.
type CacheStatus struct {
	Key string
	Hit bool
	TTL time.Duration
}

// WindowInfo describes a window and its navigation neighbours.
type WindowInfo struct {
	Window     ViewWindow     `json:"window"`
	RangeStart caldate.Date   `json:"range_start"`
	RangeEnd   caldate.Date   `json:"range_end"`
	Days       []caldate.Date `json:"days"`
	Previous   caldate.Date   `json:"previous"`
	Next       caldate.Date   `json:"next"`
}
