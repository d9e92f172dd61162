package cli

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

const (
	labelWidth = 6
	cellWidth  = 20
)

var blockPalette = []color.Attribute{
	color.FgCyan,
	color.FgGreen,
	color.FgYellow,
	color.FgMagenta,
	color.FgBlue,
	color.FgRed,
}

// Renderer draws a laid out grid as text, one section per date column.
type Renderer struct {
	colorize bool
	header   *color.Color
	muted    *color.Color
	failure  *color.Color
}

// NewRenderer builds a renderer; colorize false emits plain text.
func NewRenderer(colorize bool) *Renderer {
	r := &Renderer{
		colorize: colorize,
		header:   color.New(color.Bold, color.FgWhite),
		muted:    color.New(color.Faint),
		failure:  color.New(color.FgRed, color.Bold),
	}
	if !colorize {
		r.header.DisableColor()
		r.muted.DisableColor()
		r.failure.DisableColor()
	}
	return r
}

// Grid writes every column of grid to w.
func (r *Renderer) Grid(w io.Writer, grid models.GridView) {
	fmt.Fprintln(w, r.header.Sprint(windowTitle(grid)))
	for _, column := range grid.Columns {
		r.column(w, grid, column)
	}
	r.summary(w, grid.Summary)
}

// Error writes a failure line.
func (r *Renderer) Error(w io.Writer, err error) {
	fmt.Fprintln(w, r.failure.Sprint("error: ")+err.Error())
}

// Info writes a muted status line.
func (r *Renderer) Info(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, r.muted.Sprintf(format, args...))
}

func (r *Renderer) column(w io.Writer, grid models.GridView, column models.GridColumn) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.header.Sprint(column.Label))
	if len(column.Resources) == 0 {
		fmt.Fprintln(w, r.muted.Sprint("  no resources"))
		return
	}

	var head strings.Builder
	head.WriteString(strings.Repeat(" ", labelWidth))
	for _, resource := range column.Resources {
		head.WriteString("|")
		head.WriteString(pad(resource.DisplayName, cellWidth))
	}
	fmt.Fprintln(w, r.muted.Sprint(head.String()))

	blocks := blocksByResource(grid.Blocks, column.Index)
	start := grid.Geometry.SlotStartHour
	for slot := 0; slot < grid.Geometry.SlotCount; slot++ {
		slotStart := caldate.Clock((start + slot) * 60)
		slotEnd := caldate.Clock((start + slot + 1) * 60)

		line := pad(slotLabel(grid, slot), labelWidth)
		for i := range column.Resources {
			line += "|" + r.cell(blocks[i], slotStart, slotEnd, slot == 0)
		}
		fmt.Fprintln(w, line)
	}
}

func (r *Renderer) cell(blocks []models.GridBlock, slotStart, slotEnd caldate.Clock, firstSlot bool) string {
	var hits []models.GridBlock
	for _, block := range blocks {
		if block.StartTime < slotEnd && block.EndTime > slotStart {
			hits = append(hits, block)
		}
	}
	if len(hits) == 0 {
		return strings.Repeat(" ", cellWidth)
	}

	first := hits[0]
	text := " :"
	if first.StartTime >= slotStart || firstSlot {
		text = fmt.Sprintf("#%d %s %s", first.AppointmentID, first.StartTime, first.Title)
	}
	if len(hits) > 1 {
		text = fmt.Sprintf("%s +%d", text, len(hits)-1)
	}
	return r.blockColor(first.ColorTag).Sprint(pad(text, cellWidth))
}

func (r *Renderer) blockColor(tag *string) *color.Color {
	attr := blockPalette[0]
	if tag != nil && *tag != "" {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.ToLower(*tag)))
		attr = blockPalette[h.Sum32()%uint32(len(blockPalette))]
	}
	c := color.New(attr)
	if !r.colorize {
		c.DisableColor()
	}
	return c
}

func (r *Renderer) summary(w io.Writer, summary models.GridSummary) {
	fmt.Fprintln(w)
	parts := []string{fmt.Sprintf("%d shown", summary.Rendered)}
	if summary.OutOfHours > 0 {
		parts = append(parts, fmt.Sprintf("%d outside grid hours", summary.OutOfHours))
	}
	if summary.InvalidTimes > 0 {
		parts = append(parts, fmt.Sprintf("%d with invalid times", summary.InvalidTimes))
	}
	if summary.UnknownColumn > 0 {
		parts = append(parts, fmt.Sprintf("%d without a column", summary.UnknownColumn))
	}
	fmt.Fprintln(w, r.muted.Sprint(strings.Join(parts, ", ")))
}

func blocksByResource(blocks []models.GridBlock, column int) map[int][]models.GridBlock {
	out := make(map[int][]models.GridBlock)
	for _, block := range blocks {
		if block.ColumnIndex == column {
			out[block.ResourceIndex] = append(out[block.ResourceIndex], block)
		}
	}
	return out
}

func slotLabel(grid models.GridView, slot int) string {
	if slot < len(grid.SlotLabels) {
		return grid.SlotLabels[slot]
	}
	return caldate.Clock((grid.Geometry.SlotStartHour + slot) * 60).String()
}

func windowTitle(grid models.GridView) string {
	scope := "all resources"
	if !grid.Selection.IsAll() {
		scope = "resource " + grid.Selection.String()
	}
	if grid.RangeStart == grid.RangeEnd {
		return fmt.Sprintf("%s (%s)", grid.RangeStart, scope)
	}
	return fmt.Sprintf("%s to %s (%s)", grid.RangeStart, grid.RangeEnd, scope)
}

func pad(text string, width int) string {
	runes := []rune(text)
	if len(runes) > width {
		return string(runes[:width-1]) + "~"
	}
	return text + strings.Repeat(" ", width-len(runes))
}
