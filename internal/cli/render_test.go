package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

func sampleGrid() models.GridView {
	day := caldate.MustParse("2024-05-06")
	return models.GridView{
		Window:     models.ViewWindow{AnchorDate: day, Granularity: models.GranularityDay},
		RangeStart: day,
		RangeEnd:   day,
		Geometry:   models.GridGeometry{SlotStartHour: 9, SlotCount: 3, SlotHeightPx: 60},
		SlotLabels: []string{"09:00", "10:00", "11:00"},
		Columns: []models.GridColumn{{
			Index: 0,
			Date:  day,
			Label: "Mon 06 May",
			Resources: []models.GridResourceColumn{
				{ResourceID: 1, DisplayName: "Ana"},
				{ResourceID: 2, DisplayName: "Bo"},
			},
		}},
		Blocks: []models.GridBlock{
			{AppointmentID: 7, ResourceID: 1, ColumnIndex: 0, ResourceIndex: 0,
				StartTime: caldate.MustParseClock("09:30"), EndTime: caldate.MustParseClock("11:00"), Title: "Cut"},
			{AppointmentID: 8, ResourceID: 2, ColumnIndex: 0, ResourceIndex: 1,
				StartTime: caldate.MustParseClock("10:00"), EndTime: caldate.MustParseClock("10:30"), Title: "Dye"},
			{AppointmentID: 9, ResourceID: 2, ColumnIndex: 0, ResourceIndex: 1,
				StartTime: caldate.MustParseClock("10:00"), EndTime: caldate.MustParseClock("10:45"), Title: "Wash"},
		},
		Summary: models.GridSummary{Rendered: 3, OutOfHours: 1},
	}
}

func TestRendererGridPlainText(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(false).Grid(&out, sampleGrid())
	text := out.String()

	assert.Contains(t, text, "2024-05-06 (all resources)")
	assert.Contains(t, text, "Mon 06 May")
	assert.Contains(t, text, "Ana")
	assert.Contains(t, text, "#7 09:30 Cut")
	assert.Contains(t, text, "#8 10:00 Dye +1")
	assert.Contains(t, text, "3 shown, 1 outside grid hours")
	assert.NotContains(t, text, "\x1b[")

	lines := strings.Split(text, "\n")
	var elevenRow string
	for _, line := range lines {
		if strings.HasPrefix(line, "11:00") {
			elevenRow = line
		}
	}
	assert.NotContains(t, elevenRow, "#7", "block ends at 11:00 and must not spill into that row")

	var tenRow string
	for _, line := range lines {
		if strings.HasPrefix(line, "10:00") {
			tenRow = line
		}
	}
	assert.Contains(t, tenRow, " :")
}

func TestRendererSingleResourceTitleAndError(t *testing.T) {
	grid := sampleGrid()
	grid.Selection = models.SingleResource(2)
	grid.RangeEnd = caldate.MustParse("2024-05-12")

	var out bytes.Buffer
	r := NewRenderer(false)
	r.Grid(&out, grid)
	r.Error(&out, errors.New("boom"))
	assert.Contains(t, out.String(), "2024-05-06 to 2024-05-12 (resource 2)")
	assert.Contains(t, out.String(), "error: boom")
}

func TestPadTruncates(t *testing.T) {
	assert.Equal(t, "abc  ", pad("abc", 5))
	assert.Equal(t, "abcd~", pad("abcdefgh", 5))
}
