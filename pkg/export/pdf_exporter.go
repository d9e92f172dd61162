package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/agenda-api/internal/models"
)

const (
	pageMargin   = 10.0
	titleHeight  = 12.0
	headerHeight = 10.0
	gutterWidth  = 14.0
	blockFont    = 6.5
)

// GridPDFRenderer draws a laid out schedule grid onto a landscape A4 page,
// optionally followed by a tabular listing.
type GridPDFRenderer struct {
	defaultFill [3]int
}

// NewGridPDFRenderer constructs a renderer.
func NewGridPDFRenderer() *GridPDFRenderer {
	return &GridPDFRenderer{defaultFill: [3]int{176, 206, 240}}
}

// Render produces the PDF bytes. listing is appended on a new page when it
// has rows.
func (r *GridPDFRenderer) Render(grid models.GridView, title string, listing Dataset) ([]byte, error) {
	if grid.Geometry.SlotCount <= 0 {
		return nil, fmt.Errorf("grid has no slot rows")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, titleHeight, tr(title), "", 1, "L", false, 0, "")

	gridLeft := pageMargin + gutterWidth
	gridTop := pageMargin + titleHeight + headerHeight
	gridWidth := pageW - gridLeft - pageMargin
	gridHeight := pageH - gridTop - pageMargin
	scale := gridHeight / grid.Geometry.HeightPx()

	colCount := len(grid.Columns)
	if colCount == 0 {
		colCount = 1
	}
	colWidth := gridWidth / float64(colCount)

	// column headers
	pdf.SetFont("Arial", "B", 8)
	pdf.SetDrawColor(120, 120, 120)
	for _, col := range grid.Columns {
		x := gridLeft + float64(col.Index)*colWidth
		pdf.SetXY(x, gridTop-headerHeight)
		pdf.CellFormat(colWidth, headerHeight/2, tr(col.Label), "1", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "", 6)
		for _, res := range col.Resources {
			pdf.SetXY(x+res.OffsetPct/100*colWidth, gridTop-headerHeight/2)
			pdf.CellFormat(res.WidthPct/100*colWidth, headerHeight/2, tr(fit(pdf, res.DisplayName, res.WidthPct/100*colWidth)), "1", 0, "C", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 8)
	}

	// slot rows
	pdf.SetFont("Arial", "", 7)
	pdf.SetLineWidth(0.1)
	slotH := grid.Geometry.SlotHeightPx * scale
	for i, label := range grid.SlotLabels {
		y := gridTop + float64(i)*slotH
		pdf.Line(gridLeft, y, gridLeft+gridWidth, y)
		pdf.SetXY(pageMargin, y)
		pdf.CellFormat(gutterWidth-1, 4, label, "", 0, "R", false, 0, "")
	}
	pdf.Line(gridLeft, gridTop+gridHeight, gridLeft+gridWidth, gridTop+gridHeight)
	for i := 0; i <= colCount; i++ {
		x := gridLeft + float64(i)*colWidth
		pdf.Line(x, gridTop, x, gridTop+gridHeight)
	}

	// appointment blocks
	pdf.SetFont("Arial", "", blockFont)
	for _, block := range grid.Blocks {
		x := gridLeft + float64(block.ColumnIndex)*colWidth + block.LeftPct/100*colWidth
		y := gridTop + (block.Top-grid.HeaderOffsetPx)*scale
		w := block.WidthPct / 100 * colWidth
		h := block.Height * scale
		red, green, blue := r.fill(block.ColorTag)
		pdf.SetFillColor(red, green, blue)
		pdf.Rect(x+0.3, y, w-0.6, h, "FD")

		label := fmt.Sprintf("%s-%s %s", block.StartTime, block.EndTime, block.Title)
		if block.ClientName != "" {
			label += " / " + block.ClientName
		}
		if h >= 3 {
			pdf.SetXY(x+0.5, y+0.3)
			pdf.CellFormat(w-1, 3, tr(fit(pdf, label, w-1)), "", 0, "L", false, 0, "")
		}
	}

	if len(listing.Rows) > 0 && len(listing.Headers) > 0 {
		pdf.SetAutoPageBreak(true, pageMargin)
		pdf.AddPage()
		drawTable(pdf, tr, listing, pageW-2*pageMargin)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("render pdf: %w", pdf.Error())
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *GridPDFRenderer) fill(tag *string) (int, int, int) {
	if tag != nil {
		if red, green, blue, ok := parseHexColor(*tag); ok {
			return red, green, blue
		}
	}
	return r.defaultFill[0], r.defaultFill[1], r.defaultFill[2]
}

func drawTable(pdf *gofpdf.Fpdf, tr func(string) string, data Dataset, width float64) {
	colWidth := width / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 9)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 6, tr(fit(pdf, row[header], colWidth-1)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fit truncates text so it renders within width at the current font.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	if width <= 0 {
		return ""
	}
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"..") > width {
		runes = runes[:len(runes)-1]
	}
	if len(runes) == 0 {
		return ""
	}
	return string(runes) + ".."
}

func parseHexColor(raw string) (int, int, int, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(value >> 16 & 0xFF), int(value >> 8 & 0xFF), int(value & 0xFF), true
}
