package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct {
	// Widths maps header names to column widths in mm; unlisted columns share the remainder.
	Widths map[string]float64
}

// NewPDFExporter constructs a PDF exporter sized for absence alert rows.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Widths: map[string]float64{
		"student_id":         25,
		"absence_start_date": 25,
		"absence_end_date":   25,
		"total_absent_days":  18,
		"email":              50,
	}}
}

const pdfPageWidth = 277.0

// Render creates a PDF document with a title, generation stamp and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "Generated "+time.Now().UTC().Format(time.RFC3339), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	widths := e.columnWidths(data.Headers)

	pdf.SetFont("Arial", "B", 9)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	const lineHeight = 5.0
	left, _, _, bottom := pdf.GetMargins()
	_, pageHeight := pdf.GetPageSize()
	for _, record := range data.Records() {
		rowHeight := lineHeight
		for i, value := range record {
			lines := pdf.SplitLines([]byte(value), widths[i]-2)
			if h := float64(len(lines)) * lineHeight; h > rowHeight {
				rowHeight = h
			}
		}
		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for i, value := range record {
			pdf.Rect(x, y, widths[i], rowHeight, "D")
			pdf.MultiCell(widths[i], lineHeight, value, "", "L", false)
			x += widths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(left, y+rowHeight)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(headers []string) []float64 {
	widths := make([]float64, len(headers))
	fixed := 0.0
	flexible := 0
	for i, h := range headers {
		if w, ok := e.Widths[h]; ok {
			widths[i] = w
			fixed += w
			continue
		}
		flexible++
	}
	if flexible == 0 {
		return widths
	}
	share := (pdfPageWidth - fixed) / float64(flexible)
	if share < 20 {
		share = 20
	}
	for i, h := range headers {
		if _, ok := e.Widths[h]; !ok {
			widths[i] = share
		}
	}
	return widths
}
