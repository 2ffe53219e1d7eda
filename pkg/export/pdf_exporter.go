package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 190.0
	lineHeight = 5.0
)

// PDFExporter renders datasets into a tabular PDF with wrapped cells.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	widths, err := columnWidths(data)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "B", 10)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		cells := make([][]string, len(data.Headers))
		lines := 1
		for i, header := range data.Headers {
			cells[i] = wrap(pdf, tr(row[header]), widths[i]-2)
			if len(cells[i]) > lines {
				lines = len(cells[i])
			}
		}
		height := float64(lines) * lineHeight
		if pdf.GetY()+height > pageHeight-bottom {
			pdf.AddPage()
		}

		x, y := pdf.GetXY()
		for i := range data.Headers {
			pdf.Rect(x, y, widths[i], height, "D")
			pdf.SetXY(x+1, y)
			pdf.MultiCell(widths[i]-2, lineHeight, strings.Join(cells[i], "\n"), "", "L", false)
			x += widths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(10, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(data Dataset) ([]float64, error) {
	if len(data.Widths) == 0 {
		widths := make([]float64, len(data.Headers))
		for i := range widths {
			widths[i] = pageWidth / float64(len(data.Headers))
		}
		return widths, nil
	}
	if len(data.Widths) != len(data.Headers) {
		return nil, fmt.Errorf("pdf widths must match headers")
	}

	var total float64
	for _, w := range data.Widths {
		if w <= 0 {
			return nil, fmt.Errorf("pdf widths must be positive")
		}
		total += w
	}
	widths := make([]float64, len(data.Widths))
	for i, w := range data.Widths {
		widths[i] = pageWidth * w / total
	}
	return widths, nil
}

func wrap(pdf *gofpdf.Fpdf, text string, width float64) []string {
	if text == "" {
		return []string{""}
	}
	raw := pdf.SplitLines([]byte(text), width)
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		out = append(out, string(line))
	}
	return out
}
