package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Line is a label/value row of a program section.
type Line struct {
	Label string
	Value string
}

// Section is a titled block of the printed program.
type Section struct {
	Heading    string
	Lines      []Line
	Paragraphs []string
}

// Program is the printable layout of a bulletin.
type Program struct {
	Title    string
	Subtitle string
	Theme    string
	Sections []Section
}

// PDFExporter renders programs into a single-column printable PDF.
type PDFExporter struct {
	pageSize string
}

// NewPDFExporter constructs a PDF exporter using the Letter page size.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{pageSize: "Letter"}
}

// Render lays out the program's sections in order and returns the PDF bytes.
func (e *PDFExporter) Render(program Program) ([]byte, error) {
	if strings.TrimSpace(program.Title) == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", e.pageSize, "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(program.Title), "", 1, "C", false, 0, "")
	if program.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, tr(program.Subtitle), "", 1, "C", false, 0, "")
	}
	if program.Theme != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, tr(program.Theme), "", "C", false)
	}
	pdf.Ln(4)

	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	labelWidth := (width - left - right) * 0.45

	for _, section := range program.Sections {
		if len(section.Lines) == 0 && len(section.Paragraphs) == 0 {
			continue
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(strings.ToUpper(section.Heading)), "B", 1, "L", false, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Helvetica", "", 10)
		for _, line := range section.Lines {
			pdf.CellFormat(labelWidth, 6, tr(line.Label), "", 0, "L", false, 0, "")
			pdf.MultiCell(0, 6, tr(line.Value), "", "R", false)
		}
		for _, paragraph := range section.Paragraphs {
			pdf.MultiCell(0, 5, tr(paragraph), "", "L", false)
			pdf.Ln(2)
		}
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
