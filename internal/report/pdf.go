package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/phpdave11/gofpdf"

	"spendlog/internal/core"
)

const (
	rowHeight   = 8.0
	maxDescRune = 60
	// Rows end above the footer band of the A4 page.
	tableBottom = 297.0 - 20.0
)

// compressPDF is switched off in tests to read page content.
var compressPDF = true

var colWidths = []float64{42, 80, 32, 28}

// WritePDF renders r as an A4 portrait PDF. The core fonts are cp1252, so the
// rupee sign is written as "Rs.".
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.Title, false)
	pdf.SetCreator(Footer, false)
	pdf.SetMargins(14, 14, 14)
	pdf.SetCompression(compressPDF)
	// Page breaks are taken by hand so the column header repeats.
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(pdfSafe(s)) }

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, text(fmt.Sprintf("%s - page %d", r.Footer, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, text(r.Title))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, s := range r.Summary {
		pdf.Cell(0, 7, text(s.Line()))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetDrawColor(200, 200, 200)
		for i, c := range r.Columns {
			align := "L"
			if i == 2 {
				align = "R"
			}
			pdf.CellFormat(colWidth(i), rowHeight, text(c), "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	if len(r.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, rowHeight, "No transactions in this period", "1", 1, "C", false, 0, "")
	}
	for _, row := range r.Rows {
		if pdf.GetY()+rowHeight > tableBottom {
			pdf.AddPage()
			header()
		}
		for i, v := range row.Values() {
			align := "L"
			if i == 2 {
				align = "R"
			}
			if i == 1 {
				v = truncate(v, maxDescRune)
			}
			pdf.CellFormat(colWidth(i), rowHeight, text(v), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func colWidth(i int) float64 {
	if i < len(colWidths) {
		return colWidths[i]
	}
	return 30
}

func pdfSafe(s string) string {
	return strings.ReplaceAll(s, core.CurrencySymbol, "Rs.")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
