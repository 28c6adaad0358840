package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
)

const pdfPageBreakY = 260

func renderPDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Phishing Analysis Report", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Phishing Analysis Report", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", r.GeneratedAt.Format(time.RFC3339)), "", 1, "", false, 0, "")
	if r.FeedURL != "" {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Feed: %s", r.FeedURL)), "", 1, "", false, 0, "")
	}
	if r.FeedError != "" {
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("Feed unavailable: %s", r.FeedError)), "", "", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(3)

	// Summary
	s := r.Summary
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Analysed: %d | Completed: %d | Failed: %d", s.Total, s.Completed, s.Failed), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("TLS: %d secure, %d not secure, %d error | Title errors: %d",
		s.TLSSecure, s.TLSNotSecure, s.TLSErrors, s.TitleErrors), "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Results", "", 1, "", false, 0, "")
	pdf.Ln(2)

	for i, res := range r.Results {
		if pdf.GetY() > pdfPageBreakY {
			pdf.AddPage()
		}
		writePDFResult(pdf, tr, i+1, res)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

func writePDFResult(pdf *gofpdf.Fpdf, tr func(string) string, n int, res domain.AnalysisResult) {
	status := "completed"
	if res.Failed() {
		status = "failed"
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(240, 240, 240)
	pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s - %s", n, res.URL, status)), "", "", true)
	pdf.Ln(1)

	c := res.Components
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Host: %s | Domain: %s | Subdomain: %s",
		orNone(c.Host), orNone(c.Domain()), orNone(c.Subdomain))), "", 1, "", false, 0, "")
	if c.Path != "" || c.Query != "" {
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Path: %s  Query: %s", orNone(c.Path), orNone(c.Query))), "", "", false)
	}
	pdf.MultiCell(0, 5, tr(fmt.Sprintf("Page title: %s", titleText(res.PageTitle))), "", "", false)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("TLS: %s", res.TLSStatus.Label())), "", 1, "", false, 0, "")
	if cert, ok := res.TLSStatus.Certificate(); ok {
		pdf.SetFont("Arial", "", 8)
		pdf.MultiCell(0, 4, tr(fmt.Sprintf("  Subject: %s", cert.Subject)), "", "", false)
		pdf.MultiCell(0, 4, tr(fmt.Sprintf("  Issuer: %s", cert.Issuer)), "", "", false)
		pdf.CellFormat(0, 4, fmt.Sprintf("  Valid: %s to %s | %s %s", cert.NotBefore, cert.NotAfter, cert.TLSVersion, cert.CipherSuite), "", 1, "", false, 0, "")
	}

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Analysis latency: %s", res.AnalysisLatency.Duration), "", 1, "", false, 0, "")

	if res.Failed() {
		pdf.SetFont("Arial", "I", 9)
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Analysis failed: %s", errorText(res))), "", "", false)
		pdf.SetTextColor(0, 0, 0)
	} else {
		pdf.SetFont("Arial", "", 9)
		for _, line := range strings.Split(strings.TrimSpace(narrativeText(res)), "\n") {
			if pdf.GetY() > 275 {
				pdf.AddPage()
			}
			pdf.MultiCell(0, 4.5, tr(line), "", "", false)
		}
	}

	pdf.Ln(3)
}
