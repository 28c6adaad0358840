package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func tlsWithColor(s domain.TLSStatus) string {
	switch s.Kind() {
	case domain.TLSSecure:
		return colorSuccess(s.Label())
	case domain.TLSFailed:
		return colorError(s.Label())
	default:
		return colorWarn(s.Label())
	}
}

func renderText(w io.Writer, r Report) error {
	var b strings.Builder

	if r.FeedError != "" {
		fmt.Fprintf(&b, "%s feed unavailable: %s\n\n", colorError("✗"), r.FeedError)
	}

	for i, res := range r.Results {
		fmt.Fprintf(&b, "%s %s\n", colorBold(fmt.Sprintf("[%d]", i+1)), colorInfo(res.URL))

		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		c := res.Components
		fmt.Fprintf(tw, "  Host:\t%s\n", orNone(c.Host))
		if c.HasSuffix() {
			fmt.Fprintf(tw, "  Domain:\t%s (subdomain %s, suffix %s)\n", c.Domain(), orNone(c.Subdomain), c.PublicSuffix)
		}
		fmt.Fprintf(tw, "  Path:\t%s\n", orNone(c.Path))
		if c.Query != "" {
			fmt.Fprintf(tw, "  Query:\t%s\n", c.Query)
		}
		if res.PageTitle.Failed() {
			fmt.Fprintf(tw, "  Title:\t%s\n", colorWarn(res.PageTitle.String()))
		} else {
			fmt.Fprintf(tw, "  Title:\t%s\n", titleText(res.PageTitle))
		}
		fmt.Fprintf(tw, "  TLS:\t%s\n", tlsWithColor(res.TLSStatus))
		if cert, ok := res.TLSStatus.Certificate(); ok {
			fmt.Fprintf(tw, "  Subject:\t%s\n", cert.Subject)
			fmt.Fprintf(tw, "  Issuer:\t%s\n", cert.Issuer)
			fmt.Fprintf(tw, "  Valid:\t%s to %s\n", cert.NotBefore, cert.NotAfter)
		}
		fmt.Fprintf(tw, "  Latency:\t%s\n", res.AnalysisLatency.Duration)
		if err := tw.Flush(); err != nil {
			return err
		}

		if res.Failed() {
			fmt.Fprintf(&b, "  %s %s\n", colorError("Analysis failed:"), errorText(res))
		} else {
			fmt.Fprintf(&b, "  %s\n", colorSuccess("Analysis:"))
			for _, line := range strings.Split(strings.TrimSpace(narrativeText(res)), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
		b.WriteString("\n")
	}

	s := r.Summary
	fmt.Fprintf(&b, "%s %d analysed, %s, %s | TLS: %d secure, %d not secure, %d error | title errors: %d\n",
		colorInfo("Summary:"), s.Total,
		colorSuccess(fmt.Sprintf("%d completed", s.Completed)),
		colorError(fmt.Sprintf("%d failed", s.Failed)),
		s.TLSSecure, s.TLSNotSecure, s.TLSErrors, s.TitleErrors)

	_, err := io.WriteString(w, b.String())
	return err
}
