// Package prompt turns the signals gathered for a URL into the request sent
// to the text-generation service.
package prompt

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/khanhnv2901/phishscope/internal/domain/analysis"
)

//go:embed analysis.tmpl
var analysisTemplate string

var tmpl = template.Must(template.New("analysis").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(analysisTemplate))

type promptData struct {
	URL         string
	Components  analysis.URLComponents
	Title       string
	TLSLabel    string
	TLSReason   string
	Certificate *analysis.CertificateInfo
}

// Compose renders the analysis prompt. Output depends only on its arguments.
func Compose(url string, components analysis.URLComponents, title analysis.PageTitleResult, tls analysis.TLSStatus) string {
	data := promptData{
		URL:        url,
		Components: components,
		Title:      title.String(),
		TLSLabel:   tlsLabel(tls),
	}
	if cert, ok := tls.Certificate(); ok {
		data.Certificate = &cert
	}
	if tls.Kind() == analysis.TLSFailed {
		data.TLSReason = tls.Reason()
	}

	var buf bytes.Buffer
	// Execution only fails on template bugs or writer errors; neither can
	// happen with a parsed embedded template and a bytes.Buffer.
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

func tlsLabel(s analysis.TLSStatus) string {
	switch s.Kind() {
	case analysis.TLSSecure:
		return "Secure (HTTPS)"
	case analysis.TLSFailed:
		return "Error"
	default:
		return "Not Secure (HTTP)"
	}
}
