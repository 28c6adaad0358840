// Package report renders analysis results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

// Format selects a renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatMarkdown, FormatPDF}

// ParseFormat normalises a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q (must be text, json, yaml, md or pdf)", sharedErrors.ErrUnsupportedFmt, s)
	}
}

// Report is the document every renderer works from.
type Report struct {
	GeneratedAt time.Time           `json:"generated_at" yaml:"generated_at"`
	FeedURL     string              `json:"feed_url,omitempty" yaml:"feed_url,omitempty"`
	FeedError   string              `json:"feed_error,omitempty" yaml:"feed_error,omitempty"`
	Summary     domain.BatchSummary `json:"summary" yaml:"summary"`
	Results     domain.BatchResult  `json:"results" yaml:"results"`
}

// New builds a report over results.
func New(results domain.BatchResult) Report {
	if results == nil {
		results = domain.BatchResult{}
	}
	return Report{
		GeneratedAt: time.Now().UTC(),
		Summary:     results.Summary(),
		Results:     results,
	}
}

// Render writes r to w in the requested format.
func Render(w io.Writer, format Format, r Report) error {
	switch format {
	case FormatText:
		return renderText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatMarkdown:
		return renderMarkdown(w, r)
	case FormatPDF:
		return renderPDF(w, r)
	default:
		return fmt.Errorf("%w: %q", sharedErrors.ErrUnsupportedFmt, format)
	}
}

// Extension returns the file extension for a format.
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

func titleText(p domain.PageTitleResult) string {
	if t, ok := p.Title(); ok {
		if t == "" {
			return "(empty)"
		}
		return t
	}
	return p.String()
}

func narrativeText(r domain.AnalysisResult) string {
	if r.Narrative != nil {
		return *r.Narrative
	}
	return ""
}

func errorText(r domain.AnalysisResult) string {
	if r.Error != nil {
		return *r.Error
	}
	return ""
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
