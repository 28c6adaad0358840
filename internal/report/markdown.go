package report

import (
	"embed"
	"io"
	"strings"
	"text/template"
	"time"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
)

//go:embed templates/report.md
var templateFS embed.FS

var markdownTemplate = template.Must(
	template.New("report.md").Funcs(template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"orNone":     orNone,
		"title":      titleText,
		"formatTime": func(t time.Time) string { return t.Format(time.RFC3339) },
		"cell":       markdownCell,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"cert": func(s domain.TLSStatus) *domain.CertificateInfo {
			if c, ok := s.Certificate(); ok {
				return &c
			}
			return nil
		},
	}).ParseFS(templateFS, "templates/report.md"),
)

func renderMarkdown(w io.Writer, r Report) error {
	return markdownTemplate.Execute(w, r)
}

// markdownCell keeps a value inside one table cell.
func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
