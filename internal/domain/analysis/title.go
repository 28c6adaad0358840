package analysis

import (
	"encoding/json"
	"fmt"
)

// NoTitleFound is the title reported for a page that loaded but has no <title>.
const NoTitleFound = "No title found"

// PageTitleResult is either a retrieved title or the reason the fetch failed.
// A missing <title> is a successful result carrying NoTitleFound.
type PageTitleResult struct {
	title    string
	fetchErr string
	failed   bool
}

// Title builds a successful title result.
func Title(text string) PageTitleResult {
	return PageTitleResult{title: text}
}

// FetchError builds a failed title result.
func FetchError(reason string) PageTitleResult {
	return PageTitleResult{fetchErr: reason, failed: true}
}

// FetchErrorf builds a failed title result from a format string.
func FetchErrorf(format string, args ...any) PageTitleResult {
	return FetchError(fmt.Sprintf(format, args...))
}

// Failed reports whether the page could not be fetched.
func (p PageTitleResult) Failed() bool { return p.failed }

// Title returns the page title and true, or "" and false on fetch failure.
func (p PageTitleResult) Title() (string, bool) {
	if p.failed {
		return "", false
	}
	return p.title, true
}

// Err returns the fetch failure reason, or "" when the fetch succeeded.
func (p PageTitleResult) Err() string { return p.fetchErr }

// String renders the title, or the failure text prefixed with "Error:".
func (p PageTitleResult) String() string {
	if p.failed {
		return "Error: " + p.fetchErr
	}
	return p.title
}

type pageTitleView struct {
	Title *string `json:"title,omitempty" yaml:"title,omitempty"`
	Error *string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (p PageTitleResult) view() pageTitleView {
	if p.failed {
		reason := p.fetchErr
		return pageTitleView{Error: &reason}
	}
	title := p.title
	return pageTitleView{Title: &title}
}

// MarshalJSON encodes the result as {"title": ...} or {"error": ...}.
func (p PageTitleResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.view())
}

// UnmarshalJSON decodes the shape produced by MarshalJSON.
func (p *PageTitleResult) UnmarshalJSON(b []byte) error {
	var v pageTitleView
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch {
	case v.Error != nil:
		*p = FetchError(*v.Error)
	case v.Title != nil:
		*p = Title(*v.Title)
	default:
		return fmt.Errorf("page title: neither title nor error present")
	}
	return nil
}

// MarshalYAML mirrors the JSON shape.
func (p PageTitleResult) MarshalYAML() (any, error) {
	return p.view(), nil
}
