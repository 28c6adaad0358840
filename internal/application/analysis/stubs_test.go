package analysis

import (
	"context"
	"strings"
	"sync/atomic"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
)

// stubTitles returns a title keyed by URL, a fetch error for unknown ones.
type stubTitles struct {
	titles map[string]string
	calls  atomic.Int32
}

func (s *stubTitles) FetchTitle(_ context.Context, url string) domain.PageTitleResult {
	s.calls.Add(1)
	if t, ok := s.titles[url]; ok {
		return domain.Title(t)
	}
	return domain.FetchError("dial tcp: lookup failed")
}

// stubTLS mirrors the inspector's scheme short-circuit without networking.
type stubTLS struct {
	calls atomic.Int32
}

func (s *stubTLS) Inspect(_ context.Context, url string) domain.TLSStatus {
	s.calls.Add(1)
	switch {
	case strings.HasPrefix(url, "https://good."):
		return domain.Secure(domain.CertificateInfo{Subject: "CN=good.example", Issuer: "CN=Test CA"})
	case strings.HasPrefix(url, "https://"):
		return domain.TLSError("connect: no such host")
	default:
		return domain.NotSecure()
	}
}
