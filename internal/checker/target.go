package checker

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/khanhnv2901/phishscope/internal/domain/analysis"
)

// Decompose parses a candidate URL into its structural components.
// It never fails: malformed input yields empty fields. Handles:
//   - https://login.example.co.uk/path?q=1#frag
//   - example.com/path (no scheme, host still recovered)
//   - http://10.0.0.1:8080 (IP literals are never split)
func Decompose(raw string) analysis.URLComponents {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return analysis.URLComponents{}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return analysis.URLComponents{}
	}

	// "example.com/x" parses as a path and "example.com:8080" as a scheme
	// containing dots; reparse both as network-path references.
	if (parsed.Scheme == "" && parsed.Host == "" && looksLikeHost(raw)) || strings.Contains(parsed.Scheme, ".") {
		if reparsed, err := url.Parse("//" + raw); err == nil {
			parsed = reparsed
		}
	}

	c := analysis.URLComponents{
		Scheme:   parsed.Scheme,
		Host:     normalizeHost(parsed.Hostname()),
		Path:     parsed.Path,
		Query:    parsed.RawQuery,
		Fragment: parsed.Fragment,
	}
	c.Subdomain, c.RegistrableDomain, c.PublicSuffix = splitHost(c.Host)
	return c
}

// splitHost splits host against the public suffix list. All three parts are
// empty when no split is possible.
func splitHost(host string) (sub, registrable, suffix string) {
	if host == "" || net.ParseIP(host) != nil {
		return "", "", ""
	}

	// The list's implicit "*" rule makes an unknown TLD its own suffix.
	suffix, _ = publicsuffix.PublicSuffix(host)
	if suffix == "" || suffix == host || !strings.HasSuffix(host, "."+suffix) {
		return "", "", ""
	}

	rest := strings.TrimSuffix(host, "."+suffix)
	if rest == "" || strings.HasPrefix(rest, ".") || strings.Contains(rest, "..") {
		return "", "", ""
	}
	if idx := strings.LastIndex(rest, "."); idx >= 0 {
		sub, registrable = rest[:idx], rest[idx+1:]
	} else {
		registrable = rest
	}
	if registrable == "" || strings.HasSuffix(sub, ".") || strings.HasPrefix(sub, ".") {
		return "", "", ""
	}
	return sub, registrable, suffix
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if strings.ContainsAny(host, " \t\r\n") {
		return ""
	}
	return host
}

// looksLikeHost reports whether a scheme-less input starts with a dotted
// host name, e.g. "example.com/login".
func looksLikeHost(raw string) bool {
	if strings.ContainsAny(raw, " \t\r\n") || strings.HasPrefix(raw, "/") {
		return false
	}
	first := raw
	if idx := strings.IndexAny(first, "/?#"); idx >= 0 {
		first = first[:idx]
	}
	return strings.Contains(first, ".")
}
