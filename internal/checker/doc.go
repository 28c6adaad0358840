// Package checker gathers the per-URL signals of an analysis.
//
// Architecture overview:
//
//   - Decompose splits a URL into scheme, host, path, query and fragment, and
//     splits the host against the public suffix list. It is pure and never
//     fails.
//   - TitleFetcher performs one bounded GET and extracts the first <title>.
//     Failures are returned as analysis.PageTitleResult data, not errors.
//   - TLSInspector short-circuits non-https URLs and otherwise captures the
//     peer certificate of a bounded TLS handshake, without chain validation.
//     Failures are returned as the analysis.TLSStatus error variant.
//
// An optional safe dialer rejects private and reserved destinations so the
// checks can run against untrusted URLs submitted over the API.
package checker
