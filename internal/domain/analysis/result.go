package analysis

// AnalysisResult is the aggregated outcome of analysing one URL.
//
// Narrative and Error are mutually exclusive: Error is set only when the
// text-generation call failed (or the analysis was cancelled), in which case
// Narrative is nil. The gathered signals are populated either way.
type AnalysisResult struct {
	URL             string          `json:"url" yaml:"url"`
	Components      URLComponents   `json:"components" yaml:"components"`
	PageTitle       PageTitleResult `json:"page_title" yaml:"page_title"`
	TLSStatus       TLSStatus       `json:"tls_status" yaml:"tls_status"`
	Narrative       *string         `json:"narrative" yaml:"narrative"`
	AnalysisLatency Duration        `json:"analysis_latency" yaml:"analysis_latency"`
	Error           *string         `json:"error" yaml:"error"`
}

// Failed reports whether the analysis ended in the Failed state.
func (r AnalysisResult) Failed() bool {
	return r.Error != nil
}

// Complete marks the result as completed with the given narrative.
func (r *AnalysisResult) Complete(narrative string) {
	r.Narrative = &narrative
	r.Error = nil
}

// Fail marks the result as failed with the given reason.
func (r *AnalysisResult) Fail(reason string) {
	r.Error = &reason
	r.Narrative = nil
}

// BatchResult holds one AnalysisResult per input URL, in input order.
type BatchResult []AnalysisResult

// BatchSummary counts outcomes across a batch.
type BatchSummary struct {
	Total        int `json:"total" yaml:"total"`
	Completed    int `json:"completed" yaml:"completed"`
	Failed       int `json:"failed" yaml:"failed"`
	TitleErrors  int `json:"title_errors" yaml:"title_errors"`
	TLSSecure    int `json:"tls_secure" yaml:"tls_secure"`
	TLSNotSecure int `json:"tls_not_secure" yaml:"tls_not_secure"`
	TLSErrors    int `json:"tls_errors" yaml:"tls_errors"`
}

// Summary tallies the batch.
func (b BatchResult) Summary() BatchSummary {
	s := BatchSummary{Total: len(b)}
	for _, r := range b {
		if r.Failed() {
			s.Failed++
		} else {
			s.Completed++
		}
		if r.PageTitle.Failed() {
			s.TitleErrors++
		}
		switch r.TLSStatus.Kind() {
		case TLSSecure:
			s.TLSSecure++
		case TLSFailed:
			s.TLSErrors++
		default:
			s.TLSNotSecure++
		}
	}
	return s
}

// FeedResult is the non-fatal outcome of a feed fetch: the URLs retrieved,
// or an empty list and the reason the feed could not be read.
type FeedResult struct {
	URLs  []string `json:"urls" yaml:"urls"`
	Error string   `json:"error,omitempty" yaml:"error,omitempty"`
}
