package constants

import "time"

const (
	// DefaultFetchTimeout bounds the page title GET.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultHandshakeTimeout bounds the TCP connect plus TLS handshake.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultGenerationTimeout bounds one call to the text-generation service.
	DefaultGenerationTimeout = 60 * time.Second
	// DefaultFeedTimeout bounds one feed download attempt.
	DefaultFeedTimeout = 10 * time.Second
	// DefaultAnalysisTimeout bounds a whole per-URL analysis inside a batch. It
	// covers the fetch and handshake timeouts plus every generation attempt at
	// the default retry count, with room for backoff. A shorter value ends
	// generation early with a timeout failure.
	DefaultAnalysisTimeout = 5 * time.Minute
)

const (
	// DefaultTLSPort is the port the TLS inspector dials.
	DefaultTLSPort = "443"
	// MaxTitleBodyBytes caps how much of a page we read looking for <title>.
	MaxTitleBodyBytes = 5 << 20
	// MaxFeedBodyBytes caps the size of a downloaded feed.
	MaxFeedBodyBytes = 10 << 20
	// MaxRequestBodyBytes caps API request bodies.
	MaxRequestBodyBytes = 1 << 20
	// UserAgent identifies outbound page and feed requests.
	UserAgent = "phishscope/1.0 (+https://github.com/khanhnv2901/phishscope)"
)

const (
	// DefaultBatchConcurrency is the number of in-flight analyses in a batch.
	DefaultBatchConcurrency = 4
	// MaxBatchConcurrency is the upper bound accepted from configuration.
	MaxBatchConcurrency = 16
	// DefaultMaxBatch caps how many URLs one API batch may carry.
	DefaultMaxBatch = 100
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-3.5-turbo"
)
