package errors

import "errors"

// Domain errors
var (
	// Input errors
	ErrEmptyURL       = errors.New("url cannot be empty")
	ErrInvalidInput   = errors.New("invalid input")
	ErrMissingURLs    = errors.New("at least one url is required")
	ErrBatchTooLarge  = errors.New("batch exceeds maximum size")
	ErrUnsupportedFmt = errors.New("unsupported output format")

	// Feed errors
	ErrFeedNotConfigured = errors.New("feed url is not configured")
	ErrFeedUnavailable   = errors.New("feed unavailable")

	// Analysis errors
	ErrGeneratorDisabled = errors.New("text generation is not configured (set OPENAI_API_KEY or llm.api_key)")
	ErrAnalysisCancelled = errors.New("analysis cancelled")

	// Validation errors
	ErrValidation = errors.New("validation error")
)
