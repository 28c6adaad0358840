package llm

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindTransport     Kind = "transport"
	KindRateLimited   Kind = "rate_limited"
	KindRejected      Kind = "rejected"
	KindEmptyResponse Kind = "empty_response"
	KindTimeout       Kind = "timeout"
)

// GenerationError is returned by Generator implementations.
type GenerationError struct {
	Kind       Kind
	StatusCode int // HTTP status from the service, 0 if none was received
	Err        error
}

func (e *GenerationError) Error() string {
	msg := "text generation failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (%s, HTTP %d)", msg, e.Kind, e.StatusCode)
	} else {
		msg = fmt.Sprintf("%s (%s)", msg, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Transient reports whether a retry may succeed.
func (e *GenerationError) Transient() bool {
	switch e.Kind {
	case KindTransport, KindRateLimited, KindTimeout:
		return true
	default:
		return false
	}
}

// IsTransient returns true if err is a retryable GenerationError.
func IsTransient(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Transient()
}

// KindOf returns the kind of a GenerationError, or "" for other errors.
func KindOf(err error) Kind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}
