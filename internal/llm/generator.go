// Package llm provides the text-generation collaborator that turns a composed
// prompt into an analysis narrative.
package llm

import (
	"context"

	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

// Generator produces analysis text for a prompt. Implementations return a
// *GenerationError on failure and must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DisabledGenerator is installed when no API key is configured. Every call
// fails with KindRejected so signal gathering still runs.
type DisabledGenerator struct{}

// Generate implements Generator.
func (DisabledGenerator) Generate(context.Context, string) (string, error) {
	return "", &GenerationError{Kind: KindRejected, Err: sharedErrors.ErrGeneratorDisabled}
}
