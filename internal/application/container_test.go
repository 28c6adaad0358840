package application

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/phishscope/internal/config"
	"github.com/khanhnv2901/phishscope/internal/llm"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

func loadConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PHISHSCOPE_LLM_API_KEY", "")
	v, err := config.New()
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestNewContainerWithoutKeyDisablesGeneration(t *testing.T) {
	c, err := NewContainer(loadConfig(t, nil), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if _, ok := c.Generator.(llm.DisabledGenerator); !ok {
		t.Fatalf("expected DisabledGenerator, got %T", c.Generator)
	}
	if c.Health.GenerationEnabled() {
		t.Fatal("expected generation to be reported disabled")
	}
	if c.Runner == nil || c.Orchestrator == nil || c.Feed == nil || c.Metrics == nil {
		t.Fatalf("container not fully wired: %+v", c)
	}

	_, err = c.Generator.Generate(context.Background(), "prompt")
	if !errors.Is(err, sharedErrors.ErrGeneratorDisabled) {
		t.Fatalf("expected ErrGeneratorDisabled, got %v", err)
	}
}

func TestNewContainerWithKeyUsesOpenAI(t *testing.T) {
	cfg := loadConfig(t, map[string]any{"llm.api_key": "sk-test", "llm.max_retries": 0})
	c, err := NewContainer(cfg, nil)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if _, ok := c.Generator.(*llm.OpenAIGenerator); !ok {
		t.Fatalf("expected OpenAIGenerator, got %T", c.Generator)
	}
	if !c.Health.GenerationEnabled() {
		t.Fatal("expected generation to be reported enabled")
	}
}

func TestNewContainerRequiresConfig(t *testing.T) {
	if _, err := NewContainer(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestHealthDrain(t *testing.T) {
	h := &Health{}
	if err := h.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := h.Ready(context.Background()); err != nil {
		t.Fatalf("Ready before drain: %v", err)
	}
	h.Drain()
	if err := h.Ready(context.Background()); err == nil {
		t.Fatal("expected Ready to fail after drain")
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("NewLogger(%s): %v", format, err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("%s: expected debug level to be enabled", format)
		}
	}
	if _, err := NewLogger(config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
