package llm

import (
	"context"
	"strings"
	"time"
)

// StubTranslatorConfig configures the stub translator behavior.
type StubTranslatorConfig struct {
	// ProcessingDelay simulates translation latency.
	ProcessingDelay time.Duration
	// Dictionary maps trimmed source text to its translation. Unknown text is
	// returned with a "[es] " prefix.
	Dictionary map[string]string
	// Err fails every call when set.
	Err error
}

// DefaultStubTranslatorConfig returns sensible defaults for local runs.
func DefaultStubTranslatorConfig() *StubTranslatorConfig {
	return &StubTranslatorConfig{
		ProcessingDelay: 50 * time.Millisecond,
		Dictionary: map[string]string{
			"Good morning everyone.":                     "Buenos días a todos.",
			"Welcome to the conference.":                 "Bienvenidos a la conferencia.",
			"Today we talk about real-time translation.": "Hoy hablamos de traducción en tiempo real.",
			"hello world":                                "hola mundo",
		},
	}
}

// StubTranslator returns deterministic translations without a network call.
type StubTranslator struct {
	config *StubTranslatorConfig
}

func NewStubTranslator(config *StubTranslatorConfig) *StubTranslator {
	if config == nil {
		config = DefaultStubTranslatorConfig()
	}
	return &StubTranslator{config: config}
}

func (s *StubTranslator) Translate(ctx context.Context, text string) (string, error) {
	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.config.Err != nil {
		return "", s.config.Err
	}

	text = strings.TrimSpace(text)
	if translated, ok := s.config.Dictionary[text]; ok {
		return translated, nil
	}
	return "[es] " + text, nil
}
