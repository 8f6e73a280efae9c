// Package llm translates caption text with a large language model.
package llm

//go:generate mockgen -destination=mocks/mock_translator.go -package=mocks . Translator

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrEmptyTranslation is returned when the model answered without any text.
var ErrEmptyTranslation = errors.New("llm: translation response has no text")

// Translator turns source text into its translation for one fixed language pair.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// LanguagePair names the source and target languages the way the prompt
// mentions them.
type LanguagePair struct {
	Source string
	Target string
}

// DefaultLanguagePair is English to Spanish.
var DefaultLanguagePair = LanguagePair{Source: "inglés", Target: "español"}

// BuildPrompt is the single user turn sent to the model: natural, fluent
// translation and nothing else.
func BuildPrompt(pair LanguagePair, text string) string {
	var b strings.Builder
	b.WriteString("Traduce el siguiente texto del ")
	b.WriteString(pair.Source)
	b.WriteString(" al ")
	b.WriteString(pair.Target)
	b.WriteString(" de manera natural y fluida. Solo proporciona la traducción sin explicaciones adicionales:\n\n\"")
	b.WriteString(text)
	b.WriteString("\"")
	return b.String()
}

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderStub      = "stub"

	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultMaxTokens      = 1000
)

// Config selects and configures the translation provider.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	Languages LanguagePair
}

// New builds the configured translator.
func New(cfg Config, log *zap.SugaredLogger) (Translator, error) {
	if cfg.Languages == (LanguagePair{}) {
		cfg.Languages = DefaultLanguagePair
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	switch cfg.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicTranslator(cfg, log)
	case ProviderOpenAI:
		return NewOpenAITranslator(cfg, log)
	case ProviderStub:
		return NewStubTranslator(nil), nil
	default:
		return nil, errors.Errorf("llm: unknown translation provider %q", cfg.Provider)
	}
}
