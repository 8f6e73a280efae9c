package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrsingh-rishi/live-captions/logger"
)

// AnthropicTranslator calls the Anthropic Messages API.
type AnthropicTranslator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	languages LanguagePair
	log       *zap.SugaredLogger
}

func NewAnthropicTranslator(cfg Config, log *zap.SugaredLogger) (*AnthropicTranslator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	languages := cfg.Languages
	if languages == (LanguagePair{}) {
		languages = DefaultLanguagePair
	}

	// Failed translations are not retried.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicTranslator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		languages: languages,
		log:       logger.OrNop(log).Named("anthropic"),
	}, nil
}

func (t *AnthropicTranslator) Translate(ctx context.Context, text string) (string, error) {
	t.log.Debugw("Sending text to Anthropic", "model", t.model, "chars", len(text))

	msg, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: t.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(t.languages, text))),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "anthropic: create message")
	}
	if len(msg.Content) == 0 {
		return "", ErrEmptyTranslation
	}

	translated := strings.TrimSpace(msg.Content[0].Text)
	if translated == "" {
		return "", ErrEmptyTranslation
	}
	return translated, nil
}
