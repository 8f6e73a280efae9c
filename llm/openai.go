package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mrsingh-rishi/live-captions/logger"
)

// OpenAITranslator calls the OpenAI chat completions API.
type OpenAITranslator struct {
	Client    *openai.Client
	Model     string
	MaxTokens int
	Languages LanguagePair
	log       *zap.SugaredLogger
}

func NewOpenAITranslator(cfg Config, log *zap.SugaredLogger) (*OpenAITranslator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPEN_AI_API_KEY is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	maxTokens := int(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	languages := cfg.Languages
	if languages == (LanguagePair{}) {
		languages = DefaultLanguagePair
	}

	return &OpenAITranslator{
		Client:    openai.NewClientWithConfig(clientConfig),
		Model:     model,
		MaxTokens: maxTokens,
		Languages: languages,
		log:       logger.OrNop(log).Named("openai"),
	}, nil
}

func (c *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	c.log.Debugw("Sending text to OpenAI", "model", c.Model, "chars", len(text))

	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(c.Languages, text)},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyTranslation
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", ErrEmptyTranslation
	}
	return translated, nil
}
