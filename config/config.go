// Package config loads service settings from .env, the environment and flags.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/live-captions/llm"
	"github.com/mrsingh-rishi/live-captions/pipeline"
	"github.com/mrsingh-rishi/live-captions/stt"
)

// Config holds the configuration for the caption service
type Config struct {
	ListenAddr string
	LogLevel   string

	// Speech recognition
	Recognizer     string
	DeepgramAPIKey string
	DeepgramURL    string
	DeepgramModel  string
	SourceLanguage string

	// Translation
	TranslatorProvider string
	AnthropicAPIKey    string
	AnthropicBaseURL   string
	AnthropicModel     string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	MaxTokens          int64
	TranslateTimeout   time.Duration

	// Pipeline
	QuietPeriod time.Duration
	MaxRestarts int
	Timezone    string

	// Twilio phone-call ingress
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	BaseURL          string
	BaseWSURL        string
	// StoppedSessionTTL is how long a stopped call session stays readable.
	// Zero uses the server default, negative disables expiry.
	StoppedSessionTTL time.Duration

	AuthSecret string
}

// Load reads .env if present, then the environment, over the defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         ":3000",
		LogLevel:           "info",
		Recognizer:         stt.BackendDeepgram,
		SourceLanguage:     "en-US",
		TranslatorProvider: llm.ProviderAnthropic,
		AnthropicModel:     llm.DefaultAnthropicModel,
		OpenAIModel:        llm.DefaultOpenAIModel,
		MaxTokens:          llm.DefaultMaxTokens,
		TranslateTimeout:   pipeline.DefaultTranslateTimeout,
		QuietPeriod:        pipeline.DefaultQuietPeriod,
		MaxRestarts:        pipeline.DefaultMaxRestarts,
		Timezone:           "America/Mexico_City",
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Recognizer = getEnv("RECOGNIZER", cfg.Recognizer)
	cfg.DeepgramAPIKey = getEnv("DEEPGRAM_API_KEY", "")
	cfg.DeepgramURL = getEnv("DEEPGRAM_URL", "")
	cfg.DeepgramModel = getEnv("DEEPGRAM_MODEL", "")
	cfg.SourceLanguage = getEnv("SOURCE_LANGUAGE", cfg.SourceLanguage)

	cfg.TranslatorProvider = getEnv("TRANSLATOR_PROVIDER", cfg.TranslatorProvider)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", "")
	cfg.AnthropicBaseURL = getEnv("ANTHROPIC_BASE_URL", "")
	cfg.AnthropicModel = getEnv("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.OpenAIAPIKey = getEnv("OPEN_AI_API_KEY", "")
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "")
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)

	if v := getEnv("TRANSLATION_MAX_TOKENS", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid TRANSLATION_MAX_TOKENS %q", v)
		}
		cfg.MaxTokens = n
	}
	if v := getEnv("TRANSLATE_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid TRANSLATE_TIMEOUT %q", v)
		}
		cfg.TranslateTimeout = d
	}
	if v := getEnv("QUIET_PERIOD", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid QUIET_PERIOD %q", v)
		}
		cfg.QuietPeriod = d
	}
	if v := getEnv("MAX_RESTARTS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid MAX_RESTARTS %q", v)
		}
		cfg.MaxRestarts = n
	}
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)

	cfg.TwilioAccountSID = getEnv("TWILIO_ACCOUNT_SID", "")
	cfg.TwilioAuthToken = getEnv("TWILIO_AUTH_TOKEN", "")
	cfg.TwilioFromNumber = getEnv("TWILIO_FROM_NUMBER", "")
	cfg.BaseURL = getEnv("BASE_URL", "")
	cfg.BaseWSURL = getEnv("BASE_WS_URL", "")
	if v := getEnv("STOPPED_SESSION_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid STOPPED_SESSION_TTL %q", v)
		}
		cfg.StoppedSessionTTL = d
	}

	cfg.AuthSecret = getEnv("AUTH_SECRET", "")

	return cfg, nil
}

// Validate checks the settings after flag overrides have been applied.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR is required")
	}

	switch c.Recognizer {
	case stt.BackendDeepgram, stt.BackendStub:
	default:
		return errors.Errorf("invalid RECOGNIZER %q (must be deepgram or stub)", c.Recognizer)
	}

	switch c.TranslatorProvider {
	case llm.ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic translator")
		}
	case llm.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPEN_AI_API_KEY is required for the openai translator")
		}
	case llm.ProviderStub:
	default:
		return errors.Errorf("invalid TRANSLATOR_PROVIDER %q (must be anthropic, openai or stub)", c.TranslatorProvider)
	}

	if c.QuietPeriod <= 0 {
		return errors.New("QUIET_PERIOD must be positive")
	}
	if c.MaxRestarts < 0 {
		return errors.New("MAX_RESTARTS must not be negative")
	}
	if c.MaxTokens <= 0 {
		return errors.New("TRANSLATION_MAX_TOKENS must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	twilio := []string{c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFromNumber, c.BaseURL, c.BaseWSURL}
	set := 0
	for _, v := range twilio {
		if v != "" {
			set++
		}
	}
	if set > 0 && set < len(twilio) {
		return errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER, BASE_URL and BASE_WS_URL must be set together")
	}

	return nil
}

// TwilioEnabled reports whether the phone-call routes can be served.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != "" &&
		c.BaseURL != "" && c.BaseWSURL != ""
}

// Location is the zone record timestamps are shown in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid TIMEZONE %q", c.Timezone)
	}
	return loc, nil
}

// STT returns the recognizer settings.
func (c *Config) STT() stt.Config {
	return stt.Config{
		Backend:  c.Recognizer,
		APIKey:   c.DeepgramAPIKey,
		URL:      c.DeepgramURL,
		Model:    c.DeepgramModel,
		Language: c.SourceLanguage,
	}
}

// LLM returns the translator settings for the selected provider.
func (c *Config) LLM() llm.Config {
	cfg := llm.Config{
		Provider:  c.TranslatorProvider,
		MaxTokens: c.MaxTokens,
		Languages: llm.DefaultLanguagePair,
	}
	switch c.TranslatorProvider {
	case llm.ProviderOpenAI:
		cfg.APIKey = c.OpenAIAPIKey
		cfg.BaseURL = c.OpenAIBaseURL
		cfg.Model = c.OpenAIModel
	default:
		cfg.APIKey = c.AnthropicAPIKey
		cfg.BaseURL = c.AnthropicBaseURL
		cfg.Model = c.AnthropicModel
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
