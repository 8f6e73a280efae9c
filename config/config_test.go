package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/live-captions/llm"
	"github.com/mrsingh-rishi/live-captions/stt"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, stt.BackendDeepgram, cfg.Recognizer)
	assert.Equal(t, llm.ProviderAnthropic, cfg.TranslatorProvider)
	assert.Equal(t, llm.DefaultAnthropicModel, cfg.AnthropicModel)
	assert.Equal(t, int64(1000), cfg.MaxTokens)
	assert.Equal(t, 2*time.Second, cfg.QuietPeriod)
	assert.Equal(t, 5, cfg.MaxRestarts)
	assert.Equal(t, "America/Mexico_City", cfg.Timezone)
	assert.False(t, cfg.TwilioEnabled())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":8080")
	t.Setenv("RECOGNIZER", "stub")
	t.Setenv("TRANSLATOR_PROVIDER", "openai")
	t.Setenv("OPEN_AI_API_KEY", "sk-test")
	t.Setenv("QUIET_PERIOD", "1500ms")
	t.Setenv("MAX_RESTARTS", "2")
	t.Setenv("TRANSLATION_MAX_TOKENS", "256")
	t.Setenv("STOPPED_SESSION_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, stt.BackendStub, cfg.Recognizer)
	assert.Equal(t, 1500*time.Millisecond, cfg.QuietPeriod)
	assert.Equal(t, 2, cfg.MaxRestarts)
	assert.Equal(t, 5*time.Minute, cfg.StoppedSessionTTL)

	lc := cfg.LLM()
	assert.Equal(t, llm.ProviderOpenAI, lc.Provider)
	assert.Equal(t, "sk-test", lc.APIKey)
	assert.Equal(t, llm.DefaultOpenAIModel, lc.Model)
	assert.Equal(t, int64(256), lc.MaxTokens)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	t.Setenv("QUIET_PERIOD", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("QUIET_PERIOD", "")
	t.Setenv("MAX_RESTARTS", "many")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("MAX_RESTARTS", "")
	t.Setenv("STOPPED_SESSION_TTL", "forever")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		cfg.AnthropicAPIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing anthropic key", func(c *Config) { c.AnthropicAPIKey = "" }, "ANTHROPIC_API_KEY"},
		{"missing openai key", func(c *Config) { c.TranslatorProvider = llm.ProviderOpenAI }, "OPEN_AI_API_KEY"},
		{"stub translator needs no key", func(c *Config) {
			c.TranslatorProvider = llm.ProviderStub
			c.AnthropicAPIKey = ""
		}, ""},
		{"unknown provider", func(c *Config) { c.TranslatorProvider = "babelfish" }, "TRANSLATOR_PROVIDER"},
		{"unknown recognizer", func(c *Config) { c.Recognizer = "ears" }, "RECOGNIZER"},
		{"non positive quiet period", func(c *Config) { c.QuietPeriod = 0 }, "QUIET_PERIOD"},
		{"negative restarts", func(c *Config) { c.MaxRestarts = -1 }, "MAX_RESTARTS"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "TIMEZONE"},
		{"partial twilio", func(c *Config) { c.TwilioAccountSID = "AC123" }, "TWILIO_ACCOUNT_SID"},
		{"full twilio", func(c *Config) {
			c.TwilioAccountSID = "AC123"
			c.TwilioAuthToken = "token"
			c.TwilioFromNumber = "+15550000000"
			c.BaseURL = "https://captions.example.com/"
			c.BaseWSURL = "wss://captions.example.com/"
		}, ""},
		{"deepgram without key is allowed", func(c *Config) { c.DeepgramAPIKey = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Timezone = "America/Mexico_City"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Mexico_City", loc.String())
}

func TestSTT(t *testing.T) {
	cfg := &Config{Recognizer: stt.BackendDeepgram, DeepgramAPIKey: "dg", SourceLanguage: "en-GB"}
	sc := cfg.STT()
	assert.Equal(t, "dg", sc.APIKey)
	assert.Equal(t, "en-GB", sc.Language)
}
