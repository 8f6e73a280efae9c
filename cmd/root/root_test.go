package root

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/live-captions/config"
)

func TestVersionCmd(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "live-captions version dev\n", out.String())
}

func TestServeFlags_Apply(t *testing.T) {
	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--listen", ":9000", "--quiet-period", "750ms", "--translator", "stub"}))

	cfg := &config.Config{
		ListenAddr:         ":3000",
		LogLevel:           "warn",
		TranslatorProvider: "anthropic",
		QuietPeriod:        2 * time.Second,
		MaxRestarts:        3,
	}
	applyFlags(cmd, cfg)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 750*time.Millisecond, cfg.QuietPeriod)
	assert.Equal(t, "stub", cfg.TranslatorProvider)
	assert.Equal(t, "warn", cfg.LogLevel, "unset flags keep the configured value")
	assert.Equal(t, 3, cfg.MaxRestarts)
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("TRANSLATOR_PROVIDER", "babelfish")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRANSLATOR_PROVIDER")
}
