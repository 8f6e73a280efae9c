package root

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	twilio "github.com/twilio/twilio-go"

	"github.com/mrsingh-rishi/live-captions/call"
	"github.com/mrsingh-rishi/live-captions/config"
	"github.com/mrsingh-rishi/live-captions/llm"
	"github.com/mrsingh-rishi/live-captions/logger"
	"github.com/mrsingh-rishi/live-captions/pipeline"
	"github.com/mrsingh-rishi/live-captions/server"
	"github.com/mrsingh-rishi/live-captions/stt"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the caption server",
		Long:  "Serve browser and Twilio audio streams and push live translated captions back.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.String("listen", ":3000", "Address to listen on (LISTEN_ADDR)")
	fs.String("log-level", "info", "Log level (LOG_LEVEL)")
	fs.String("recognizer", stt.BackendDeepgram, "Speech recognizer: deepgram or stub (RECOGNIZER)")
	fs.String("translator", llm.ProviderAnthropic, "Translator: anthropic, openai or stub (TRANSLATOR_PROVIDER)")
	fs.Duration("quiet-period", pipeline.DefaultQuietPeriod, "Silence before buffered text is translated (QUIET_PERIOD)")
	fs.Int("max-restarts", pipeline.DefaultMaxRestarts, "Consecutive recognizer restarts without results (MAX_RESTARTS)")
	fs.String("timezone", "America/Mexico_City", "Zone caption timestamps are shown in (TIMEZONE)")

	return cmd
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("listen") {
		cfg.ListenAddr, _ = fs.GetString("listen")
	}
	if fs.Changed("log-level") {
		cfg.LogLevel, _ = fs.GetString("log-level")
	}
	if fs.Changed("recognizer") {
		cfg.Recognizer, _ = fs.GetString("recognizer")
	}
	if fs.Changed("translator") {
		cfg.TranslatorProvider, _ = fs.GetString("translator")
	}
	if fs.Changed("quiet-period") {
		cfg.QuietPeriod, _ = fs.GetDuration("quiet-period")
	}
	if fs.Changed("max-restarts") {
		cfg.MaxRestarts, _ = fs.GetInt("max-restarts")
	}
	if fs.Changed("timezone") {
		cfg.Timezone, _ = fs.GetString("timezone")
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	translator, err := llm.New(cfg.LLM(), log.Named("llm"))
	if err != nil {
		return errors.Wrap(err, "create translator")
	}

	if cfg.Recognizer == stt.BackendDeepgram && cfg.DeepgramAPIKey == "" {
		log.Warnw("DEEPGRAM_API_KEY is not set, speech recognition is unsupported")
	}

	factory := &call.Factory{
		STT:        cfg.STT(),
		Translator: translator,
		Options: []pipeline.Option{
			pipeline.WithQuietPeriod(cfg.QuietPeriod),
			pipeline.WithMaxRestarts(cfg.MaxRestarts),
			pipeline.WithLocation(loc),
			pipeline.WithTranslateTimeout(cfg.TranslateTimeout),
		},
		Log: log,
	}

	opts := server.Options{
		Factory:           factory,
		AuthSecret:        cfg.AuthSecret,
		StoppedSessionTTL: cfg.StoppedSessionTTL,
		Log:               log.Named("server"),
	}
	if cfg.TwilioEnabled() {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
		opts.Twilio = &server.Twilio{
			Client:     client.Api,
			FromNumber: cfg.TwilioFromNumber,
			BaseURL:    cfg.BaseURL,
			BaseWSURL:  cfg.BaseWSURL,
		}
	} else {
		log.Infow("Twilio is not configured, phone-call routes are disabled")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(ctx, opts)
	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(cfg.ListenAddr) }()

	select {
	case err := <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
