// Package stt adapts continuous speech recognition backends to a stream of
// types.RecognitionEvent.
package stt

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrsingh-rishi/live-captions/types"
)

var (
	// ErrUnsupported means no recognition backend is available in this environment.
	ErrUnsupported = errors.New("stt: speech recognition is not supported in this environment")
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("stt: recognizer already running")
)

// Sink receives recognition events in emission order. It must not block.
type Sink func(types.RecognitionEvent)

// Recognizer is a continuous, interim-result-capable recognition session.
//
// Start returns once the session is requested; the session reports
// RecognitionStart when it is live and RecognitionEnd when it is over, for any
// reason including Stop. A recognizer can be started again after End.
type Recognizer interface {
	Supported() bool
	Start(ctx context.Context, sink Sink) error
	Stop() error
}

// StreamingRecognizer is a Recognizer fed with raw audio by the caller.
type StreamingRecognizer interface {
	Recognizer
	Feed(chunk []byte)
}

// Encoding describes the raw audio a client streams.
type Encoding struct {
	Name       string
	SampleRate int
}

var (
	// EncodingLinear16 is 16-bit PCM at 16 kHz, what browser clients send.
	EncodingLinear16 = Encoding{Name: "linear16", SampleRate: 16000}
	// EncodingMulaw is 8 kHz mu-law, what Twilio media streams carry.
	EncodingMulaw = Encoding{Name: "mulaw", SampleRate: 8000}
)

const (
	BackendDeepgram = "deepgram"
	BackendStub     = "stub"
)

// Config selects and configures the recognition backend.
type Config struct {
	Backend  string
	APIKey   string
	URL      string
	Model    string
	Language string
}

// New builds a recognizer for one caption session. A deepgram backend without
// an API key yields an unsupported recognizer rather than an error.
func New(cfg Config, enc Encoding, log *zap.SugaredLogger) (StreamingRecognizer, error) {
	switch cfg.Backend {
	case BackendStub:
		return NewStubRecognizer(DemoStubRecognizerConfig()), nil
	case BackendDeepgram, "":
		if cfg.APIKey == "" {
			return Unsupported{}, nil
		}
		return NewDeepgramRecognizer(DeepgramConfig{
			APIKey:   cfg.APIKey,
			URL:      cfg.URL,
			Model:    cfg.Model,
			Language: cfg.Language,
			Encoding: enc,
		}, log)
	default:
		return nil, errors.Errorf("stt: unknown recognizer backend %q", cfg.Backend)
	}
}

// Unsupported is the recognizer of an environment with no recognition backend.
type Unsupported struct{}

func (Unsupported) Supported() bool { return false }

func (Unsupported) Start(context.Context, Sink) error { return ErrUnsupported }

func (Unsupported) Stop() error { return nil }

func (Unsupported) Feed([]byte) {}
