package stt

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/live-captions/types"
)

// ScriptStep is one scripted event, emitted Delay after the previous step.
type ScriptStep struct {
	Delay time.Duration
	Event types.RecognitionEvent
}

// StubRecognizerConfig configures the stub recognizer behavior.
type StubRecognizerConfig struct {
	// Unsupported makes the stub behave like an environment without recognition.
	Unsupported bool
	// StartErr is returned by every Start call when set.
	StartErr error
	// Script is played after each Start.
	Script []ScriptStep
	// Loop replays Script until Stop.
	Loop bool
	// Unreachable sessions never go live: each Start is followed by a network
	// error and End, like a failed dial.
	Unreachable bool
}

// DemoStubRecognizerConfig scripts a short talk for local runs without a
// recognition backend.
func DemoStubRecognizerConfig() *StubRecognizerConfig {
	line := func(interim, final string) []ScriptStep {
		return []ScriptStep{
			{Delay: 400 * time.Millisecond, Event: types.ResultEvent(types.TranscriptEvent{Transcription: interim, Confidence: 0.6})},
			{Delay: 600 * time.Millisecond, Event: types.ResultEvent(types.TranscriptEvent{Transcription: final, Confidence: 0.95, Final: true})},
		}
	}

	var script []ScriptStep
	script = append(script, line("Good morning", "Good morning everyone.")...)
	script = append(script, line("Welcome to", "Welcome to the conference.")...)
	script = append(script, line("Today we", "Today we talk about real-time translation.")...)
	script = append(script, ScriptStep{Delay: 3 * time.Second, Event: types.ResultEvent()})

	return &StubRecognizerConfig{Script: script, Loop: true}
}

// StubRecognizer is a deterministic recognizer driven by a script or by Emit.
type StubRecognizer struct {
	config *StubRecognizerConfig

	mu      sync.Mutex
	sink    Sink
	running bool
	cancel  context.CancelFunc
	starts  int
	fed     int
}

// NewStubRecognizer creates a stub. A nil config gives an empty script.
func NewStubRecognizer(config *StubRecognizerConfig) *StubRecognizer {
	if config == nil {
		config = &StubRecognizerConfig{}
	}
	return &StubRecognizer{config: config}
}

func (s *StubRecognizer) Supported() bool {
	return !s.config.Unsupported
}

// Start reports RecognitionStart synchronously, then plays the script.
func (s *StubRecognizer) Start(ctx context.Context, sink Sink) error {
	if s.config.Unsupported {
		return ErrUnsupported
	}
	if s.config.StartErr != nil {
		return s.config.StartErr
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	sctx, cancel := context.WithCancel(ctx)
	s.sink = sink
	s.running = true
	s.cancel = cancel
	s.starts++
	s.mu.Unlock()

	if s.config.Unreachable {
		go s.fail(sctx, sink)
		return nil
	}

	sink(types.StartEvent())
	if len(s.config.Script) > 0 {
		go s.play(sctx, sink)
	}
	return nil
}

// Stop ends the session and reports RecognitionEnd.
func (s *StubRecognizer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	sink := s.end()
	s.mu.Unlock()

	sink(types.EndEvent())
	return nil
}

// Emit delivers ev to the live session. A RecognitionEnd ends the session as
// if the backend had closed it. Emit reports false when nothing is listening.
func (s *StubRecognizer) Emit(ev types.RecognitionEvent) bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	sink := s.sink
	if ev.Kind == types.RecognitionEnd {
		s.end()
	}
	s.mu.Unlock()

	sink(ev)
	return true
}

func (s *StubRecognizer) Feed(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fed += len(chunk)
}

// Starts counts successful Start calls.
func (s *StubRecognizer) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *StubRecognizer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// FedBytes counts audio bytes passed to Feed.
func (s *StubRecognizer) FedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fed
}

// end must be called with s.mu held.
func (s *StubRecognizer) end() Sink {
	sink := s.sink
	s.running = false
	s.sink = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return sink
}

func (s *StubRecognizer) fail(ctx context.Context, sink Sink) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.end()
	s.mu.Unlock()

	sink(types.ErrorEvent(types.ErrorNetwork, errors.New("stub: recognizer unreachable")))
	sink(types.EndEvent())
}

func (s *StubRecognizer) play(ctx context.Context, sink Sink) {
	for {
		for _, step := range s.config.Script {
			select {
			case <-time.After(step.Delay):
			case <-ctx.Done():
				return
			}
			if step.Event.Kind == types.RecognitionResult && len(step.Event.Results) == 0 {
				continue
			}
			// Sessions end under s.mu.
			s.mu.Lock()
			live := ctx.Err() == nil
			s.mu.Unlock()
			if !live {
				return
			}
			sink(step.Event)
		}
		if !s.config.Loop {
			return
		}
	}
}
