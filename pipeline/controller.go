// Package pipeline owns the capture, accumulate and translate loop of one
// caption session.
//
// A Controller runs a single event loop. Recognizer events, debounce timer
// fires, translation completions and user commands are all posted to one
// mailbox and handled one at a time, so the pipeline state is only ever
// touched by the loop goroutine.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrsingh-rishi/live-captions/debounce"
	"github.com/mrsingh-rishi/live-captions/llm"
	"github.com/mrsingh-rishi/live-captions/logger"
	"github.com/mrsingh-rishi/live-captions/model"
	"github.com/mrsingh-rishi/live-captions/queue"
	"github.com/mrsingh-rishi/live-captions/stt"
	"github.com/mrsingh-rishi/live-captions/types"
)

const (
	DefaultQuietPeriod      = 2 * time.Second
	DefaultMaxRestarts      = 5
	DefaultTranslateTimeout = 30 * time.Second
)

var (
	// ErrUnsupported is returned by Start when no recognizer is available.
	ErrUnsupported = stt.ErrUnsupported
	// ErrClosed is returned once the controller's Run loop has exited.
	ErrClosed = errors.New("pipeline: controller is closed")
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = logger.OrNop(log) }
}

// WithQuietPeriod sets how long finalized text must rest before it is translated.
func WithQuietPeriod(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.quietPeriod = d
		}
	}
}

// WithMaxRestarts caps consecutive automatic recognizer restarts whose session
// never went live. Zero disables automatic restarts.
func WithMaxRestarts(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxRestarts = n
		}
	}
}

// WithLocation sets the zone record timestamps are formatted in.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.location = loc
		}
	}
}

func WithTranslateTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.translateTimeout = d
		}
	}
}

type commandKind int

const (
	commandStart commandKind = iota
	commandStop
	commandClear
)

type (
	commandMsg struct {
		kind  commandKind
		reply chan error
	}
	snapshotMsg struct {
		reply chan State
	}
	publishMsg     struct{}
	recognitionMsg struct {
		session uint64
		event   types.RecognitionEvent
	}
	flushMsg struct {
		gen uint64
	}
	translatedMsg struct {
		original   string
		translated string
		capturedAt time.Time
		err        error
	}
)

// Controller is the caption pipeline of one session: Listening or Stopped,
// with an orthogonal Translating flag while translations are in flight.
type Controller struct {
	recognizer stt.Recognizer
	translator llm.Translator
	clock      clockwork.Clock
	debouncer  *debounce.Debouncer
	log        *zap.SugaredLogger

	quietPeriod      time.Duration
	maxRestarts      int
	location         *time.Location
	translateTimeout time.Duration

	mailbox *queue.Mailbox[any]
	running atomic.Bool
	done    chan struct{}

	subMu     sync.Mutex
	subs      map[int]chan State
	nextSub   int
	subClosed bool

	// Owned by the Run goroutine.
	ctx       context.Context
	listening bool
	status    model.Status
	stopped   model.Status
	buffer    string
	interim   string
	history   []model.TranslationRecord
	session   uint64
	flushGen  uint64
	restarts  int
	inFlight  int
}

func NewController(recognizer stt.Recognizer, translator llm.Translator, opts ...Option) *Controller {
	c := &Controller{
		recognizer:       recognizer,
		translator:       translator,
		clock:            clockwork.NewRealClock(),
		log:              logger.Nop(),
		quietPeriod:      DefaultQuietPeriod,
		maxRestarts:      DefaultMaxRestarts,
		location:         time.UTC,
		translateTimeout: DefaultTranslateTimeout,
		mailbox:          queue.NewMailbox[any](),
		done:             make(chan struct{}),
		subs:             make(map[int]chan State),
		status:           model.StatusReady,
		stopped:          model.StatusStopped,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.debouncer = debounce.New(c.clock)
	if !recognizer.Supported() {
		c.status = model.StatusUnsupported
	}
	return c
}

// Run processes events until ctx is done. On exit the recognizer is stopped,
// any pending flush is cancelled and subscriptions are closed.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("pipeline: controller already running")
	}
	c.ctx = ctx
	defer c.shutdown()

	c.publish()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.mailbox.Ready():
			for {
				msg, ok := c.mailbox.Receive()
				if !ok {
					break
				}
				if c.handle(msg) {
					c.publish()
				}
			}
		}
	}
}

// Start moves Stopped to Listening. Starting while listening is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	return c.command(ctx, commandStart)
}

// Stop moves Listening to Stopped and flushes any untranslated text at once.
func (c *Controller) Stop(ctx context.Context) error {
	return c.command(ctx, commandStop)
}

// Clear empties the history and the buffer without changing Listening/Stopped.
func (c *Controller) Clear(ctx context.Context) error {
	return c.command(ctx, commandClear)
}

// Snapshot returns the current state after every previously posted event has
// been handled.
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if !c.mailbox.Post(snapshotMsg{reply: reply}) {
		return State{}, ErrClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-c.done:
		select {
		case s := <-reply:
			return s, nil
		default:
			return State{}, ErrClosed
		}
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Subscribe delivers a snapshot after every state change. Slow readers only
// see the latest state. The channel is closed by cancel or when Run exits.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.subMu.Lock()
	if c.subClosed {
		c.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	c.mailbox.Post(publishMsg{})

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Done is closed when Run has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) command(ctx context.Context, kind commandKind) error {
	reply := make(chan error, 1)
	if !c.mailbox.Post(commandMsg{kind: kind, reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) sinkFor(session uint64) stt.Sink {
	return func(ev types.RecognitionEvent) {
		c.mailbox.Post(recognitionMsg{session: session, event: ev})
	}
}

// handle applies one message and reports whether subscribers should be told.
func (c *Controller) handle(msg any) bool {
	switch m := msg.(type) {
	case commandMsg:
		m.reply <- c.handleCommand(m.kind)
	case snapshotMsg:
		m.reply <- c.snapshot()
		return false
	case publishMsg:
	case recognitionMsg:
		if m.session != c.session {
			return false
		}
		c.handleRecognition(m.event)
	case flushMsg:
		if m.gen != c.flushGen {
			return false
		}
		c.flush()
	case translatedMsg:
		c.handleTranslated(m)
	default:
		c.log.Warnw("Ignoring unknown pipeline message", "type", msg)
		return false
	}
	return true
}

func (c *Controller) handleCommand(kind commandKind) error {
	switch kind {
	case commandStart:
		return c.start()
	case commandStop:
		c.stop(model.StatusStopped)
		return nil
	case commandClear:
		c.history = nil
		c.buffer = ""
		c.interim = ""
		return nil
	default:
		return errors.Errorf("pipeline: unknown command %d", kind)
	}
}

func (c *Controller) start() error {
	if !c.recognizer.Supported() {
		c.status = model.StatusUnsupported
		return ErrUnsupported
	}
	if c.listening {
		return nil
	}

	c.buffer = ""
	c.interim = ""
	c.restarts = 0
	if err := c.startRecognizer(); err != nil {
		if errors.Is(err, stt.ErrUnsupported) {
			c.status = model.StatusUnsupported
		}
		return errors.Wrap(err, "start recognizer")
	}
	c.listening = true
	c.log.Infow("Listening started", "session", c.session)
	return nil
}

func (c *Controller) startRecognizer() error {
	c.session++
	return c.recognizer.Start(c.ctx, c.sinkFor(c.session))
}

// stop is the Listening to Stopped transition: no restart, no pending flush,
// and whatever is buffered goes to translation immediately.
func (c *Controller) stop(status model.Status) {
	if !c.listening {
		return
	}
	c.listening = false
	if err := c.recognizer.Stop(); err != nil {
		c.log.Warnw("Error stopping recognizer", "error", err)
	}
	c.cancelFlush()
	c.status = status
	c.stopped = status
	c.log.Infow("Listening stopped", "session", c.session, "status", status)
	c.flush()
}

func (c *Controller) handleRecognition(ev types.RecognitionEvent) {
	switch ev.Kind {
	case types.RecognitionStart:
		if c.listening {
			c.restarts = 0
			c.status = model.StatusListening
		}

	case types.RecognitionResult:
		if !c.listening {
			return
		}
		c.restarts = 0

		var final, interim string
		for _, r := range ev.Results {
			if r.Final {
				final = appendFragment(final, r.Transcription)
			} else {
				interim += r.Transcription
			}
		}
		if final != "" {
			c.buffer = appendFragment(c.buffer, final)
			c.interim = ""
			c.scheduleFlush()
		} else {
			c.interim = interim
		}

	case types.RecognitionError:
		switch ev.Code {
		case types.ErrorNoSpeech:
			if c.listening {
				c.status = model.StatusNoSpeech
			}
		case types.ErrorNotAllowed:
			c.log.Warnw("Microphone permission denied", "error", ev.Err)
			c.stop(model.StatusPermissionDenied)
		case types.ErrorUnsupported:
			c.stop(model.StatusUnsupported)
		default:
			c.log.Warnw("Recognition error", "code", ev.Code, "error", ev.Err)
		}

	case types.RecognitionEnd:
		if !c.listening {
			return
		}
		c.restarts++
		if c.restarts > c.maxRestarts {
			c.log.Errorw("Recognizer keeps ending before going live, giving up", "restarts", c.maxRestarts)
			c.stop(model.StatusRestartExhausted)
			return
		}
		c.log.Infow("Recognizer session ended, restarting", "attempt", c.restarts)
		if err := c.startRecognizer(); err != nil {
			c.log.Errorw("Failed to restart recognizer", "error", err)
			c.stop(model.StatusStopped)
		}
	}
}

func (c *Controller) scheduleFlush() {
	c.flushGen++
	gen := c.flushGen
	c.debouncer.Schedule(c.quietPeriod, func() {
		c.mailbox.Post(flushMsg{gen: gen})
	})
}

func (c *Controller) cancelFlush() {
	c.flushGen++
	c.debouncer.Cancel()
}

// flush hands the whole buffer to the translator and clears it.
func (c *Controller) flush() {
	text := c.buffer
	c.buffer = ""
	c.interim = ""
	if strings.TrimSpace(text) == "" {
		return
	}

	c.inFlight++
	c.status = model.StatusTranslating
	capturedAt := c.clock.Now()
	ctx := c.ctx

	go func() {
		tctx, cancel := context.WithTimeout(ctx, c.translateTimeout)
		defer cancel()

		translated, err := c.translator.Translate(tctx, text)
		c.mailbox.Post(translatedMsg{
			original:   text,
			translated: translated,
			capturedAt: capturedAt,
			err:        err,
		})
	}()
}

func (c *Controller) handleTranslated(m translatedMsg) {
	c.inFlight--
	if m.err == nil && strings.TrimSpace(m.translated) == "" {
		m.err = llm.ErrEmptyTranslation
	}
	if m.err != nil {
		c.log.Errorw("Translation failed", "error", m.err, "chars", len(m.original))
		c.status = model.StatusTranslationError
		return
	}

	record := model.NewTranslationRecord(m.original, m.translated, m.capturedAt, c.location)
	c.history = append(c.history, record)
	c.log.Infow("Translated segment", "id", record.ID, "original", record.Original, "translated", record.Translated)

	if c.listening {
		c.status = model.StatusListening
	} else {
		c.status = c.stopped
	}
}

func (c *Controller) snapshot() State {
	history := make([]model.TranslationRecord, len(c.history))
	copy(history, c.history)
	return State{
		Listening:   c.listening,
		Translating: c.inFlight > 0,
		Status:      c.status,
		Message:     c.status.Message(),
		Buffer:      c.buffer,
		Interim:     c.interim,
		Capturing:   capturing(c.buffer, c.interim),
		History:     history,
	}
}

func (c *Controller) publish() {
	s := c.snapshot()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func (c *Controller) shutdown() {
	c.mailbox.Close()
	c.cancelFlush()
	if c.listening {
		c.listening = false
		if err := c.recognizer.Stop(); err != nil {
			c.log.Warnw("Error stopping recognizer", "error", err)
		}
	}
	close(c.done)

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subClosed = true
}
