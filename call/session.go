// Package call binds one client connection to one caption pipeline.
package call

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrsingh-rishi/live-captions/llm"
	"github.com/mrsingh-rishi/live-captions/logger"
	"github.com/mrsingh-rishi/live-captions/pipeline"
	"github.com/mrsingh-rishi/live-captions/stt"
)

// Session is one caption session: a recognizer fed by the client's audio and
// the controller that owns its pipeline state.
type Session struct {
	ID         string
	Encoding   stt.Encoding
	Controller *pipeline.Controller

	recognizer stt.StreamingRecognizer
	log        *zap.SugaredLogger

	once   sync.Once
	cancel context.CancelFunc
}

// Open starts the session's controller loop. It runs until Close or until ctx
// is done.
func (s *Session) Open(ctx context.Context) {
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		go func() {
			if err := s.Controller.Run(ctx); err != nil {
				s.log.Errorw("Caption pipeline exited", "error", err)
			}
		}()
		s.log.Infow("Caption session opened", "encoding", s.Encoding.Name)
	})
}

// Feed passes client audio to the recognizer.
func (s *Session) Feed(chunk []byte) {
	s.recognizer.Feed(chunk)
}

// Close stops the pipeline and waits for its loop to exit.
func (s *Session) Close() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.Controller.Done()
	s.log.Infow("Caption session closed")
}

// Factory builds sessions from shared settings. The translator is shared by
// every session.
type Factory struct {
	STT        stt.Config
	Translator llm.Translator
	Options    []pipeline.Option
	Log        *zap.SugaredLogger
}

// NewSession builds an unopened session whose recognizer expects enc audio.
func (f *Factory) NewSession(enc stt.Encoding) (*Session, error) {
	if f.Translator == nil {
		return nil, errors.New("call: translator is required")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Wrap(err, "generate session id")
	}
	log := logger.OrNop(f.Log).With("session", id.String())

	rec, err := stt.New(f.STT, enc, log.Named("stt"))
	if err != nil {
		return nil, errors.Wrap(err, "create recognizer")
	}

	opts := append([]pipeline.Option{pipeline.WithLogger(log.Named("pipeline"))}, f.Options...)
	return &Session{
		ID:         id.String(),
		Encoding:   enc,
		Controller: pipeline.NewController(rec, f.Translator, opts...),
		recognizer: rec,
		log:        log,
	}, nil
}

// Registry tracks live sessions by ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove forgets the session and reports whether it was registered.
func (r *Registry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// IDs lists registered session IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes and forgets every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
