package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrsingh-rishi/live-captions/logger"
	"github.com/mrsingh-rishi/live-captions/types"
)

const (
	DefaultDeepgramURL      = "wss://api.deepgram.com/v1/listen"
	DefaultDeepgramModel    = "nova-2"
	DefaultDeepgramLanguage = "en-US"

	audioBacklog = 256
)

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)

// DeepgramConfig configures a streaming Deepgram session.
type DeepgramConfig struct {
	APIKey   string
	URL      string
	Model    string
	Language string
	Encoding Encoding
}

// DeepgramRecognizer streams audio to Deepgram's live endpoint with interim
// results enabled and reports the best alternative of every result.
type DeepgramRecognizer struct {
	apiKey   string
	endpoint string
	dialer   *gws.Dialer
	log      *zap.SugaredLogger
	audio    chan []byte

	mu      sync.Mutex
	running bool
	session uint64
	conn    *gws.Conn
	cancel  context.CancelFunc

	writeMu sync.Mutex
}

// TranscriptionMessage is the subset of a Deepgram live response we read.
type TranscriptionMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func NewDeepgramRecognizer(cfg DeepgramConfig, log *zap.SugaredLogger) (*DeepgramRecognizer, error) {
	endpoint, err := cfg.endpoint()
	if err != nil {
		return nil, err
	}
	return &DeepgramRecognizer{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		dialer: &gws.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		log:   logger.OrNop(log).Named("deepgram"),
		audio: make(chan []byte, audioBacklog),
	}, nil
}

func (c DeepgramConfig) endpoint() (string, error) {
	raw := c.URL
	if raw == "" {
		raw = DefaultDeepgramURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid deepgram url %q", raw)
	}

	model := c.Model
	if model == "" {
		model = DefaultDeepgramModel
	}
	lang := c.Language
	if lang == "" {
		lang = DefaultDeepgramLanguage
	}
	enc := c.Encoding
	if enc.Name == "" {
		enc = EncodingLinear16
	}

	q := u.Query()
	q.Set("model", model)
	q.Set("language", lang)
	q.Set("encoding", enc.Name)
	q.Set("sample_rate", strconv.Itoa(enc.SampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (dg *DeepgramRecognizer) Supported() bool {
	return dg.apiKey != ""
}

// Start dials Deepgram in the background. Dial failures are reported through
// sink: a 401/403 handshake as not-allowed, anything else as network.
func (dg *DeepgramRecognizer) Start(ctx context.Context, sink Sink) error {
	if sink == nil {
		return errors.New("stt: sink is required")
	}

	dg.mu.Lock()
	defer dg.mu.Unlock()
	if dg.running {
		return ErrAlreadyRunning
	}

	dg.drain()
	dg.session++
	sctx, cancel := context.WithCancel(ctx)
	dg.running = true
	dg.cancel = cancel
	go dg.run(sctx, dg.session, sink)
	return nil
}

// Stop sends CloseStream and closes the stream without waiting for the
// results Deepgram flushes in reply. End is still reported.
func (dg *DeepgramRecognizer) Stop() error {
	dg.mu.Lock()
	if !dg.running {
		dg.mu.Unlock()
		return nil
	}
	dg.running = false
	cancel, conn := dg.cancel, dg.conn
	dg.cancel, dg.conn = nil, nil
	dg.mu.Unlock()

	var err error
	if conn != nil {
		dg.writeMu.Lock()
		_ = conn.WriteMessage(gws.TextMessage, closeStreamMessage)
		err = conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
		dg.writeMu.Unlock()
		conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	return errors.Wrap(err, "close deepgram stream")
}

// Feed queues audio for the live session. Audio fed while stopped, or beyond
// the backlog, is dropped.
func (dg *DeepgramRecognizer) Feed(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	dg.mu.Lock()
	running := dg.running
	dg.mu.Unlock()
	if !running {
		return
	}

	select {
	case dg.audio <- chunk:
	default:
		dg.log.Debugw("Dropping audio chunk, backlog full", "bytes", len(chunk))
	}
}

// drain discards audio left over from an earlier session.
func (dg *DeepgramRecognizer) drain() {
	for {
		select {
		case <-dg.audio:
		default:
			return
		}
	}
}

func (dg *DeepgramRecognizer) run(ctx context.Context, id uint64, sink Sink) {
	header := http.Header{
		"Authorization": {fmt.Sprintf("Token %s", dg.apiKey)},
	}
	conn, resp, err := dg.dialer.DialContext(ctx, dg.endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		dg.finish(id)
		if ctx.Err() == nil {
			code := types.ErrorNetwork
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				code = types.ErrorNotAllowed
			}
			dg.log.Warnw("Deepgram dial failed", "code", code, "error", err)
			sink(types.ErrorEvent(code, errors.Wrap(err, "dial deepgram")))
		}
		sink(types.EndEvent())
		return
	}

	if !dg.attach(id, conn) {
		conn.Close()
		sink(types.EndEvent())
		return
	}

	dg.log.Infow("Connected to Deepgram", "session", id)
	sink(types.StartEvent())

	go dg.writeLoop(ctx, conn)
	dg.readLoop(ctx, conn, sink)

	dg.finish(id)
	conn.Close()
	dg.log.Infow("Deepgram session ended", "session", id)
	sink(types.EndEvent())
}

func (dg *DeepgramRecognizer) attach(id uint64, conn *gws.Conn) bool {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	if !dg.running || dg.session != id {
		return false
	}
	dg.conn = conn
	return true
}

func (dg *DeepgramRecognizer) finish(id uint64) {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	if dg.session != id {
		return
	}
	dg.running = false
	dg.conn = nil
	if dg.cancel != nil {
		dg.cancel()
		dg.cancel = nil
	}
}

func (dg *DeepgramRecognizer) writeLoop(ctx context.Context, conn *gws.Conn) {
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case chunk := <-dg.audio:
			dg.writeMu.Lock()
			err := conn.WriteMessage(gws.BinaryMessage, chunk)
			dg.writeMu.Unlock()
			if err != nil {
				dg.log.Debugw("Deepgram write failed", "error", err)
				return
			}
		}
	}
}

func (dg *DeepgramRecognizer) readLoop(ctx context.Context, conn *gws.Conn, sink Sink) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var closeErr *gws.CloseError
			if errors.As(err, &closeErr) && isNoAudioTimeout(closeErr.Text) {
				sink(types.ErrorEvent(types.ErrorNoSpeech, errors.New(closeErr.Text)))
				return
			}
			if !gws.IsCloseError(err, gws.CloseNormalClosure) {
				dg.log.Warnw("Deepgram read failed", "error", err)
			}
			return
		}

		results, err := ParseMessage(message)
		if err != nil {
			dg.log.Warnw("Error parsing Deepgram response", "error", err)
			continue
		}
		if len(results) > 0 {
			sink(types.ResultEvent(results...))
		}
	}
}

// isNoAudioTimeout matches Deepgram's NET-0001 close: no audio arrived in time.
func isNoAudioTimeout(reason string) bool {
	r := strings.ToLower(strings.ReplaceAll(reason, "-", ""))
	return strings.Contains(r, "net0001")
}

// ParseMessage extracts transcripts from a Deepgram frame, which is either a
// single JSON object or an array of them. Non-result messages and empty
// transcripts yield nothing.
func ParseMessage(msg []byte) ([]types.TranscriptEvent, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 {
		return nil, nil
	}

	var batch []TranscriptionMessage
	switch msg[0] {
	case '[':
		if err := json.Unmarshal(msg, &batch); err != nil {
			return nil, errors.Wrap(err, "parse deepgram array")
		}
	case '{':
		var one TranscriptionMessage
		if err := json.Unmarshal(msg, &one); err != nil {
			return nil, errors.Wrap(err, "parse deepgram object")
		}
		batch = append(batch, one)
	default:
		return nil, errors.Errorf("unexpected deepgram frame prefix %q", msg[0])
	}

	var out []types.TranscriptEvent
	for _, m := range batch {
		if m.Type != "" && m.Type != "Results" {
			continue
		}
		if len(m.Channel.Alternatives) == 0 {
			continue
		}
		best := m.Channel.Alternatives[0]
		if strings.TrimSpace(best.Transcript) == "" {
			continue
		}
		out = append(out, types.TranscriptEvent{
			Transcription: best.Transcript,
			Confidence:    best.Confidence,
			Final:         m.IsFinal,
		})
	}
	return out, nil
}
