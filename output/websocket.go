// Package output pushes pipeline state to a connected client.
package output

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrsingh-rishi/live-captions/logger"
	"github.com/mrsingh-rishi/live-captions/pipeline"
)

const (
	MessageReady = "ready"
	MessageState = "state"
	MessageError = "error"
)

// Conn is the write side of a client websocket.
type Conn interface {
	WriteJSON(v interface{}) error
}

// Message is one frame sent to the client.
type Message struct {
	Type    string          `json:"type"`
	Session string          `json:"session,omitempty"`
	State   *pipeline.State `json:"state,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StateOutput forwards every state update of a session to its client.
type StateOutput struct {
	ctx       context.Context
	cancel    context.CancelFunc
	sessionID string
	conn      Conn
	updates   <-chan pipeline.State
	log       *zap.SugaredLogger

	writeMu sync.Mutex
	done    chan struct{}
}

func NewStateOutput(
	sessionID string,
	conn Conn,
	updates <-chan pipeline.State,
	log *zap.SugaredLogger,
) (*StateOutput, error) {
	if conn == nil {
		return nil, errors.New("output: connection is required")
	}
	if updates == nil {
		return nil, errors.New("output: state channel is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StateOutput{
		ctx:       ctx,
		cancel:    cancel,
		sessionID: sessionID,
		conn:      conn,
		updates:   updates,
		log:       logger.OrNop(log),
		done:      make(chan struct{}),
	}, nil
}

// Start announces the session and forwards updates until Stop or until the
// update channel closes.
func (o *StateOutput) Start() {
	o.write(Message{Type: MessageReady, Session: o.sessionID})

	go func() {
		defer close(o.done)
		for {
			select {
			case <-o.ctx.Done():
				return
			case state, ok := <-o.updates:
				if !ok {
					return
				}
				o.write(Message{Type: MessageState, Session: o.sessionID, State: &state})
			}
		}
	}()
}

// SendError reports a failed client command.
func (o *StateOutput) SendError(msg string) {
	o.write(Message{Type: MessageError, Session: o.sessionID, Error: msg})
}

// Stop ends forwarding and waits for the forwarding goroutine. The connection
// stays open.
func (o *StateOutput) Stop() {
	o.cancel()
	<-o.done
}

func (o *StateOutput) write(msg Message) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	if err := o.conn.WriteJSON(msg); err != nil {
		o.log.Warnw("Client write error", "type", msg.Type, "error", err)
	}
}
