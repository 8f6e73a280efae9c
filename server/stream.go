package server

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gofiber/websocket/v2"

	"github.com/mrsingh-rishi/live-captions/call"
	"github.com/mrsingh-rishi/live-captions/output"
	"github.com/mrsingh-rishi/live-captions/stt"
)

// clientCommand is a text frame on /listen.
type clientCommand struct {
	Type string `json:"type"`
}

// twilioEvent is one Twilio media stream message.
type twilioEvent struct {
	Event string `json:"event"` // "connected", "start", "media", "stop"
	Media struct {
		Payload string `json:"payload"` // base64 mulaw
	} `json:"media"`
	Start struct {
		CallSid   string `json:"callSid"`
		StreamSid string `json:"streamSid"`
	} `json:"start"`
}

func (s *Server) openSession(enc stt.Encoding) (*call.Session, error) {
	sess, err := s.factory.NewSession(enc)
	if err != nil {
		return nil, err
	}
	sess.Open(s.ctx)
	s.sessions.Add(sess)
	return sess, nil
}

func (s *Server) closeSessionOf(sess *call.Session) {
	s.sessions.Remove(sess.ID)
	sess.Close()
}

// expireWhenIdle closes sess once it has stayed stopped for the TTL. A session
// restarted through the REST API gets a fresh TTL each time the timer fires.
func (s *Server) expireWhenIdle(sess *call.Session) {
	if s.ttl < 0 {
		return
	}
	timer := s.clock.NewTimer(s.ttl)
	go func() {
		defer timer.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-sess.Controller.Done():
				return
			case <-timer.Chan():
			}

			if current, ok := s.sessions.Get(sess.ID); !ok || current != sess {
				return
			}
			state, err := sess.Controller.Snapshot(s.ctx)
			if err == nil && state.Listening {
				timer.Reset(s.ttl)
				continue
			}
			s.log.Infow("Closing idle call session", "session", sess.ID, "ttl", s.ttl)
			s.closeSessionOf(sess)
			return
		}
	}()
}

// handleListen serves a browser client: binary frames are linear16 audio,
// text frames are commands, and every state change is pushed back.
func (s *Server) handleListen(ws *websocket.Conn) {
	defer ws.Close()

	sess, err := s.openSession(stt.EncodingLinear16)
	if err != nil {
		s.log.Errorw("Failed to open caption session", "error", err)
		_ = ws.WriteJSON(output.Message{Type: output.MessageError, Error: "failed to open session"})
		return
	}
	defer s.closeSessionOf(sess)

	updates, unsubscribe := sess.Controller.Subscribe()
	out, err := output.NewStateOutput(sess.ID, ws, updates, s.log.Named("output"))
	if err != nil {
		unsubscribe()
		s.log.Errorw("Failed to create state output", "error", err)
		return
	}
	out.Start()
	defer func() {
		unsubscribe()
		out.Stop()
	}()

	s.log.Infow("WebSocket /listen connected", "session", sess.ID)
	for {
		mt, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Infow("WebSocket closed normally", "session", sess.ID)
			} else {
				s.log.Warnw("WebSocket read error", "session", sess.ID, "error", err)
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			sess.Feed(msg)
		case websocket.TextMessage:
			var cmd clientCommand
			if err := json.Unmarshal(msg, &cmd); err != nil {
				out.SendError("invalid command")
				continue
			}
			if err := applyCommand(s.ctx, sess.Controller, cmd.Type); err != nil {
				s.log.Warnw("Client command failed", "session", sess.ID, "command", cmd.Type, "error", err)
				out.SendError(err.Error())
			}
		}
	}
}

// handleStream serves a Twilio media stream. The call is captioned from its
// start event until its stop event, after which the stopped session stays
// readable over REST until it expires. A stream that drops without a stop
// event closes its session.
func (s *Server) handleStream(ws *websocket.Conn) {
	defer ws.Close()
	s.log.Infow("WebSocket /stream connected", "callSid", ws.Query("CallSid"))

	var sess *call.Session
	defer func() {
		if sess != nil {
			s.closeSessionOf(sess)
		}
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warnw("Twilio stream read error", "error", err)
			}
			return
		}

		var ev twilioEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.log.Warnw("JSON unmarshal error", "error", err)
			continue
		}

		switch ev.Event {
		case "connected":

		case "start":
			if sess != nil {
				continue
			}
			sess, err = s.openSession(stt.EncodingMulaw)
			if err != nil {
				s.log.Errorw("Failed to open caption session", "callSid", ev.Start.CallSid, "error", err)
				return
			}
			s.log.Infow("Stream started", "callSid", ev.Start.CallSid, "streamSid", ev.Start.StreamSid, "session", sess.ID)
			if err := applyCommand(s.ctx, sess.Controller, CommandStart); err != nil {
				s.log.Errorw("Failed to start captioning", "session", sess.ID, "error", err)
			}

		case "media":
			if sess == nil {
				continue
			}
			chunk, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
			if err != nil {
				s.log.Warnw("Base64 decode error", "error", err)
				continue
			}
			sess.Feed(chunk)

		case "stop":
			s.log.Infow("Stream stopped")
			if sess != nil {
				if err := applyCommand(s.ctx, sess.Controller, CommandStop); err != nil {
					s.log.Warnw("Failed to stop captioning", "session", sess.ID, "error", err)
				}
				s.expireWhenIdle(sess)
				sess = nil
			}
			return

		default:
			s.log.Debugw("Unknown Twilio event", "event", ev.Event)
		}
	}
}
