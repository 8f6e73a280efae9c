package server

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/mrsingh-rishi/live-captions/call"
	"github.com/mrsingh-rishi/live-captions/pipeline"
)

const commandTimeout = 5 * time.Second

const (
	CommandStart = "start"
	CommandStop  = "stop"
	CommandClear = "clear"
)

type callRequest struct {
	To string `json:"to"`
}

type callResponse struct {
	SID     string `json:"sid,omitempty"`
	Message string `json:"message"`
}

type sessionResponse struct {
	ID    string         `json:"id"`
	State pipeline.State `json:"state"`
}

// applyCommand runs a client command against a session's controller.
func applyCommand(ctx context.Context, ctrl *pipeline.Controller, command string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	switch command {
	case CommandStart:
		return ctrl.Start(ctx)
	case CommandStop:
		return ctrl.Stop(ctx)
	case CommandClear:
		return ctrl.Clear(ctx)
	default:
		return errors.Errorf("unknown command %q", command)
	}
}

// commandError maps controller errors to HTTP errors.
func commandError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrUnsupported):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, pipeline.ErrClosed):
		return fiber.NewError(fiber.StatusGone, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	default:
		return err
	}
}

func (s *Server) session(c *fiber.Ctx) (*call.Session, error) {
	sess, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return sess, nil
}

func (s *Server) listSessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": s.sessions.IDs()})
}

func (s *Server) getSession(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), commandTimeout)
	defer cancel()

	state, err := sess.Controller.Snapshot(ctx)
	if err != nil {
		return commandError(err)
	}
	return c.JSON(sessionResponse{ID: sess.ID, State: state})
}

func (s *Server) runCommand(c *fiber.Ctx, command string) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if err := applyCommand(c.UserContext(), sess.Controller, command); err != nil {
		s.log.Warnw("Session command failed", "session", sess.ID, "command", command, "error", err)
		return commandError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) startSession(c *fiber.Ctx) error {
	return s.runCommand(c, CommandStart)
}

func (s *Server) stopSession(c *fiber.Ctx) error {
	return s.runCommand(c, CommandStop)
}

func (s *Server) clearHistory(c *fiber.Ctx) error {
	return s.runCommand(c, CommandClear)
}

func (s *Server) closeSession(c *fiber.Ctx) error {
	sess, ok := s.sessions.Remove(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	sess.Close()
	return c.SendStatus(fiber.StatusNoContent)
}

// createCall places an outbound call whose audio Twilio streams back to /stream.
func (s *Server) createCall(c *fiber.Ctx) error {
	var req callRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON")
	}
	if req.To == "" {
		return fiber.NewError(fiber.StatusBadRequest, "`to` field is required")
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(s.twilio.FromNumber)
	params.SetUrl(fmt.Sprintf("%stwiml", s.twilio.BaseURL))
	params.SetMethod("GET")

	resp, err := s.twilio.Client.CreateCall(params)
	if err != nil {
		s.log.Errorw("Twilio error", "to", req.To, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create call")
	}

	var sid string
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.log.Infow("Call initiated", "sid", sid, "to", req.To)
	return c.JSON(callResponse{SID: sid, Message: "call initiated"})
}

// twiml instructs Twilio to stream the call's audio to /stream.
func (s *Server) twiml(c *fiber.Ctx) error {
	callSid := c.Query("CallSid", "")
	if callSid == "" {
		return fiber.NewError(fiber.StatusBadRequest, "CallSid missing")
	}

	xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Connect>
    <Stream url="%sstream?CallSid=%s"/>
  </Connect>
</Response>`, html.EscapeString(s.twilio.BaseWSURL), html.EscapeString(url.QueryEscape(callSid)))

	c.Type("xml")
	return c.SendString(xml)
}
