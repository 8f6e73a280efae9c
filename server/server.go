// Package server is the HTTP and websocket front door of the caption service.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/jonboulle/clockwork"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/mrsingh-rishi/live-captions/call"
	"github.com/mrsingh-rishi/live-captions/logger"
)

// CallCreator places outbound calls. The twilio-go API service implements it.
type CallCreator interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
}

// DefaultStoppedSessionTTL is how long a call session stays registered after
// its stream stops.
const DefaultStoppedSessionTTL = 15 * time.Minute

// Twilio configures the phone-call routes.
type Twilio struct {
	Client     CallCreator
	FromNumber string
	// BaseURL and BaseWSURL are public URLs ending in "/".
	BaseURL   string
	BaseWSURL string
}

type Options struct {
	Factory  *call.Factory
	Sessions *call.Registry
	// AuthSecret enables HS256 bearer auth when set.
	AuthSecret string
	// Twilio enables /call, /twiml and /stream when set.
	Twilio *Twilio
	// StoppedSessionTTL bounds how long a stopped call session stays
	// registered. Zero means DefaultStoppedSessionTTL, negative keeps it until
	// DELETE /sessions/:id.
	StoppedSessionTTL time.Duration
	Clock             clockwork.Clock
	Log               *zap.SugaredLogger
}

type Server struct {
	app      *fiber.App
	ctx      context.Context
	factory  *call.Factory
	sessions *call.Registry
	twilio   *Twilio
	ttl      time.Duration
	clock    clockwork.Clock
	log      *zap.SugaredLogger
}

// New builds the fiber app. Sessions opened by clients live until their
// connection closes or ctx is done.
func New(ctx context.Context, opts Options) *Server {
	sessions := opts.Sessions
	if sessions == nil {
		sessions = call.NewRegistry()
	}
	ttl := opts.StoppedSessionTTL
	if ttl == 0 {
		ttl = DefaultStoppedSessionTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler,
		}),
		ctx:      ctx,
		factory:  opts.Factory,
		sessions: sessions,
		twilio:   opts.Twilio,
		ttl:      ttl,
		clock:    clock,
		log:      logger.OrNop(opts.Log),
	}

	auth := noAuth
	if opts.AuthSecret != "" {
		auth = bearerAuth([]byte(opts.AuthSecret))
	}

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/listen", auth, requireUpgrade, websocket.New(s.handleListen))

	s.app.Get("/sessions", auth, s.listSessions)
	s.app.Get("/sessions/:id", auth, s.getSession)
	s.app.Post("/sessions/:id/start", auth, s.startSession)
	s.app.Post("/sessions/:id/stop", auth, s.stopSession)
	s.app.Delete("/sessions/:id/history", auth, s.clearHistory)
	s.app.Delete("/sessions/:id", auth, s.closeSession)

	if s.twilio != nil {
		// /twiml and /stream are called by Twilio and carry no bearer token.
		s.app.Post("/call", auth, s.createCall)
		s.app.Get("/twiml", s.twiml)
		s.app.Get("/stream", requireUpgrade, websocket.New(s.handleStream))
	}

	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.log.Infow("Caption server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown closes every session, then stops accepting requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.CloseAll()
	return s.app.ShutdownWithContext(ctx)
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
