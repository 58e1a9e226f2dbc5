// Package server exposes the automation core over the WebDriver wire
// protocol and as MCP tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/finder"
	"github.com/mj1618/uiautomator-server/internal/input"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/session"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr         string
	BasePath     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PollInterval time.Duration
}

// Server dispatches wire-protocol commands onto the automation core.
type Server struct {
	prov     *platform.Provider
	sessions *session.Manager
	finder   *finder.Engine
	input    *input.Dispatcher
	log      *zap.Logger
	router   chi.Router
	http     *http.Server
}

// New wires the core for prov and builds the router.
func New(prov *platform.Provider, sessions *session.Manager, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	disp := input.NewDispatcher(prov.Injector, prov.Device)
	s := &Server{
		prov:     prov,
		sessions: sessions,
		input:    disp,
		log:      log,
	}
	s.finder = finder.New(prov, disp, finder.Config{
		State:        s.activeState,
		PollInterval: cfg.PollInterval,
		Logger:       log.Named("finder"),
	})
	s.router = s.routes(cfg.BasePath)
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// activeState returns the active session as finder state. The nil check
// keeps a nil *Session from becoming a non-nil interface.
func (s *Server) activeState() finder.State {
	sess, err := s.sessions.Current()
	if err != nil {
		return nil
	}
	return sess
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(base string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.NotFound(s.guard(s.handleUnknownCommand))
	r.MethodNotAllowed(s.guard(s.handleUnknownCommand))

	api := chi.NewRouter()
	api.NotFound(s.guard(s.handleUnknownCommand))
	api.MethodNotAllowed(s.guard(s.handleUnknownCommand))
	api.Get("/status", s.guard(s.handleStatus))
	api.Get("/sessions", s.guard(s.handleListSessions))
	api.Post("/session", s.guard(s.handleCreateSession))
	api.Route("/session/{sessionId}", func(r chi.Router) {
		r.Get("/", s.guard(s.withSession(s.handleGetSession)))
		r.Delete("/", s.guard(s.handleDeleteSession))

		r.Post("/timeouts", s.guard(s.withSession(s.handleTimeouts)))
		r.Post("/timeouts/implicit_wait", s.guard(s.withSession(s.handleImplicitWait)))
		r.Get("/appium/settings", s.guard(s.withSession(s.handleGetSettings)))
		r.Post("/appium/settings", s.guard(s.withSession(s.handleUpdateSettings)))

		r.Post("/element", s.guard(s.withSession(s.handleFindElement)))
		r.Post("/elements", s.guard(s.withSession(s.handleFindElements)))
		r.Get("/element/active", s.guard(s.withSession(s.handleActiveElement)))
		r.Route("/element/{id}", func(r chi.Router) {
			r.Post("/element", s.guard(s.withSession(s.handleFindElement)))
			r.Post("/elements", s.guard(s.withSession(s.handleFindElements)))
			r.Post("/click", s.guard(s.withSession(s.handleClick)))
			r.Post("/clear", s.guard(s.withSession(s.handleClear)))
			r.Post("/value", s.guard(s.withSession(s.handleValue)))
			r.Get("/text", s.guard(s.withSession(s.handleText)))
			r.Get("/name", s.guard(s.withSession(s.handleName)))
			r.Get("/attribute/{name}", s.guard(s.withSession(s.handleAttribute)))
			r.Get("/rect", s.guard(s.withSession(s.handleRect)))
			r.Get("/location", s.guard(s.withSession(s.handleLocation)))
			r.Get("/size", s.guard(s.withSession(s.handleSize)))
			r.Get("/screenshot", s.guard(s.withSession(s.handleElementScreenshot)))
		})

		r.Get("/source", s.guard(s.withSession(s.handleSource)))
		r.Get("/screenshot", s.guard(s.withSession(s.handleScreenshot)))
		r.Get("/orientation", s.guard(s.withSession(s.handleGetOrientation)))
		r.Post("/orientation", s.guard(s.withSession(s.handleSetOrientation)))
		r.Get("/rotation", s.guard(s.withSession(s.handleGetRotation)))
		r.Post("/rotation", s.guard(s.withSession(s.handleSetRotation)))
		r.Get("/window_handle", s.guard(s.withSession(s.handleWindowHandle)))
		r.Get("/window_handles", s.guard(s.withSession(s.handleWindowHandles)))
		r.Get("/window/{windowHandle}/size", s.guard(s.withSession(s.handleWindowSize)))

		r.Post("/touch/click", s.guard(s.withSession(s.handleTouchClick)))
		r.Post("/touch/longclick", s.guard(s.withSession(s.handleTouchLongClick)))
		r.Post("/touch/down", s.guard(s.withSession(s.handleTouchDown)))
		r.Post("/touch/move", s.guard(s.withSession(s.handleTouchMove)))
		r.Post("/touch/up", s.guard(s.withSession(s.handleTouchUp)))
		r.Post("/touch/drag", s.guard(s.withSession(s.handleTouchDrag)))
		r.Post("/actions", s.guard(s.withSession(s.handleActions)))
	})

	base = "/" + strings.Trim(base, "/")
	r.Mount(base, api)
	return r
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	if sess, err := s.sessions.Current(); err == nil {
		_ = s.sessions.Delete(sess.ID)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
