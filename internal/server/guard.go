package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/element"
	"github.com/mj1618/uiautomator-server/internal/finder"
	"github.com/mj1618/uiautomator-server/internal/input"
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/pagesource"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/selector"
	"github.com/mj1618/uiautomator-server/internal/session"
	"github.com/mj1618/uiautomator-server/internal/status"
)

// envelope is the body of every response.
type envelope struct {
	SessionID *string     `json:"sessionId"`
	Status    status.Code `json:"status"`
	Value     any         `json:"value"`
}

// handlerFunc is a command handler. A nil value is sent as JSON null.
type handlerFunc func(r *http.Request) (any, error)

// sessionHandlerFunc is a command handler that needs the active session.
type sessionHandlerFunc func(r *http.Request, sess *session.Session) (any, error)

// created is returned by the create-session handler so the envelope can
// carry the new session id.
type created struct {
	SessionID    string               `json:"sessionId"`
	Capabilities session.Capabilities `json:"capabilities"`
}

// guard runs h and always writes a well-formed envelope, including when h
// panics.
func (s *Server) guard(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := s.run(h, r)
		var sid *string
		if id := chi.URLParam(r, "sessionId"); id != "" {
			sid = &id
		}
		if c, ok := value.(created); ok {
			sid = &c.SessionID
		}
		if err != nil {
			code, body := s.failure(r, err)
			writeEnvelope(w, code, envelope{SessionID: sid, Status: code, Value: body})
			return
		}
		writeEnvelope(w, status.Success, envelope{SessionID: sid, Status: status.Success, Value: value})
	}
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func (s *Server) run(h handlerFunc, r *http.Request) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value, err = nil, &panicError{value: rec, stack: debug.Stack()}
		}
	}()
	return h(r)
}

// failure logs err once and returns its status and response value.
// Uncategorized failures carry their stack trace.
func (s *Server) failure(r *http.Request, err error) (status.Code, string) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	var p *panicError
	if errors.As(err, &p) {
		s.log.Error("command panicked", append(fields, zap.Any("panic", p.value), zap.ByteString("stack", p.stack))...)
		return status.UnknownError, fmt.Sprintf("%v\n%s", err, p.stack)
	}
	if se, ok := classify(err); ok {
		s.log.Warn("command failed", append(fields, zap.Stringer("status", se.Code), zap.Error(err))...)
		return se.Code, err.Error()
	}
	stack := debug.Stack()
	s.log.Error("command failed with an uncategorized error", append(fields, zap.Error(err), zap.ByteString("stack", stack))...)
	return status.UnknownError, fmt.Sprintf("%v\n%s", err, stack)
}

// classify maps err onto a typed failure. ok is false for errors that
// belong to no known category.
func classify(err error) (*status.Error, bool) {
	var se *status.Error
	if errors.As(err, &se) {
		return se, true
	}
	code := status.UnknownError
	switch {
	case errors.Is(err, session.ErrNoSession):
		code = status.NoSuchDriver
	case errors.Is(err, finder.ErrConversion), errors.Is(err, element.ErrStale):
		code = status.StaleElementReference
	case errors.Is(err, finder.ErrNotFound):
		code = status.NoSuchElement
	case errors.Is(err, selector.ErrInvalidSelector),
		errors.Is(err, pagesource.ErrInvalidExpression),
		errors.Is(err, model.ErrUnknownStrategy):
		code = status.InvalidSelector
	case errors.Is(err, input.ErrOutOfBounds), errors.Is(err, input.ErrInvalidRotation):
		code = status.InvalidElementCoordinates
	case errors.Is(err, input.ErrUnsupportedAxis), errors.Is(err, platform.ErrUnsupported):
		code = status.UnknownCommand
	case errors.Is(err, platform.ErrNoSuchWindow):
		code = status.NoSuchWindow
	case errors.Is(err, input.ErrInvalidActions):
		code = status.JSONDecoderError
	case errors.Is(err, element.ErrNotVisible):
		code = status.ElementNotVisible
	case errors.Is(err, element.ErrActionFailed), errors.Is(err, input.ErrInjectionFailed):
		code = status.InvalidElementState
	case errors.Is(err, platform.ErrEventTimeout), errors.Is(err, context.DeadlineExceeded):
		code = status.Timeout
	case errors.Is(err, session.ErrInvalidSetting):
		code = status.UnknownError
	default:
		return nil, false
	}
	return status.Wrap(code, err), true
}

func writeEnvelope(w http.ResponseWriter, code status.Code, env envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code.HTTPStatus())
	_ = json.NewEncoder(w).Encode(env)
}

// withSession resolves the session named in the URL.
func (s *Server) withSession(h sessionHandlerFunc) handlerFunc {
	return func(r *http.Request) (any, error) {
		id := chi.URLParam(r, "sessionId")
		sess, err := s.sessions.Get(id)
		if err != nil {
			return nil, status.NoSuchDriverf("no active session with id %q", id).WithCause(err)
		}
		return h(r, sess)
	}
}

// decode reads the JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return status.JSONDecodef("read request body").WithCause(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return status.JSONDecodef("malformed request body").WithCause(err)
	}
	return nil
}

func (s *Server) handleUnknownCommand(r *http.Request) (any, error) {
	return nil, status.UnknownCommandf("unknown command %s %s", r.Method, r.URL.Path)
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
