package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mj1618/uiautomator-server/internal/session"
	"github.com/mj1618/uiautomator-server/internal/status"
)

func (s *Server) handleStatus(r *http.Request) (any, error) {
	return map[string]any{
		"ready":   true,
		"message": "UiAutomator server is ready to accept commands",
	}, nil
}

type sessionInfo struct {
	ID           string               `json:"id"`
	Capabilities session.Capabilities `json:"capabilities"`
}

func (s *Server) handleListSessions(r *http.Request) (any, error) {
	out := []sessionInfo{}
	for _, sess := range s.sessions.List() {
		out = append(out, sessionInfo{ID: sess.ID, Capabilities: sess.Capabilities})
	}
	return out, nil
}

type createSessionRequest struct {
	DesiredCapabilities session.Capabilities `json:"desiredCapabilities"`
	Capabilities        struct {
		AlwaysMatch session.Capabilities   `json:"alwaysMatch"`
		FirstMatch  []session.Capabilities `json:"firstMatch"`
	} `json:"capabilities"`
}

// capabilities merges the legacy and W3C forms. W3C entries win.
func (req createSessionRequest) capabilities() session.Capabilities {
	caps := session.Capabilities{}
	for k, v := range req.DesiredCapabilities {
		caps[k] = v
	}
	if len(req.Capabilities.FirstMatch) > 0 {
		for k, v := range req.Capabilities.FirstMatch[0] {
			caps[k] = v
		}
	}
	for k, v := range req.Capabilities.AlwaysMatch {
		caps[k] = v
	}
	// W3C vendor prefix.
	if pkg, ok := caps["appium:appPackage"]; ok {
		if _, set := caps["appPackage"]; !set {
			caps["appPackage"] = pkg
		}
	}
	return caps
}

func (s *Server) handleCreateSession(r *http.Request) (any, error) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	sess := s.sessions.Create(req.capabilities())
	return created{SessionID: sess.ID, Capabilities: sess.Capabilities}, nil
}

func (s *Server) handleGetSession(r *http.Request, sess *session.Session) (any, error) {
	value := make(map[string]any, len(sess.Capabilities)+1)
	for k, v := range sess.Capabilities {
		value[k] = v
	}
	if ev, ok := sess.LastScroll(); ok {
		value["lastScrollData"] = map[string]any{
			"scrollX":    ev.ScrollX,
			"scrollY":    ev.ScrollY,
			"maxScrollX": ev.MaxScrollX,
			"maxScrollY": ev.MaxScrollY,
			"fromIndex":  ev.FromIndex,
			"toIndex":    ev.ToIndex,
			"itemCount":  ev.ItemCount,
		}
	}
	return value, nil
}

func (s *Server) handleDeleteSession(r *http.Request) (any, error) {
	id := chi.URLParam(r, "sessionId")
	if err := s.sessions.Delete(id); err != nil {
		return nil, status.NoSuchDriverf("no active session with id %q", id).WithCause(err)
	}
	return nil, nil
}

type timeoutsRequest struct {
	Type     string   `json:"type"`
	MS       *float64 `json:"ms"`
	Implicit *float64 `json:"implicit"`
}

func (s *Server) handleTimeouts(r *http.Request, sess *session.Session) (any, error) {
	var req timeoutsRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	switch {
	case req.Implicit != nil:
		sess.SetImplicitWait(millis(*req.Implicit))
	case req.Type == "implicit" && req.MS != nil:
		sess.SetImplicitWait(millis(*req.MS))
	case req.Type != "" && req.MS != nil:
		// Page load and script timeouts have no meaning on a device.
	default:
		return nil, status.JSONDecodef("timeouts request needs either implicit or type and ms")
	}
	return nil, nil
}

func (s *Server) handleImplicitWait(r *http.Request, sess *session.Session) (any, error) {
	var req struct {
		MS *float64 `json:"ms"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if req.MS == nil {
		return nil, status.JSONDecodef("implicit_wait request needs ms")
	}
	sess.SetImplicitWait(millis(*req.MS))
	return nil, nil
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func (s *Server) handleGetSettings(r *http.Request, sess *session.Session) (any, error) {
	return sess.Settings().Map(), nil
}

func (s *Server) handleUpdateSettings(r *http.Request, sess *session.Session) (any, error) {
	var req struct {
		Settings map[string]any `json:"settings"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if req.Settings == nil {
		return nil, status.JSONDecodef("settings request needs a settings object")
	}
	if err := sess.UpdateSettings(req.Settings); err != nil {
		return nil, err
	}
	return sess.Settings().Map(), nil
}
