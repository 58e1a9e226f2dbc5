package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mj1618/uiautomator-server/internal/element"
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/session"
	"github.com/mj1618/uiautomator-server/internal/status"
)

// w3cElementKey is the W3C element reference key; ELEMENT is the JSON wire form.
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

type findRequest struct {
	Strategy string `json:"strategy"`
	Selector string `json:"selector"`
	Using    string `json:"using"`
	Value    string `json:"value"`
	Context  string `json:"context"`
}

func (req findRequest) locator() (model.Locator, error) {
	strategy, value := req.Strategy, req.Selector
	if strategy == "" {
		strategy, value = req.Using, req.Value
	}
	loc, err := model.NewLocator(strategy, value)
	if err != nil {
		return model.Locator{}, status.InvalidSelectorf("unsupported locator strategy %q", strategy).WithCause(err)
	}
	return loc, nil
}

// lookupElement returns the cached element with the given id.
func lookupElement(sess *session.Session, id string) (element.Handle, error) {
	h, ok := sess.Cache.Get(id)
	if !ok {
		return nil, status.NoSuchElementf("element %q is not known in this session", id)
	}
	return h, nil
}

func elementFromURL(r *http.Request, sess *session.Session) (element.Handle, error) {
	return lookupElement(sess, chi.URLParam(r, "id"))
}

// findScope decodes a find request and resolves its parent element, which
// comes from the URL or the context field.
func findScope(r *http.Request, sess *session.Session) (model.Locator, element.Handle, error) {
	var req findRequest
	if err := decode(r, &req); err != nil {
		return model.Locator{}, nil, err
	}
	loc, err := req.locator()
	if err != nil {
		return model.Locator{}, nil, err
	}
	parentID := chi.URLParam(r, "id")
	if parentID == "" {
		parentID = req.Context
	}
	if parentID == "" {
		return loc, nil, nil
	}
	parent, err := lookupElement(sess, parentID)
	return loc, parent, err
}

func (s *Server) handleFindElement(r *http.Request, sess *session.Session) (any, error) {
	loc, parent, err := findScope(r, sess)
	if err != nil {
		return nil, err
	}
	h, err := s.finder.FindElement(r.Context(), parent, loc, sess.ImplicitWait())
	if err != nil {
		return nil, err
	}
	return elementValue(sess, h), nil
}

func (s *Server) handleFindElements(r *http.Request, sess *session.Session) (any, error) {
	loc, parent, err := findScope(r, sess)
	if err != nil {
		return nil, err
	}
	hs, err := s.finder.FindElements(r.Context(), parent, loc, sess.ImplicitWait())
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(hs))
	for _, h := range hs {
		out = append(out, elementValue(sess, h))
	}
	return out, nil
}

func (s *Server) handleActiveElement(r *http.Request, sess *session.Session) (any, error) {
	h, err := s.finder.Focused(r.Context())
	if err != nil {
		return nil, err
	}
	return elementValue(sess, h), nil
}

// elementValue caches h and returns its wire reference. Unless compact
// responses are on, the attributes named in the session settings are
// included.
func elementValue(sess *session.Session, h element.Handle) map[string]any {
	id := sess.Cache.Add(h)
	v := map[string]any{"ELEMENT": id, w3cElementKey: id}
	settings := sess.Settings()
	if settings.ShouldUseCompactResponses {
		return v
	}
	info, err := h.Info()
	if err != nil {
		return v
	}
	for _, name := range settings.ElementResponseAttributes {
		switch name {
		case "name":
			v[name] = info.Class
		case "text":
			v[name] = info.DisplayText()
		case "rect":
			v[name] = rectValue(info.Bounds)
		default:
			if val, ok := info.Attribute(name); ok {
				v[name] = val
			}
		}
	}
	return v
}

func rectValue(r model.Rect) map[string]int {
	return map[string]int{"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height}
}

// settle waits for the UI to go idle after an action. Failing to settle
// does not fail the action.
func (s *Server) settle(ctx context.Context, sess *session.Session) {
	if s.prov.Idle == nil {
		return
	}
	timeout := sess.Settings().ActionAcknowledgmentTimeout
	if timeout <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = s.prov.Idle.WaitForIdle(ctx, timeout)
}

func (s *Server) handleClick(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	if err := h.Click(r.Context()); err != nil {
		return nil, err
	}
	s.settle(r.Context(), sess)
	return nil, nil
}

func (s *Server) handleClear(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	return nil, h.Clear()
}

type valueRequest struct {
	Text  *string  `json:"text"`
	Value []string `json:"value"`
}

func (s *Server) handleValue(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	var req valueRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	text := strings.Join(req.Value, "")
	if req.Text != nil {
		text = *req.Text
	} else if req.Value == nil {
		return nil, status.JSONDecodef("value request needs text or value")
	}
	return nil, h.SetText(text)
}

func (s *Server) handleText(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	return h.Text()
}

func (s *Server) handleName(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	info, err := h.Info()
	if err != nil {
		return nil, err
	}
	return info.Class, nil
}

// handleAttribute answers null for attribute names the projection does not have.
func (s *Server) handleAttribute(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	v, ok, err := h.Attribute(chi.URLParam(r, "name"))
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

func (s *Server) handleRect(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	b, err := h.Bounds()
	if err != nil {
		return nil, err
	}
	return rectValue(b), nil
}

func (s *Server) handleLocation(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	b, err := h.Bounds()
	if err != nil {
		return nil, err
	}
	return map[string]int{"x": b.X, "y": b.Y}, nil
}

func (s *Server) handleSize(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	b, err := h.Bounds()
	if err != nil {
		return nil, err
	}
	return map[string]int{"width": b.Width, "height": b.Height}, nil
}

// sessionLocator resolves element origins of W3C actions through the
// session cache.
type sessionLocator struct {
	sess *session.Session
}

func (l sessionLocator) ElementCenter(id string) (model.Point, error) {
	h, err := lookupElement(l.sess, id)
	if err != nil {
		return model.Point{}, err
	}
	b, err := h.Bounds()
	if err != nil {
		return model.Point{}, err
	}
	return b.Center(), nil
}

func durationMS(ms float64, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return millis(ms)
}
