package server

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/image/draw"

	"github.com/mj1618/uiautomator-server/internal/input"
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/pagesource"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/session"
	"github.com/mj1618/uiautomator-server/internal/status"
)

// pageSource renders the current hierarchy, toasts included.
func (s *Server) pageSource() (string, error) {
	roots, err := s.prov.Roots()
	if err != nil {
		return "", err
	}
	snap := pagesource.Take(roots, pagesource.Options{Toasts: s.prov.Notifications})
	opts := pagesource.DumpOptions{}
	if s.prov.Device != nil {
		opts.Rotation = int(s.prov.Device.Rotation())
		opts.Width, opts.Height = s.prov.Device.DisplaySize()
	}
	return snap.XML(opts)
}

func (s *Server) handleSource(r *http.Request, sess *session.Session) (any, error) {
	return s.pageSource()
}

// screenshot captures the screen, optionally cropped to clip, scaled by
// scale and encoded as base64 PNG.
func (s *Server) screenshot(clip *model.Rect, scale float64) (string, error) {
	if s.prov.Screenshotter == nil {
		return "", fmt.Errorf("screenshot: %w", platform.ErrUnsupported)
	}
	img, err := s.prov.Screenshotter.Screenshot()
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	src := img.Bounds()
	if clip != nil {
		src = image.Rect(clip.X, clip.Y, clip.X+clip.Width, clip.Y+clip.Height).Intersect(src)
		if src.Empty() {
			return "", status.New(status.ElementNotVisible, "element is outside the screenshot")
		}
	}
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	w := max(int(float64(src.Dx())*scale), 1)
	h := max(int(float64(src.Dy())*scale), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Server) handleScreenshot(r *http.Request, sess *session.Session) (any, error) {
	scale := sess.Settings().ScreenshotScale
	if q := r.URL.Query().Get("scale"); q != "" {
		v, err := strconv.ParseFloat(q, 64)
		if err != nil || v <= 0 || v > 1 {
			return nil, status.JSONDecodef("scale must be a number in (0, 1], got %q", q)
		}
		scale = v
	}
	return s.screenshot(nil, scale)
}

func (s *Server) handleElementScreenshot(r *http.Request, sess *session.Session) (any, error) {
	h, err := elementFromURL(r, sess)
	if err != nil {
		return nil, err
	}
	b, err := h.Bounds()
	if err != nil {
		return nil, err
	}
	return s.screenshot(&b, 1)
}

func (s *Server) handleGetOrientation(r *http.Request, sess *session.Session) (any, error) {
	return input.OrientationOf(s.prov.Device.Rotation()), nil
}

func (s *Server) handleSetOrientation(r *http.Request, sess *session.Session) (any, error) {
	var req struct {
		Orientation string `json:"orientation"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	rot, err := input.ParseOrientation(req.Orientation)
	if err != nil {
		return nil, err
	}
	if err := s.input.Rotate(rot); err != nil {
		return nil, err
	}
	return input.OrientationOf(rot), nil
}

func (s *Server) handleGetRotation(r *http.Request, sess *session.Session) (any, error) {
	return input.RotationOf(s.prov.Device.Rotation()), nil
}

func (s *Server) handleSetRotation(r *http.Request, sess *session.Session) (any, error) {
	var req input.Rotation
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	rot, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.input.Rotate(rot); err != nil {
		return nil, err
	}
	return input.RotationOf(rot), nil
}

// currentWindow is the only window handle; the device shows one window
// stack at a time.
const currentWindow = "current"

func (s *Server) handleWindowHandle(r *http.Request, sess *session.Session) (any, error) {
	return currentWindow, nil
}

func (s *Server) handleWindowHandles(r *http.Request, sess *session.Session) (any, error) {
	return []string{currentWindow}, nil
}

func (s *Server) handleWindowSize(r *http.Request, sess *session.Session) (any, error) {
	if handle := chi.URLParam(r, "windowHandle"); handle != currentWindow {
		return nil, fmt.Errorf("window %q: %w", handle, platform.ErrNoSuchWindow)
	}
	w, h := s.prov.Device.DisplaySize()
	return map[string]int{"width": w, "height": h}, nil
}

// touchRequest addresses either a cached element's center or a point.
type touchRequest struct {
	Element  string   `json:"element"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Duration float64  `json:"duration"`
}

func (req touchRequest) point(sess *session.Session) (model.Point, error) {
	if req.Element != "" {
		return sessionLocator{sess: sess}.ElementCenter(req.Element)
	}
	if req.X == nil || req.Y == nil {
		return model.Point{}, status.JSONDecodef("touch request needs element or x and y")
	}
	return model.Point{X: int(*req.X), Y: int(*req.Y)}, nil
}

func decodeTouch(r *http.Request, sess *session.Session) (touchRequest, model.Point, error) {
	var req touchRequest
	if err := decode(r, &req); err != nil {
		return req, model.Point{}, err
	}
	p, err := req.point(sess)
	return req, p, err
}

func (s *Server) handleTouchClick(r *http.Request, sess *session.Session) (any, error) {
	_, p, err := decodeTouch(r, sess)
	if err != nil {
		return nil, err
	}
	if err := s.input.Tap(r.Context(), p); err != nil {
		return nil, err
	}
	s.settle(r.Context(), sess)
	return nil, nil
}

func (s *Server) handleTouchLongClick(r *http.Request, sess *session.Session) (any, error) {
	req, p, err := decodeTouch(r, sess)
	if err != nil {
		return nil, err
	}
	return nil, s.input.LongPress(r.Context(), p, durationMS(req.Duration, input.LongPressDuration))
}

func (s *Server) handleTouchDown(r *http.Request, sess *session.Session) (any, error) {
	_, p, err := decodeTouch(r, sess)
	if err != nil {
		return nil, err
	}
	return nil, s.input.TouchDown(r.Context(), p)
}

func (s *Server) handleTouchMove(r *http.Request, sess *session.Session) (any, error) {
	_, p, err := decodeTouch(r, sess)
	if err != nil {
		return nil, err
	}
	return nil, s.input.TouchMove(r.Context(), p)
}

func (s *Server) handleTouchUp(r *http.Request, sess *session.Session) (any, error) {
	_, p, err := decodeTouch(r, sess)
	if err != nil {
		return nil, err
	}
	return nil, s.input.TouchUp(r.Context(), p)
}

type dragRequest struct {
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
	Steps  int     `json:"steps"`
}

func (s *Server) handleTouchDrag(r *http.Request, sess *session.Session) (any, error) {
	var req dragRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	from := model.Point{X: int(req.StartX), Y: int(req.StartY)}
	to := model.Point{X: int(req.EndX), Y: int(req.EndY)}
	return nil, s.input.Drag(r.Context(), from, to, req.Steps)
}

func (s *Server) handleActions(r *http.Request, sess *session.Session) (any, error) {
	var req struct {
		Actions []input.ActionSequence `json:"actions"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, s.input.PerformActions(r.Context(), req.Actions, sessionLocator{sess: sess})
}
