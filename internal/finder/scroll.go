package finder

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/selector"
)

// DefaultScrollTimeout bounds the wait for a scroll acknowledgment when no
// session overrides it.
const DefaultScrollTimeout = 200 * time.Millisecond

// scrollSteps is the number of moves per scroll swipe. Fewer moves make a
// faster fling-like gesture.
const scrollSteps = 20

func isScroll(ev platform.AccessibilityEvent) bool {
	return ev.Type == platform.EventViewScrolled
}

// scrollIntoView swipes the container of sel until sel matches, the
// container stops moving, or the swipe or selector time budget runs out. It never fails just
// because the target did not appear; the caller's lookup reports that.
func (e *Engine) scrollIntoView(ctx context.Context, sel *selector.Selector) error {
	spec := sel.Scroll
	swipes := spec.MaxSwipes
	if swipes <= 0 {
		swipes = selector.DefaultMaxSearchSwipes
	}
	timeout := DefaultScrollTimeout
	st := e.state()
	if st != nil && st.ScrollTimeout() > 0 {
		timeout = st.ScrollTimeout()
	}
	var deadline time.Time
	if st != nil && st.SelectorTimeout() > 0 {
		deadline = time.Now().Add(st.SelectorTimeout())
	}

	var last *platform.AccessibilityEvent
	for i := 0; i < swipes; i++ {
		roots, err := e.prov.Roots()
		if err != nil {
			return err
		}
		if _, ok := sel.Find(roots); ok {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			e.log.Debug("selector wait budget exhausted", zap.Int("swipes", i))
			return nil
		}
		container, ok := spec.Container.Find(roots)
		if !ok {
			return nil
		}
		from, to, ok := e.swipePath(container.Info().Bounds, spec.Horizontal)
		if !ok {
			return nil
		}
		ev, err := e.input.SwipeAndWait(ctx, from, to, scrollSteps, isScroll, timeout)
		if errors.Is(err, platform.ErrEventTimeout) {
			e.log.Debug("scroll was not acknowledged", zap.Int("swipe", i+1))
			return nil
		}
		if err != nil {
			return err
		}
		if st != nil {
			st.RecordScroll(ev)
		}
		if last != nil && samePosition(*last, ev) {
			e.log.Debug("container reached its end", zap.Int("swipes", i+1))
			return nil
		}
		last = &ev
	}
	return nil
}

func samePosition(a, b platform.AccessibilityEvent) bool {
	return a.ScrollX == b.ScrollX && a.ScrollY == b.ScrollY &&
		a.FromIndex == b.FromIndex && a.ToIndex == b.ToIndex && a.ItemCount == b.ItemCount
}

// swipePath returns a forward swipe across the middle half of r, clipped to
// the display. ok is false when nothing of r is on screen.
func (e *Engine) swipePath(r model.Rect, horizontal bool) (from, to model.Point, ok bool) {
	w, h := e.prov.Device.DisplaySize()
	x1, y1 := max(r.X, 0), max(r.Y, 0)
	x2, y2 := min(r.X+r.Width, w), min(r.Y+r.Height, h)
	if x2 <= x1 || y2 <= y1 {
		return from, to, false
	}
	cx, cy := (x1+x2)/2, (y1+y2)/2
	if horizontal {
		qw := (x2 - x1) / 4
		return model.Point{X: x2 - 1 - qw, Y: cy}, model.Point{X: x1 + qw, Y: cy}, true
	}
	qh := (y2 - y1) / 4
	return model.Point{X: cx, Y: y2 - 1 - qh}, model.Point{X: cx, Y: y1 + qh}, true
}
