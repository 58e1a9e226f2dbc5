package memtree

import (
	"context"
	"time"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

// tapSlop is the largest pointer travel still treated as a tap.
const tapSlop = 10

type gesture struct {
	start model.Point
	last  model.Point
}

// InjectEventSync records ev and interprets the primary pointer's gestures:
// a short travel is a tap on the innermost clickable node, a longer one
// scrolls the innermost scrollable node under the start point.
func (t *Tree) InjectEventSync(ev platform.InputEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range ev.Pointers {
		if p.X < 0 || p.Y < 0 || p.X >= t.width || p.Y >= t.height {
			return false
		}
	}
	t.injected = append(t.injected, ev)
	if len(ev.Pointers) == 0 {
		return true
	}
	p := ev.Pointers[0]
	pt := model.Point{X: p.X, Y: p.Y}
	switch ev.Action {
	case platform.ActionDown:
		if t.gesture == nil {
			t.gesture = &gesture{start: pt, last: pt}
		}
	case platform.ActionMove:
		if t.gesture != nil {
			t.gesture.last = pt
		}
	case platform.ActionUp:
		if t.gesture == nil || len(ev.Pointers) > 1 {
			return true
		}
		g := *t.gesture
		g.last = pt
		t.gesture = nil
		t.finishGestureLocked(g)
	case platform.ActionCancel:
		t.gesture = nil
	}
	return true
}

func (t *Tree) finishGestureLocked(g gesture) {
	dx, dy := g.last.X-g.start.X, g.last.Y-g.start.Y
	if abs(dx) <= tapSlop && abs(dy) <= tapSlop {
		t.taps = append(t.taps, g.start)
		if n := t.deepestAtLocked(g.start, func(i model.NodeInfo) bool { return i.Clickable }); n != nil {
			t.clickLocked(n)
		}
		return
	}
	n := t.deepestAtLocked(g.start, func(i model.NodeInfo) bool { return i.Scrollable })
	if n == nil {
		return
	}
	// Content follows the finger: dragging up or left reveals what comes next.
	forward := dy < 0
	if abs(dx) > abs(dy) {
		forward = dx < 0
	}
	t.scrollLocked(n, forward)
}

func (t *Tree) clickLocked(n *Node) {
	if n.info.Checkable {
		n.info.Checked = !n.info.Checked
	}
	t.emitLocked(platform.AccessibilityEvent{Type: platform.EventViewClicked, Class: n.info.Class, Package: n.info.Package, Text: n.info.DisplayText()})
}

// scrollLocked moves container one page. Moving forward reveals the next
// queued page if there is one; either way a scroll event reporting the
// resulting position is emitted.
func (t *Tree) scrollLocked(container *Node, forward bool) bool {
	step := container.info.Bounds.Height / 2
	if step <= 0 {
		step = 1
	}
	moved := false
	if forward {
		if queue := t.pages[container]; len(queue) > 0 {
			for _, info := range queue[0] {
				t.appendLocked(container, info)
			}
			t.pages[container] = queue[1:]
			t.scrollPos[container] += step
			moved = true
		}
	} else if t.scrollPos[container] > 0 {
		t.scrollPos[container] -= step
		if t.scrollPos[container] < 0 {
			t.scrollPos[container] = 0
		}
		moved = true
	}
	count := len(container.children)
	t.emitLocked(platform.AccessibilityEvent{
		Type:       platform.EventViewScrolled,
		Class:      container.info.Class,
		Package:    container.info.Package,
		ScrollY:    t.scrollPos[container],
		MaxScrollY: t.scrollPos[container] + step*len(t.pages[container]),
		FromIndex:  0,
		ToIndex:    count - 1,
		ItemCount:  count,
	})
	return moved
}

// QueueScrollPage queues nodes that are appended to container the next time
// it is scrolled forward.
func (t *Tree) QueueScrollPage(container *Node, page ...model.NodeInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages[container] = append(t.pages[container], page)
}

func (t *Tree) deepestAtLocked(pt model.Point, match func(model.NodeInfo) bool) *Node {
	var found *Node
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if !n.info.Displayed || !n.info.Bounds.Contains(pt) {
				continue
			}
			if match(n.info) {
				found = n
			}
			walk(n.children)
		}
	}
	walk(t.roots)
	return found
}

func (t *Tree) emitLocked(ev platform.AccessibilityEvent) {
	ev.Time = time.Now()
	t.events = append(t.events, ev)
	if len(t.events) > maxEvents {
		t.events = t.events[len(t.events)-maxEvents:]
	}
}

// ExecuteAndWait implements platform.Injector. Events emitted before fn runs
// are discarded.
func (t *Tree) ExecuteAndWait(ctx context.Context, fn func() error, filter func(platform.AccessibilityEvent) bool, timeout time.Duration) (platform.AccessibilityEvent, error) {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()

	if err := fn(); err != nil {
		return platform.AccessibilityEvent{}, err
	}
	deadline := time.Now().Add(timeout)
	for {
		t.mu.RLock()
		for _, ev := range t.events {
			if filter(ev) {
				t.mu.RUnlock()
				return ev, nil
			}
		}
		t.mu.RUnlock()
		if !time.Now().Before(deadline) {
			return platform.AccessibilityEvent{}, platform.ErrEventTimeout
		}
		select {
		case <-ctx.Done():
			return platform.AccessibilityEvent{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Injected returns every accepted input event.
func (t *Tree) Injected() []platform.InputEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]platform.InputEvent(nil), t.injected...)
}

// Taps returns the points of every completed tap gesture.
func (t *Tree) Taps() []model.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.Point(nil), t.taps...)
}

// WaitForIdle implements platform.IdleWaiter. The in-memory tree is always idle.
func (t *Tree) WaitForIdle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
