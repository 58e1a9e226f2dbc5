// Package input injects synthetic gestures. All injection goes through a
// Dispatcher, which holds one lock for the whole of a gesture and any
// acknowledgment wait that follows it: the accessibility event stream is
// shared by every caller, so two interleaved gestures would see each
// other's events.
package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

var (
	// ErrOutOfBounds is returned for points outside the display.
	ErrOutOfBounds = errors.New("point is outside the display")

	// ErrInjectionFailed is returned when the platform rejects an event.
	ErrInjectionFailed = errors.New("input event injection failed")
)

const (
	// LongPressDuration is the default hold time for long presses.
	LongPressDuration = 600 * time.Millisecond
	// DefaultSwipeSteps is the number of move events a swipe is split into.
	DefaultSwipeSteps = 10
)

// Dispatcher serializes gestures onto a platform injector.
type Dispatcher struct {
	mu    sync.Mutex
	inj   platform.Injector
	dev   platform.Device
	now   func() time.Time
	touch *touchState
}

type touchState struct {
	downTime time.Time
	at       model.Point
}

// NewDispatcher creates a dispatcher for the given injector and device.
func NewDispatcher(inj platform.Injector, dev platform.Device) *Dispatcher {
	return &Dispatcher{inj: inj, dev: dev, now: time.Now}
}

func (d *Dispatcher) checkPoint(p model.Point) error {
	w, h := d.dev.DisplaySize()
	if p.X < 0 || p.Y < 0 || p.X >= w || p.Y >= h {
		return fmt.Errorf("%w: (%d,%d) not within %dx%d", ErrOutOfBounds, p.X, p.Y, w, h)
	}
	return nil
}

func (d *Dispatcher) inject(action platform.EventAction, index int, pointers []platform.Pointer, down time.Time) error {
	ev := platform.InputEvent{
		Action:      action,
		ActionIndex: index,
		Pointers:    pointers,
		DownTime:    down,
		EventTime:   d.now(),
	}
	if !d.inj.InjectEventSync(ev) {
		return fmt.Errorf("%w: %s", ErrInjectionFailed, action)
	}
	return nil
}

func single(p model.Point) []platform.Pointer {
	return []platform.Pointer{{ID: 0, X: p.X, Y: p.Y}}
}

// Tap injects a down/up pair at p.
func (d *Dispatcher) Tap(ctx context.Context, p model.Point) error {
	return d.press(ctx, p, 0)
}

// LongPress holds a touch at p for hold, or LongPressDuration when hold is zero.
func (d *Dispatcher) LongPress(ctx context.Context, p model.Point, hold time.Duration) error {
	if hold <= 0 {
		hold = LongPressDuration
	}
	return d.press(ctx, p, hold)
}

func (d *Dispatcher) press(ctx context.Context, p model.Point, hold time.Duration) error {
	if err := d.checkPoint(p); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	down := d.now()
	if err := d.inject(platform.ActionDown, 0, single(p), down); err != nil {
		return err
	}
	if err := sleep(ctx, hold); err != nil {
		_ = d.inject(platform.ActionCancel, 0, single(p), down)
		return err
	}
	return d.inject(platform.ActionUp, 0, single(p), down)
}

// Swipe drags a single pointer from one point to another in steps moves.
func (d *Dispatcher) Swipe(ctx context.Context, from, to model.Point, steps int) error {
	if err := d.checkPoint(from); err != nil {
		return err
	}
	if err := d.checkPoint(to); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swipeLocked(ctx, from, to, steps, 0)
}

// Drag is a swipe that holds the initial touch long enough to pick the
// element up first.
func (d *Dispatcher) Drag(ctx context.Context, from, to model.Point, steps int) error {
	if err := d.checkPoint(from); err != nil {
		return err
	}
	if err := d.checkPoint(to); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swipeLocked(ctx, from, to, steps, LongPressDuration)
}

// SwipeAndWait swipes and waits up to timeout for an accessibility event
// accepted by filter, holding the lock until the wait ends.
func (d *Dispatcher) SwipeAndWait(ctx context.Context, from, to model.Point, steps int, filter func(platform.AccessibilityEvent) bool, timeout time.Duration) (platform.AccessibilityEvent, error) {
	if err := d.checkPoint(from); err != nil {
		return platform.AccessibilityEvent{}, err
	}
	if err := d.checkPoint(to); err != nil {
		return platform.AccessibilityEvent{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inj.ExecuteAndWait(ctx, func() error {
		return d.swipeLocked(ctx, from, to, steps, 0)
	}, filter, timeout)
}

func (d *Dispatcher) swipeLocked(ctx context.Context, from, to model.Point, steps int, hold time.Duration) error {
	if steps <= 0 {
		steps = DefaultSwipeSteps
	}
	down := d.now()
	if err := d.inject(platform.ActionDown, 0, single(from), down); err != nil {
		return err
	}
	if err := sleep(ctx, hold); err != nil {
		_ = d.inject(platform.ActionCancel, 0, single(from), down)
		return err
	}
	for i := 1; i <= steps; i++ {
		p := lerp(from, to, float64(i)/float64(steps))
		if err := d.inject(platform.ActionMove, 0, single(p), down); err != nil {
			return err
		}
	}
	return d.inject(platform.ActionUp, 0, single(to), down)
}

// TouchDown starts a touch that later TouchMove and TouchUp calls continue.
func (d *Dispatcher) TouchDown(ctx context.Context, p model.Point) error {
	if err := d.checkPoint(p); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	down := d.now()
	if err := d.inject(platform.ActionDown, 0, single(p), down); err != nil {
		return err
	}
	d.touch = &touchState{downTime: down, at: p}
	return nil
}

// TouchMove moves the current touch. Without a touch in progress it is a no-op.
func (d *Dispatcher) TouchMove(ctx context.Context, p model.Point) error {
	if err := d.checkPoint(p); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.touch == nil {
		return nil
	}
	if err := d.inject(platform.ActionMove, 0, single(p), d.touch.downTime); err != nil {
		return err
	}
	d.touch.at = p
	return nil
}

// TouchUp ends the current touch at p.
func (d *Dispatcher) TouchUp(ctx context.Context, p model.Point) error {
	if err := d.checkPoint(p); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	down := d.now()
	if d.touch != nil {
		down = d.touch.downTime
	}
	d.touch = nil
	return d.inject(platform.ActionUp, 0, single(p), down)
}

func lerp(a, b model.Point, t float64) model.Point {
	return model.Point{
		X: a.X + int(float64(b.X-a.X)*t),
		Y: a.Y + int(float64(b.Y-a.Y)*t),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
