// Package element defines the handles returned by element lookups and the
// per-session cache that maps opaque ids to them.
package element

import (
	"context"
	"errors"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

var (
	// ErrStale is returned when a handle's node is no longer in the tree.
	ErrStale = errors.New("element is no longer attached to the tree")

	// ErrBackendMismatch is returned by Child when the locator needs the
	// other query backend. The caller converts the handle and retries.
	ErrBackendMismatch = errors.New("locator is not supported by this element's backend")

	// ErrActionFailed is returned when the platform rejects an action.
	ErrActionFailed = errors.New("element action was rejected")

	// ErrNotVisible is returned when an element has no on-screen area to interact with.
	ErrNotVisible = errors.New("element has no visible bounds")
)

// Backend identifies the query facility a handle was produced by.
type Backend int

const (
	// Native handles come from attribute queries and XPath; they hold a tree node.
	Native Backend = iota
	// Selector handles come from selector expressions; they re-resolve on access.
	Selector
)

func (b Backend) String() string {
	if b == Selector {
		return "selector"
	}
	return "native"
}

// BackendFor returns the backend that resolves locators of strategy s.
func BackendFor(s model.Strategy) Backend {
	if s == model.SelectorExpression {
		return Selector
	}
	return Native
}

// Handle is a reference to a node of the live tree.
type Handle interface {
	// Key is the handle's structural identity. Handles with equal keys are
	// interchangeable and share one cache id.
	Key() string
	Backend() Backend

	// Node returns the current tree node, or ErrStale.
	Node() (platform.Node, error)
	IsStale() bool

	Info() (model.NodeInfo, error)
	Text() (string, error)
	// Attribute returns the named attribute; ok is false for unknown names.
	Attribute(name string) (value string, ok bool, err error)
	Bounds() (model.Rect, error)

	Click(ctx context.Context) error
	SetText(text string) error
	Clear() error

	// Child resolves loc relative to this element. It returns
	// ErrBackendMismatch when loc belongs to the other backend.
	Child(ctx context.Context, loc model.Locator, many bool) ([]Handle, error)
}

// Tapper taps a screen point.
type Tapper interface {
	Tap(ctx context.Context, p model.Point) error
}

// Scope resolves locators relative to a previously found element. It is
// implemented by the resolution engine.
type Scope interface {
	FindIn(ctx context.Context, parent Handle, loc model.Locator, many bool) ([]Handle, error)
}

// Env carries what handles need to re-resolve and act.
type Env struct {
	Roots  func() ([]platform.Node, error)
	Tapper Tapper
	Scope  Scope
}

// base implements the operations shared by both handle kinds on top of node().
type base struct {
	env  *Env
	node func() (platform.Node, error)
}

func (b base) IsStale() bool {
	_, err := b.node()
	return err != nil
}

func (b base) Info() (model.NodeInfo, error) {
	n, err := b.node()
	if err != nil {
		return model.NodeInfo{}, err
	}
	return n.Info(), nil
}

func (b base) Text() (string, error) {
	info, err := b.Info()
	if err != nil {
		return "", err
	}
	return info.DisplayText(), nil
}

func (b base) Attribute(name string) (string, bool, error) {
	info, err := b.Info()
	if err != nil {
		return "", false, err
	}
	v, ok := info.Attribute(name)
	return v, ok, nil
}

func (b base) Bounds() (model.Rect, error) {
	info, err := b.Info()
	if err != nil {
		return model.Rect{}, err
	}
	return info.Bounds, nil
}

func (b base) Click(ctx context.Context) error {
	r, err := b.Bounds()
	if err != nil {
		return err
	}
	if r.Empty() {
		return ErrNotVisible
	}
	return b.env.Tapper.Tap(ctx, r.Center())
}

func (b base) SetText(text string) error {
	n, err := b.node()
	if err != nil {
		return err
	}
	n.PerformAction(platform.ActionFocus, nil)
	if !n.PerformAction(platform.ActionSetText, map[string]string{"text": text}) {
		return ErrActionFailed
	}
	return nil
}

func (b base) Clear() error {
	return b.SetText("")
}
