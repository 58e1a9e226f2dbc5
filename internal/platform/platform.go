// Package platform declares the narrow bridge between the automation core and
// the device: the accessibility tree, the native attribute query, input
// injection with event acknowledgment, idle waits, rotation and screenshots.
// Concrete adapters live in sub-packages and register through NewProviderFunc.
package platform

import (
	"context"
	"image"
	"time"

	"github.com/mj1618/uiautomator-server/internal/model"
)

// Node is a live accessibility tree node.
type Node interface {
	// Key returns an identity that is stable for as long as the node stays in
	// the tree. Two Node values with equal keys refer to the same live node.
	Key() string

	// Info returns the attribute projection as of the last Refresh.
	Info() model.NodeInfo

	Parent() Node
	Children() []Node

	// Refresh re-reads the node from the tree. It returns false once the node
	// has been detached.
	Refresh() bool

	// PerformAction runs an accessibility action on the node.
	PerformAction(action Action, args map[string]string) bool
}

// Action names an accessibility action.
type Action string

const (
	ActionClick          Action = "click"
	ActionLongClick      Action = "long_click"
	ActionFocus          Action = "focus"
	ActionSetText        Action = "set_text"
	ActionScrollForward  Action = "scroll_forward"
	ActionScrollBackward Action = "scroll_backward"
)

// TreeProvider exposes the roots of the live accessibility tree.
type TreeProvider interface {
	// RootNode returns the root of the active window.
	RootNode() (Node, error)

	// WindowRoots returns the root of every interactive window, active window first.
	WindowRoots() ([]Node, error)
}

// Querier is the native describe-by-attributes query facility.
type Querier interface {
	FindMatch(by By, roots []Node) (Node, bool)
	FindMatches(by By, roots []Node) []Node
}

// Injector injects synthetic input events.
type Injector interface {
	// InjectEventSync injects a single event and reports whether the platform accepted it.
	InjectEventSync(ev InputEvent) bool

	// ExecuteAndWait runs fn, then waits up to timeout for an accessibility
	// event accepted by filter. Callers serialize calls themselves.
	ExecuteAndWait(ctx context.Context, fn func() error, filter func(AccessibilityEvent) bool, timeout time.Duration) (AccessibilityEvent, error)
}

// IdleWaiter blocks until the UI has been idle, or until timeout.
type IdleWaiter interface {
	WaitForIdle(ctx context.Context, timeout time.Duration) error
}

// Device reports and changes physical device state.
type Device interface {
	Rotation() Rotation
	SetRotation(r Rotation) error
	DisplaySize() (width, height int)
}

// Screenshotter captures the screen.
type Screenshotter interface {
	Screenshot() (image.Image, error)
}

// NotificationSource reports toast messages currently on screen.
type NotificationSource interface {
	PendingToasts() []Toast
}
