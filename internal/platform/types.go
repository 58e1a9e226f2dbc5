package platform

import (
	"fmt"
	"time"

	"github.com/mj1618/uiautomator-server/internal/model"
)

// Rotation is a device orientation in quarter turns clockwise from natural.
type Rotation int

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Degrees returns the rotation in degrees.
func (r Rotation) Degrees() int {
	return int(r) * 90
}

// IsLandscape reports whether the rotation swaps the natural display axes.
func (r Rotation) IsLandscape() bool {
	return r == Rotation90 || r == Rotation270
}

// RotationFromDegrees converts 0, 90, 180 or 270 to a Rotation.
func RotationFromDegrees(deg int) (Rotation, error) {
	if deg < 0 || deg > 270 || deg%90 != 0 {
		return 0, fmt.Errorf("invalid rotation %d: expected 0, 90, 180 or 270", deg)
	}
	return Rotation(deg / 90), nil
}

// EventAction is the kind of a motion event.
type EventAction int

const (
	ActionDown EventAction = iota
	ActionMove
	ActionUp
	ActionCancel
)

func (a EventAction) String() string {
	switch a {
	case ActionDown:
		return "down"
	case ActionMove:
		return "move"
	case ActionUp:
		return "up"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Pointer is one finger of a motion event.
type Pointer struct {
	ID int
	X  int
	Y  int
}

// InputEvent is a synthetic motion event. Pointers lists every pointer that
// is down at the time of the event; ActionIndex identifies the pointer that
// went down or up.
type InputEvent struct {
	Action      EventAction
	ActionIndex int
	Pointers    []Pointer
	DownTime    time.Time
	EventTime   time.Time
}

// EventType is an accessibility event type.
type EventType int

const (
	EventViewClicked EventType = iota + 1
	EventViewScrolled
	EventWindowContentChanged
	EventWindowStateChanged
	EventNotificationStateChanged
)

func (t EventType) String() string {
	switch t {
	case EventViewClicked:
		return "TYPE_VIEW_CLICKED"
	case EventViewScrolled:
		return "TYPE_VIEW_SCROLLED"
	case EventWindowContentChanged:
		return "TYPE_WINDOW_CONTENT_CHANGED"
	case EventWindowStateChanged:
		return "TYPE_WINDOW_STATE_CHANGED"
	case EventNotificationStateChanged:
		return "TYPE_NOTIFICATION_STATE_CHANGED"
	default:
		return "TYPE_UNKNOWN"
	}
}

// AccessibilityEvent is the subset of an accessibility event the server consumes.
type AccessibilityEvent struct {
	Type       EventType
	Time       time.Time
	Package    string
	Class      string
	Text       string
	ScrollX    int
	ScrollY    int
	MaxScrollX int
	MaxScrollY int
	FromIndex  int
	ToIndex    int
	ItemCount  int
}

// Toast is a transient notification message.
type Toast struct {
	Text    string
	Package string
}

// ErrEventTimeout is returned by Injector.ExecuteAndWait when no matching
// event arrived in time.
var ErrEventTimeout = fmt.Errorf("timed out waiting for accessibility event")

// Flag attribute names accepted in By.Flags.
var FlagNames = []string{
	"checkable", "checked", "clickable", "enabled", "focusable", "focused",
	"scrollable", "long-clickable", "password", "selected",
}

// By is a native attribute query. Empty string fields and a nil Index match
// any value; Flags constrains boolean attributes by name.
type By struct {
	Class       string
	Package     string
	Text        string
	ContentDesc string
	ResourceID  string
	Index       *int
	Flags       map[string]bool
}

// Matches reports whether n satisfies every constraint of b.
func (b By) Matches(n model.NodeInfo) bool {
	if b.Class != "" && b.Class != n.Class {
		return false
	}
	if b.Package != "" && b.Package != n.Package {
		return false
	}
	if b.Text != "" && b.Text != n.DisplayText() {
		return false
	}
	if b.ContentDesc != "" && b.ContentDesc != n.ContentDesc {
		return false
	}
	if b.ResourceID != "" && b.ResourceID != n.ResourceID {
		return false
	}
	if b.Index != nil && *b.Index != n.Index {
		return false
	}
	for name, want := range b.Flags {
		v, ok := n.Attribute(name)
		if !ok || (v == "true") != want {
			return false
		}
	}
	return true
}

// ByFromInfo builds a query matching every identifying attribute of n.
func ByFromInfo(n model.NodeInfo) By {
	idx := n.Index
	by := By{
		Class:       n.Class,
		Package:     n.Package,
		Text:        n.DisplayText(),
		ContentDesc: n.ContentDesc,
		ResourceID:  n.ResourceID,
		Index:       &idx,
		Flags:       make(map[string]bool, len(FlagNames)),
	}
	for _, name := range FlagNames {
		v, _ := n.Attribute(name)
		by.Flags[name] = v == "true"
	}
	return by
}

func (b By) String() string {
	s := "By["
	sep := ""
	add := func(k, v string) {
		s += sep + k + "=" + v
		sep = ", "
	}
	if b.Class != "" {
		add("class", b.Class)
	}
	if b.Package != "" {
		add("pkg", b.Package)
	}
	if b.Text != "" {
		add("text", b.Text)
	}
	if b.ContentDesc != "" {
		add("desc", b.ContentDesc)
	}
	if b.ResourceID != "" {
		add("res", b.ResourceID)
	}
	if b.Index != nil {
		add("index", fmt.Sprint(*b.Index))
	}
	return s + "]"
}
