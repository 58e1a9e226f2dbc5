// Package memtree is an in-memory platform bridge backed by a hierarchy dump.
// It serves fixture-driven runs of the server and the offline CLI, and it is
// mutable so tests can detach nodes, change text, post toasts and queue
// content that appears when a container is scrolled.
package memtree

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

const (
	defaultWidth  = 1080
	defaultHeight = 1920
	maxEvents     = 64
)

// ErrEmptyTree is returned by RootNode when the fixture has no nodes.
var ErrEmptyTree = errors.New("memtree: tree has no nodes")

// Tree is a mutable accessibility tree. It implements every platform bridge
// interface.
type Tree struct {
	mu     sync.RWMutex
	nextID int
	roots  []*Node

	width, height int
	rotation      platform.Rotation

	toasts    []platform.Toast
	events    []platform.AccessibilityEvent
	injected  []platform.InputEvent
	taps      []model.Point
	gesture   *gesture
	pages     map[*Node][][]model.NodeInfo
	scrollPos map[*Node]int
}

// New returns an empty tree with the default display size.
func New() *Tree {
	return &Tree{
		width:     defaultWidth,
		height:    defaultHeight,
		pages:     make(map[*Node][][]model.NodeInfo),
		scrollPos: make(map[*Node]int),
	}
}

// LoadFile parses a hierarchy dump from disk.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse builds a tree from a hierarchy dump. Both the device dump format
// (<node class="..."> elements) and the page-source format (elements named
// by class) are accepted. A <hierarchy> root element is unwrapped and its
// children become the window roots.
func Parse(data []byte) (*Tree, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parse fixture: no root element")
	}

	t := New()
	tops := []*etree.Element{root}
	if root.Tag == "hierarchy" {
		tops = root.ChildElements()
		if v, err := strconv.Atoi(root.SelectAttrValue("rotation", "0")); err == nil && v >= 0 && v <= 3 {
			t.rotation = platform.Rotation(v)
		}
		if w, err := strconv.Atoi(root.SelectAttrValue("width", "")); err == nil && w > 0 {
			t.width = w
		}
		if h, err := strconv.Atoi(root.SelectAttrValue("height", "")); err == nil && h > 0 {
			t.height = h
		}
	}
	for i, el := range tops {
		n, err := t.buildNode(el, nil, i)
		if err != nil {
			return nil, err
		}
		t.roots = append(t.roots, n)
	}
	if root.Tag == "hierarchy" && root.SelectAttr("width") == nil && len(t.roots) > 0 {
		if b := t.roots[0].info.Bounds; !b.Empty() {
			t.width, t.height = b.X+b.Width, b.Y+b.Height
		}
	}
	return t, nil
}

func (t *Tree) buildNode(el *etree.Element, parent *Node, index int) (*Node, error) {
	info, err := nodeInfoFromElement(el)
	if err != nil {
		return nil, err
	}
	info.Index = index
	n := t.newNode(info, parent)
	for i, child := range el.ChildElements() {
		c, err := t.buildNode(child, n, i)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, c)
	}
	return n, nil
}

func nodeInfoFromElement(el *etree.Element) (model.NodeInfo, error) {
	attr := func(k string) string { return el.SelectAttrValue(k, "") }
	flag := func(k string) bool { return attr(k) == "true" }

	class := attr("class")
	if class == "" && el.Tag != "node" {
		class = el.Tag
	}
	info := model.NodeInfo{
		Class:         class,
		Package:       attr("package"),
		Text:          attr("text"),
		ContentDesc:   attr("content-desc"),
		ResourceID:    attr("resource-id"),
		Hint:          attr("hint"),
		Checkable:     flag("checkable"),
		Checked:       flag("checked"),
		Clickable:     flag("clickable"),
		Enabled:       flag("enabled"),
		Focusable:     flag("focusable"),
		Focused:       flag("focused"),
		Scrollable:    flag("scrollable"),
		LongClickable: flag("long-clickable"),
		Password:      flag("password"),
		Selected:      flag("selected"),
		Displayed:     el.SelectAttrValue("displayed", "true") == "true",
	}
	if b := attr("bounds"); b != "" {
		r, err := model.ParseBounds(b)
		if err != nil {
			return info, fmt.Errorf("parse fixture: %w", err)
		}
		info.Bounds = r
	}
	if cur := attr("range-current"); cur != "" {
		var rng model.RangeInfo
		var err error
		if rng.Current, err = strconv.ParseFloat(cur, 64); err != nil {
			return info, fmt.Errorf("parse fixture: range-current %q: %w", cur, err)
		}
		rng.Min, _ = strconv.ParseFloat(attr("range-min"), 64)
		rng.Max, _ = strconv.ParseFloat(attr("range-max"), 64)
		info.Range = &rng
	}
	return info, nil
}

func (t *Tree) newNode(info model.NodeInfo, parent *Node) *Node {
	t.nextID++
	return &Node{tree: t, id: t.nextID, info: info, parent: parent}
}

// Provider bundles the tree as a platform provider.
func (t *Tree) Provider() *platform.Provider {
	return &platform.Provider{
		Tree:          t,
		Querier:       platform.DefaultQuerier{},
		Injector:      t,
		Idle:          t,
		Device:        t,
		Screenshotter: t,
		Notifications: t,
	}
}

// RootNode returns the first window root.
func (t *Tree) RootNode() (platform.Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.roots) == 0 {
		return nil, ErrEmptyTree
	}
	return t.roots[0], nil
}

// WindowRoots returns every window root.
func (t *Tree) WindowRoots() ([]platform.Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]platform.Node, len(t.roots))
	for i, r := range t.roots {
		out[i] = r
	}
	return out, nil
}

// Elements returns a copy of the tree as model elements.
func (t *Tree) Elements() []model.Element {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Element, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, r.element())
	}
	return out
}

// Find returns the first node in document order whose projection satisfies
// match, or nil.
func (t *Tree) Find(match func(model.NodeInfo) bool) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return findLocked(t.roots, match)
}

// FindByResourceID returns the first node with the given resource id.
func (t *Tree) FindByResourceID(id string) *Node {
	return t.Find(func(n model.NodeInfo) bool { return n.ResourceID == id })
}

func findLocked(nodes []*Node, match func(model.NodeInfo) bool) *Node {
	for _, n := range nodes {
		if match(n.info) {
			return n
		}
		if found := findLocked(n.children, match); found != nil {
			return found
		}
	}
	return nil
}

// Append adds a new child under parent and returns it.
func (t *Tree) Append(parent *Node, info model.NodeInfo) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(parent, info)
}

func (t *Tree) appendLocked(parent *Node, info model.NodeInfo) *Node {
	if parent == nil {
		info.Index = len(t.roots)
		n := t.newNode(info, nil)
		t.roots = append(t.roots, n)
		return n
	}
	info.Index = len(parent.children)
	n := t.newNode(info, parent)
	parent.children = append(parent.children, n)
	return n
}

// Remove detaches n and its subtree. Handles still referring to them become stale.
func (t *Tree) Remove(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	siblings := &t.roots
	if n.parent != nil {
		siblings = &n.parent.children
	}
	for i, s := range *siblings {
		if s == n {
			*siblings = append((*siblings)[:i:i], (*siblings)[i+1:]...)
			break
		}
	}
	for i, s := range *siblings {
		s.info.Index = i
	}
	n.detach()
}

// Update applies fn to the projection of n.
func (t *Tree) Update(n *Node, fn func(*model.NodeInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := n.info.Index
	fn(&n.info)
	n.info.Index = idx
}

// SetText replaces the text of n.
func (t *Tree) SetText(n *Node, text string) {
	t.Update(n, func(info *model.NodeInfo) { info.Text = text })
}

// PostToast shows a toast message until ClearToasts is called.
func (t *Tree) PostToast(text, pkg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toasts = append(t.toasts, platform.Toast{Text: text, Package: pkg})
	t.emitLocked(platform.AccessibilityEvent{Type: platform.EventNotificationStateChanged, Text: text, Package: pkg, Class: "android.widget.Toast"})
}

// ClearToasts removes every pending toast.
func (t *Tree) ClearToasts() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toasts = nil
}

// PendingToasts implements platform.NotificationSource.
func (t *Tree) PendingToasts() []platform.Toast {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]platform.Toast(nil), t.toasts...)
}
