// Package pagesource projects the live accessibility tree into a document
// that XPath expressions and page-source dumps are evaluated against.
//
// Every query builds its own Snapshot: the projection is never shared across
// calls or requests because the live tree may change between them. Each
// snapshot is stamped with a generation from a process-wide counter, and a
// Ref obtained from one snapshot does not resolve against another.
package pagesource

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

// RootTag is the synthetic wrapper element every snapshot is rooted at.
const RootTag = "hierarchy"

// ToastClass is the class reported for synthetic toast nodes.
const ToastClass = "android.widget.Toast"

// ErrStaleGeneration is returned when a Ref is resolved against a snapshot
// other than the one it came from.
var ErrStaleGeneration = errors.New("snapshot generation mismatch")

var generation atomic.Uint64

// Ref identifies a node within one snapshot.
type Ref struct {
	Gen  uint64
	Slot int
}

type entry struct {
	node   platform.Node
	info   model.NodeInfo
	parent int // slot of the parent, -1 for top-level nodes
	depth  int
}

// Snapshot is an immutable projection of part of the tree. Slots are
// assigned in document order.
type Snapshot struct {
	gen   uint64
	arena []entry
	doc   *html.Node
	root  *html.Node
	slots map[*html.Node]int
}

// Options controls what a snapshot captures.
type Options struct {
	// Toasts are appended as synthetic leaf nodes under the root.
	Toasts platform.NotificationSource
}

// Take projects the trees under roots. Pass a single context node to scope
// queries to its subtree.
func Take(roots []platform.Node, opts Options) *Snapshot {
	s := &Snapshot{
		gen:   generation.Add(1),
		slots: make(map[*html.Node]int),
	}
	s.doc = &html.Node{Type: html.DocumentNode}
	s.root = &html.Node{Type: html.ElementNode, Data: RootTag}
	s.doc.AppendChild(s.root)

	for _, r := range roots {
		if r != nil {
			s.add(r, r.Info(), s.root, -1, 0)
		}
	}
	if opts.Toasts != nil {
		for _, t := range opts.Toasts.PendingToasts() {
			tn := &toastNode{toast: t, source: opts.Toasts, index: countElements(s.root)}
			s.add(tn, tn.Info(), s.root, -1, 0)
		}
	}
	// The wrapper stands for the first root, so //hierarchy always resolves.
	if len(s.arena) > 0 {
		s.slots[s.root] = 0
	}
	return s
}

func countElements(n *html.Node) int {
	c := 0
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode {
			c++
		}
	}
	return c
}

func (s *Snapshot) add(n platform.Node, info model.NodeInfo, parentEl *html.Node, parentSlot, depth int) {
	slot := len(s.arena)
	s.arena = append(s.arena, entry{node: n, info: info, parent: parentSlot, depth: depth})

	el := &html.Node{Type: html.ElementNode, Data: TagName(info.Class)}
	for _, a := range info.Attributes() {
		el.Attr = append(el.Attr, html.Attribute{Key: a.Name, Val: a.Value})
	}
	parentEl.AppendChild(el)
	s.slots[el] = slot

	for _, c := range n.Children() {
		if c != nil {
			s.add(c, c.Info(), el, slot, depth+1)
		}
	}
}

// Generation returns the snapshot's generation stamp.
func (s *Snapshot) Generation() uint64 {
	return s.gen
}

// Len returns the number of projected nodes, synthetic toasts included.
func (s *Snapshot) Len() int {
	return len(s.arena)
}

// Resolve maps a Ref back to its tree node.
func (s *Snapshot) Resolve(ref Ref) (platform.Node, error) {
	if ref.Gen != s.gen {
		return nil, fmt.Errorf("%w: ref from generation %d, snapshot is %d", ErrStaleGeneration, ref.Gen, s.gen)
	}
	if ref.Slot < 0 || ref.Slot >= len(s.arena) {
		return nil, fmt.Errorf("snapshot slot %d out of range", ref.Slot)
	}
	return s.arena[ref.Slot].node, nil
}

// Info returns the projection captured for ref.
func (s *Snapshot) Info(ref Ref) (model.NodeInfo, error) {
	if ref.Gen != s.gen {
		return model.NodeInfo{}, fmt.Errorf("%w: ref from generation %d, snapshot is %d", ErrStaleGeneration, ref.Gen, s.gen)
	}
	if ref.Slot < 0 || ref.Slot >= len(s.arena) {
		return model.NodeInfo{}, fmt.Errorf("snapshot slot %d out of range", ref.Slot)
	}
	return s.arena[ref.Slot].info, nil
}

// TagName converts a widget class name into a valid element name. Characters
// outside the XML name alphabet (such as '$' in nested class names) become '_'.
func TagName(class string) string {
	if class == "" {
		return "android.view.View"
	}
	var b strings.Builder
	for i, r := range class {
		valid := r == '_' || r == '.' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !valid {
			r = '_'
		}
		if i == 0 && !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}
