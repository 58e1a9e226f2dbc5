package memtree

import (
	"strconv"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

// Node is a node of a Tree. It implements platform.Node.
type Node struct {
	tree     *Tree
	id       int
	info     model.NodeInfo
	parent   *Node
	children []*Node
	detached bool
}

func (n *Node) Key() string {
	return "memtree-" + strconv.Itoa(n.id)
}

func (n *Node) Info() model.NodeInfo {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.info
}

func (n *Node) Parent() platform.Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Children() []platform.Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	out := make([]platform.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *Node) Refresh() bool {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return !n.detached
}

// PerformAction applies accessibility actions to the in-memory projection.
func (n *Node) PerformAction(action platform.Action, args map[string]string) bool {
	t := n.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	if n.detached || !n.info.Enabled {
		return false
	}
	switch action {
	case platform.ActionSetText:
		n.info.Text = args["text"]
		t.emitLocked(platform.AccessibilityEvent{Type: platform.EventWindowContentChanged, Class: n.info.Class, Package: n.info.Package, Text: n.info.Text})
	case platform.ActionClick, platform.ActionLongClick:
		t.clickLocked(n)
	case platform.ActionFocus:
		n.info.Focused = true
	case platform.ActionScrollForward:
		return t.scrollLocked(n, true)
	case platform.ActionScrollBackward:
		return t.scrollLocked(n, false)
	default:
		return false
	}
	return true
}

func (n *Node) detach() {
	n.detached = true
	for _, c := range n.children {
		c.detach()
	}
}

func (n *Node) element() model.Element {
	el := model.Element{NodeInfo: n.info}
	for _, c := range n.children {
		el.Children = append(el.Children, c.element())
	}
	return el
}
