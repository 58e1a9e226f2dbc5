package pagesource

import (
	"errors"
	"fmt"
	"sort"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/mj1618/uiautomator-server/internal/platform"
)

// ErrInvalidExpression wraps XPath compile failures and expressions that do
// not select nodes.
var ErrInvalidExpression = errors.New("invalid xpath expression")

// Compile parses an XPath expression.
func Compile(expr string) (*xpath.Expr, error) {
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidExpression, expr, err)
	}
	return e, nil
}

// Query evaluates expr and returns references to the matching nodes in
// document order. A match on the synthetic root yields the first root; the
// document node never matches.
func (s *Snapshot) Query(expr *xpath.Expr) ([]Ref, error) {
	res := expr.Evaluate(htmlquery.CreateXPathNavigator(s.doc))
	iter, ok := res.(*xpath.NodeIterator)
	if !ok {
		return nil, fmt.Errorf("%w %q: result is %T, not a node-set", ErrInvalidExpression, expr.String(), res)
	}

	seen := make(map[int]bool)
	var slots []int
	for iter.MoveNext() {
		nav, ok := iter.Current().(*htmlquery.NodeNavigator)
		if !ok {
			continue
		}
		slot, ok := s.slotOf(nav.Current())
		if !ok || seen[slot] {
			continue
		}
		seen[slot] = true
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	refs := make([]Ref, len(slots))
	for i, slot := range slots {
		refs[i] = Ref{Gen: s.gen, Slot: slot}
	}
	return refs, nil
}

func (s *Snapshot) slotOf(n *html.Node) (int, bool) {
	if n == nil || n.Type != html.ElementNode {
		return 0, false
	}
	slot, ok := s.slots[n]
	return slot, ok
}

// FindAll snapshots roots, evaluates expr and maps the matches back to tree
// nodes in document order. A context node scopes the query to its subtree.
func FindAll(expr string, roots []platform.Node, opts Options) ([]platform.Node, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	s := Take(roots, opts)
	refs, err := s.Query(compiled)
	if err != nil {
		return nil, err
	}
	nodes := make([]platform.Node, 0, len(refs))
	for _, ref := range refs {
		n, err := s.Resolve(ref)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
