// Package selector implements the -android uiautomator locator language: a
// chain of UiSelector and UiScrollable calls parsed into primitive
// selectors that are evaluated against the live tree.
package selector

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

type attr int

const (
	attrText attr = iota
	attrDescription
	attrClass
	attrPackage
	attrResourceID
)

var attrNames = [...]string{"TEXT", "DESCRIPTION", "CLASS", "PACKAGE_NAME", "RESOURCE_ID"}

func (a attr) value(n model.NodeInfo) string {
	switch a {
	case attrText:
		return n.Text
	case attrDescription:
		return n.ContentDesc
	case attrClass:
		return n.Class
	case attrPackage:
		return n.Package
	default:
		return n.ResourceID
	}
}

type matchOp int

const (
	opEquals matchOp = iota
	opContains
	opStartsWith
	opMatches
)

var opSuffixes = [...]string{"", "_CONTAINS", "_STARTS_WITH", "_REGEX"}

type criterion struct {
	attr attr
	op   matchOp
	str  string
	re   *regexp.Regexp
}

func (c criterion) match(n model.NodeInfo) bool {
	v := c.attr.value(n)
	switch c.op {
	case opContains:
		return strings.Contains(v, c.str)
	case opStartsWith:
		return strings.HasPrefix(v, c.str)
	case opMatches:
		return c.re.MatchString(v)
	default:
		return v == c.str
	}
}

// Selector is a primitive tree query. Attribute criteria and flags constrain
// a node; Index constrains its position among siblings; Instance picks the
// n-th match in document order. Child and FromParent chain a further query
// relative to each match.
type Selector struct {
	criteria   []criterion
	flags      []flagCriterion
	index      *int
	instance   *int
	child      *Selector
	fromParent *Selector

	// within scopes the query to the descendants of another selector's
	// results, for lookups relative to an element found earlier.
	within *Selector

	// Scroll is set when the selector was produced by a scrollable container
	// method. The resolution layer uses it to scroll until the target appears.
	Scroll *ScrollSpec

	// pick selects one entry of the final result list; -1 keeps all.
	pick int
}

type flagCriterion struct {
	name string // attribute name as projected, e.g. "long-clickable"
	want bool
}

// ScrollSpec describes a scrollable container search.
type ScrollSpec struct {
	Container  *Selector
	Horizontal bool
	MaxSwipes  int
}

// DefaultMaxSearchSwipes bounds scroll searches unless setMaxSearchSwipes
// overrides it.
const DefaultMaxSearchSwipes = 30

func newSelector() *Selector {
	return &Selector{pick: -1}
}

func (s *Selector) clone() *Selector {
	c := *s
	c.criteria = append([]criterion(nil), s.criteria...)
	c.flags = append([]flagCriterion(nil), s.flags...)
	if s.child != nil {
		c.child = s.child.clone()
	}
	if s.fromParent != nil {
		c.fromParent = s.fromParent.clone()
	}
	if s.within != nil {
		c.within = s.within.clone()
	}
	return &c
}

// leaf returns the last selector of the child/fromParent chain: the one
// whose matches are the final result.
func (s *Selector) leaf() *Selector {
	for {
		switch {
		case s.child != nil:
			s = s.child
		case s.fromParent != nil:
			s = s.fromParent
		default:
			return s
		}
	}
}

// HasInstance reports whether the final selector of the chain carries an
// explicit instance clause, in which case the selector designates at most
// one node.
func (s *Selector) HasInstance() bool {
	return s.leaf().instance != nil
}

// Nth returns a copy of s pinned to the i-th node of its result list.
func (s *Selector) Nth(i int) *Selector {
	c := s.clone()
	c.pick = i
	return c
}

// FromNodeInfo builds a selector matching every identifying attribute of n:
// package, class, text, description, resource id, boolean flags and index.
func FromNodeInfo(n model.NodeInfo) *Selector {
	s := newSelector()
	s.criteria = []criterion{
		{attr: attrPackage, str: n.Package},
		{attr: attrClass, str: n.Class},
		{attr: attrText, str: n.Text},
		{attr: attrDescription, str: n.ContentDesc},
		{attr: attrResourceID, str: n.ResourceID},
	}
	for _, name := range platform.FlagNames {
		if name == "password" {
			continue
		}
		v, _ := n.Attribute(name)
		s.flags = append(s.flags, flagCriterion{name: name, want: v == "true"})
	}
	idx := n.Index
	s.index = &idx
	return s
}

func (s *Selector) matchesNode(n model.NodeInfo) bool {
	for _, c := range s.criteria {
		if !c.match(n) {
			return false
		}
	}
	for _, f := range s.flags {
		v, _ := n.Attribute(f.name)
		if (v == "true") != f.want {
			return false
		}
	}
	if s.index != nil && *s.index != n.Index {
		return false
	}
	return true
}

// Within returns a copy of s that only matches descendants of the nodes
// parent resolves to.
func (s *Selector) Within(parent *Selector) *Selector {
	c := s.clone()
	c.within = parent.clone()
	return c
}

// FindAll evaluates s over the trees under roots and returns the matching
// nodes in document order without duplicates.
func (s *Selector) FindAll(roots []platform.Node) []platform.Node {
	var result []platform.Node
	if s.within != nil {
		seen := make(map[string]bool)
		for _, b := range s.within.FindAll(roots) {
			for _, n := range s.evaluate(b.Children()) {
				if !seen[n.Key()] {
					seen[n.Key()] = true
					result = append(result, n)
				}
			}
		}
	} else {
		result = s.evaluate(roots)
	}
	if s.pick >= 0 {
		if s.pick < len(result) {
			return result[s.pick : s.pick+1]
		}
		return nil
	}
	return result
}

// Find returns the first node FindAll would return.
func (s *Selector) Find(roots []platform.Node) (platform.Node, bool) {
	all := s.FindAll(roots)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

func (s *Selector) evaluate(roots []platform.Node) []platform.Node {
	var base []platform.Node
	platform.Walk(roots, func(n platform.Node) bool {
		if s.matchesNode(n.Info()) {
			base = append(base, n)
		}
		return true
	})
	if s.instance != nil {
		if *s.instance >= len(base) {
			return nil
		}
		base = base[*s.instance : *s.instance+1]
	}

	switch {
	case s.child != nil:
		var out []platform.Node
		seen := make(map[string]bool)
		for _, b := range base {
			for _, n := range s.child.evaluate(b.Children()) {
				if !seen[n.Key()] {
					seen[n.Key()] = true
					out = append(out, n)
				}
			}
		}
		return out
	case s.fromParent != nil:
		var out []platform.Node
		seen := make(map[string]bool)
		for _, b := range base {
			p := b.Parent()
			if p == nil {
				continue
			}
			for _, n := range s.fromParent.evaluate(p.Children()) {
				if !seen[n.Key()] {
					seen[n.Key()] = true
					out = append(out, n)
				}
			}
		}
		return out
	default:
		return base
	}
}

// String renders s in a canonical form. Selectors with equal strings
// designate the same query: criteria and flags are sorted by name and
// values are quoted, so call order and separators inside values never
// change or collide.
func (s *Selector) String() string {
	var parts []string
	var crit []string
	for _, c := range s.criteria {
		v := c.str
		if c.op == opMatches {
			v = c.re.String()
		}
		crit = append(crit, attrNames[c.attr]+opSuffixes[c.op]+"="+strconv.Quote(v))
	}
	sort.Strings(crit)
	parts = append(parts, crit...)

	flags := append([]flagCriterion(nil), s.flags...)
	sort.Slice(flags, func(i, j int) bool { return flags[i].name < flags[j].name })
	for _, f := range flags {
		parts = append(parts, strings.ToUpper(strings.ReplaceAll(f.name, "-", "_"))+"="+strconv.FormatBool(f.want))
	}
	if s.index != nil {
		parts = append(parts, "INDEX="+strconv.Itoa(*s.index))
	}
	if s.instance != nil {
		parts = append(parts, "INSTANCE="+strconv.Itoa(*s.instance))
	}
	if s.child != nil {
		parts = append(parts, "CHILD="+s.child.String())
	}
	if s.fromParent != nil {
		parts = append(parts, "PARENT="+s.fromParent.String())
	}
	out := "UiSelector[" + strings.Join(parts, ", ") + "]"
	if s.within != nil {
		out = s.within.String() + " > " + out
	}
	if s.pick >= 0 {
		out += fmt.Sprintf("#%d", s.pick)
	}
	return out
}
