package selector

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidSelector matches every error returned by Parse.
var ErrInvalidSelector = errors.New("invalid selector expression")

// SyntaxError reports a rejected expression and the fragment where parsing stopped.
type SyntaxError struct {
	Pos      int
	Msg      string
	Fragment string
}

func (e *SyntaxError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("%s: %s at position %d", ErrInvalidSelector, e.Msg, e.Pos)
	}
	return fmt.Sprintf("%s: %s at position %d near %q", ErrInvalidSelector, e.Msg, e.Pos, e.Fragment)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrInvalidSelector
}

const maxFragment = 24

func syntaxError(src string, pos int, msg string) error {
	frag := ""
	if pos < len(src) {
		frag = src[pos:]
		if len(frag) > maxFragment {
			frag = frag[:maxFragment] + "..."
		}
	}
	return &SyntaxError{Pos: pos, Msg: msg, Fragment: frag}
}

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindSelector
	kindScrollable
	kindObject
)

func (k valueKind) String() string {
	switch k {
	case kindString:
		return "String"
	case kindInt:
		return "int"
	case kindBool:
		return "boolean"
	case kindSelector:
		return "UiSelector"
	case kindScrollable:
		return "UiScrollable"
	default:
		return "UiObject"
	}
}

type value struct {
	kind   valueKind
	pos    int
	str    string
	num    int
	b      bool
	sel    *Selector
	scroll *scrollable
}

type scrollable struct {
	container  *Selector
	horizontal bool
	maxSwipes  int
}

type parser struct {
	src  string
	toks []token
	i    int
}

// Parse parses a selector expression into the ordered list of selectors it
// designates, one per ';'-separated statement. Malformed input is rejected
// as a whole with an error matching ErrInvalidSelector.
func Parse(expr string) ([]*Selector, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{src: expr, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, syntaxError(expr, 0, "empty expression")
	}

	var out []*Selector
	for {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, statementSelector(v))

		t := p.next()
		switch t.kind {
		case tokEOF:
			return out, nil
		case tokSemicolon:
			if p.peek().kind == tokEOF {
				return out, nil
			}
		default:
			return nil, p.errorAt(t, fmt.Sprintf("unexpected %s, expected '.' or ';'", t.kind))
		}
	}
}

func statementSelector(v value) *Selector {
	if v.kind == kindScrollable {
		return v.scroll.container.clone()
	}
	return v.sel
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorAt(t token, msg string) error {
	return syntaxError(p.src, t.pos, msg)
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorAt(t, fmt.Sprintf("expected %s, found %s", what, t.kind))
	}
	return t, nil
}

// parseExpr parses ['new'] Constructor(args) { .method(args) }.
func (p *parser) parseExpr() (value, error) {
	if t := p.peek(); t.kind == tokIdent && t.text == "new" && p.toks[p.i+1].kind == tokIdent {
		p.next()
	}
	name, err := p.expect(tokIdent, "constructor name")
	if err != nil {
		return value{}, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return value{}, err
	}
	v, err := p.construct(name, args)
	if err != nil {
		return value{}, err
	}

	for p.peek().kind == tokDot {
		p.next()
		method, err := p.expect(tokIdent, "method name")
		if err != nil {
			return value{}, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return value{}, err
		}
		if v, err = p.call(v, method, args); err != nil {
			return value{}, err
		}
	}
	return v, nil
}

func (p *parser) parseArgs() ([]value, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []value
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		t := p.next()
		switch t.kind {
		case tokComma:
			continue
		case tokRParen:
			return args, nil
		default:
			return nil, p.errorAt(t, fmt.Sprintf("expected ',' or ')', found %s", t.kind))
		}
	}
}

func (p *parser) parseArg() (value, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return value{kind: kindString, pos: t.pos, str: t.text}, nil
	case tokNumber:
		p.next()
		n, err := strconv.Atoi(t.text)
		if err != nil {
			return value{}, p.errorAt(t, "integer out of range")
		}
		return value{kind: kindInt, pos: t.pos, num: n}, nil
	case tokIdent:
		if t.text == "true" || t.text == "false" {
			p.next()
			return value{kind: kindBool, pos: t.pos, b: t.text == "true"}, nil
		}
		v, err := p.parseExpr()
		if err != nil {
			return value{}, err
		}
		v.pos = t.pos
		return v, nil
	default:
		return value{}, p.errorAt(t, fmt.Sprintf("unexpected %s in argument list", t.kind))
	}
}

func (p *parser) construct(name token, args []value) (value, error) {
	switch name.text {
	case "UiSelector":
		if len(args) != 0 {
			return value{}, p.errorAt(name, fmt.Sprintf("UiSelector takes no arguments, got %d", len(args)))
		}
		return value{kind: kindSelector, pos: name.pos, sel: newSelector()}, nil
	case "UiScrollable":
		if err := p.checkArgs(name, args, kindSelector); err != nil {
			return value{}, err
		}
		sc := &scrollable{container: args[0].sel, maxSwipes: DefaultMaxSearchSwipes}
		return value{kind: kindScrollable, pos: name.pos, scroll: sc}, nil
	default:
		return value{}, p.errorAt(name, fmt.Sprintf("unknown constructor %q", name.text))
	}
}

func (p *parser) checkArgs(method token, args []value, want ...valueKind) error {
	if len(args) != len(want) {
		return p.errorAt(method, fmt.Sprintf("%s expects %d argument(s), got %d", method.text, len(want), len(args)))
	}
	for i, k := range want {
		if args[i].kind != k {
			return syntaxError(p.src, args[i].pos, fmt.Sprintf("argument %d of %s must be %s, got %s", i+1, method.text, k, args[i].kind))
		}
	}
	return nil
}

func (p *parser) call(recv value, method token, args []value) (value, error) {
	switch recv.kind {
	case kindSelector:
		sel, err := p.callSelector(recv.sel, method, args)
		if err != nil {
			return value{}, err
		}
		recv.sel = sel
		return recv, nil
	case kindScrollable:
		return p.callScrollable(recv.scroll, method, args)
	default:
		return value{}, p.errorAt(method, fmt.Sprintf("unknown method %q for %s", method.text, recv.kind))
	}
}

type stringMethod struct {
	attr attr
	op   matchOp
}

var stringMethods = map[string]stringMethod{
	"text":                  {attrText, opEquals},
	"textContains":          {attrText, opContains},
	"textStartsWith":        {attrText, opStartsWith},
	"textMatches":           {attrText, opMatches},
	"description":           {attrDescription, opEquals},
	"descriptionContains":   {attrDescription, opContains},
	"descriptionStartsWith": {attrDescription, opStartsWith},
	"descriptionMatches":    {attrDescription, opMatches},
	"className":             {attrClass, opEquals},
	"classNameMatches":      {attrClass, opMatches},
	"packageName":           {attrPackage, opEquals},
	"packageNameMatches":    {attrPackage, opMatches},
	"resourceId":            {attrResourceID, opEquals},
	"resourceIdMatches":     {attrResourceID, opMatches},
}

var boolMethods = map[string]string{
	"checkable":     "checkable",
	"checked":       "checked",
	"clickable":     "clickable",
	"enabled":       "enabled",
	"focusable":     "focusable",
	"focused":       "focused",
	"longClickable": "long-clickable",
	"scrollable":    "scrollable",
	"selected":      "selected",
}

func (p *parser) callSelector(s *Selector, method token, args []value) (*Selector, error) {
	name := method.text
	if m, ok := stringMethods[name]; ok {
		if err := p.checkArgs(method, args, kindString); err != nil {
			return nil, err
		}
		c := criterion{attr: m.attr, op: m.op, str: args[0].str}
		if m.op == opMatches {
			re, err := regexp.Compile("^(?:" + args[0].str + ")$")
			if err != nil {
				return nil, syntaxError(p.src, args[0].pos, fmt.Sprintf("invalid regular expression: %v", err))
			}
			c.re = re
		}
		s.setCriterion(c)
		return s, nil
	}
	if attrName, ok := boolMethods[name]; ok {
		if err := p.checkArgs(method, args, kindBool); err != nil {
			return nil, err
		}
		s.setFlag(flagCriterion{name: attrName, want: args[0].b})
		return s, nil
	}
	switch name {
	case "index", "instance":
		if err := p.checkArgs(method, args, kindInt); err != nil {
			return nil, err
		}
		if args[0].num < 0 {
			return nil, syntaxError(p.src, args[0].pos, fmt.Sprintf("%s must not be negative", name))
		}
		n := args[0].num
		if name == "index" {
			s.index = &n
		} else {
			s.instance = &n
		}
		return s, nil
	case "childSelector", "fromParent":
		if err := p.checkArgs(method, args, kindSelector); err != nil {
			return nil, err
		}
		if name == "childSelector" {
			s.child = args[0].sel
		} else {
			s.fromParent = args[0].sel
		}
		return s, nil
	}
	return nil, p.errorAt(method, fmt.Sprintf("unknown method %q for UiSelector", name))
}

func (s *Selector) setCriterion(c criterion) {
	for i, existing := range s.criteria {
		if existing.attr == c.attr && existing.op == c.op {
			s.criteria[i] = c
			return
		}
	}
	s.criteria = append(s.criteria, c)
}

func (s *Selector) setFlag(f flagCriterion) {
	for i, existing := range s.flags {
		if existing.name == f.name {
			s.flags[i] = f
			return
		}
	}
	s.flags = append(s.flags, f)
}

func (p *parser) callScrollable(sc *scrollable, method token, args []value) (value, error) {
	switch method.text {
	case "setAsHorizontalList", "setAsVerticalList":
		if err := p.checkArgs(method, args); err != nil {
			return value{}, err
		}
		sc.horizontal = method.text == "setAsHorizontalList"
		return value{kind: kindScrollable, pos: method.pos, scroll: sc}, nil
	case "setMaxSearchSwipes":
		if err := p.checkArgs(method, args, kindInt); err != nil {
			return value{}, err
		}
		if args[0].num <= 0 {
			return value{}, syntaxError(p.src, args[0].pos, "setMaxSearchSwipes must be positive")
		}
		sc.maxSwipes = args[0].num
		return value{kind: kindScrollable, pos: method.pos, scroll: sc}, nil
	case "scrollIntoView":
		if err := p.checkArgs(method, args, kindSelector); err != nil {
			return value{}, err
		}
		return sc.target(args[0].sel, true, method.pos), nil
	case "getChildByText", "getChildByDescription":
		allow := true
		switch len(args) {
		case 3:
			if err := p.checkArgs(method, args, kindSelector, kindString, kindBool); err != nil {
				return value{}, err
			}
			allow = args[2].b
		default:
			if err := p.checkArgs(method, args, kindSelector, kindString); err != nil {
				return value{}, err
			}
		}
		target := args[0].sel.clone()
		a := attrText
		if method.text == "getChildByDescription" {
			a = attrDescription
		}
		target.setCriterion(criterion{attr: a, op: opEquals, str: args[1].str})
		return sc.target(target, allow, method.pos), nil
	case "getChildByInstance":
		if err := p.checkArgs(method, args, kindSelector, kindInt); err != nil {
			return value{}, err
		}
		if args[1].num < 0 {
			return value{}, syntaxError(p.src, args[1].pos, "instance must not be negative")
		}
		target := args[0].sel.clone()
		n := args[1].num
		target.instance = &n
		return sc.target(target, false, method.pos), nil
	}
	return value{}, p.errorAt(method, fmt.Sprintf("unknown method %q for UiScrollable", method.text))
}

// target builds the selector for a child of the container. The container's
// match is searched for target among its descendants.
func (sc *scrollable) target(target *Selector, scroll bool, pos int) value {
	res := sc.container.clone()
	res.leaf().child = target
	if scroll {
		res.Scroll = &ScrollSpec{Container: sc.container.clone(), Horizontal: sc.horizontal, MaxSwipes: sc.maxSwipes}
	}
	return value{kind: kindObject, pos: pos, sel: res}
}
