// Package finder resolves locators into element handles. It dispatches on
// the locator strategy, scopes lookups to a parent element, converts handles
// between the native and selector backends and polls for elements that have
// not appeared yet.
package finder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/element"
	"github.com/mj1618/uiautomator-server/internal/input"
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/pagesource"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/selector"
)

var (
	// ErrNotFound is returned when a locator matches nothing.
	ErrNotFound = errors.New("no element matches the locator")

	// ErrConversion is returned when an element cannot be re-resolved through
	// the other query backend.
	ErrConversion = errors.New("element could not be located through the other backend")
)

// DefaultPollInterval is the retry spacing of timed lookups.
const DefaultPollInterval = 100 * time.Millisecond

// State is the per-session input to resolution.
type State interface {
	AppPackage() string
	IdleTimeout() time.Duration
	ScrollTimeout() time.Duration
	SelectorTimeout() time.Duration
	RecordScroll(ev platform.AccessibilityEvent)
}

// Config configures an Engine.
type Config struct {
	// State returns the active session, or nil when there is none.
	State        func() State
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Engine resolves locators against a platform provider.
type Engine struct {
	prov     *platform.Provider
	input    *input.Dispatcher
	state    func() State
	interval time.Duration
	log      *zap.Logger
	env      *element.Env
}

// New creates an engine. Handles it returns tap through disp.
func New(prov *platform.Provider, disp *input.Dispatcher, cfg Config) *Engine {
	e := &Engine{
		prov:     prov,
		input:    disp,
		state:    cfg.State,
		interval: cfg.PollInterval,
		log:      cfg.Logger,
	}
	if e.interval <= 0 {
		e.interval = DefaultPollInterval
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.state == nil {
		e.state = func() State { return nil }
	}
	e.env = &element.Env{Roots: prov.Roots, Tapper: disp, Scope: e}
	return e
}

// FindElement returns the first element matching loc, searching the whole
// screen when parent is nil. It retries until timeout elapses.
func (e *Engine) FindElement(ctx context.Context, parent element.Handle, loc model.Locator, timeout time.Duration) (element.Handle, error) {
	hs, err := e.poll(ctx, parent, loc, false, timeout)
	if err != nil {
		return nil, err
	}
	return hs[0], nil
}

// FindElements returns every element matching loc. A locator matching
// nothing yields an empty list once timeout has elapsed, not an error.
func (e *Engine) FindElements(ctx context.Context, parent element.Handle, loc model.Locator, timeout time.Duration) ([]element.Handle, error) {
	hs, err := e.poll(ctx, parent, loc, true, timeout)
	if errors.Is(err, ErrNotFound) {
		return []element.Handle{}, nil
	}
	return hs, err
}

func (e *Engine) poll(ctx context.Context, parent element.Handle, loc model.Locator, many bool, timeout time.Duration) ([]element.Handle, error) {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		hs, err := e.lookup(ctx, parent, loc, many)
		if !errors.Is(err, ErrNotFound) {
			return hs, err
		}
		if !time.Now().Before(deadline) {
			e.log.Debug("lookup found nothing", zap.Stringer("locator", loc), zap.Int("attempts", attempt))
			return nil, err
		}
		timer := time.NewTimer(min(e.interval, time.Until(deadline)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// lookup makes one resolution attempt. It returns ErrNotFound rather than
// an empty list.
func (e *Engine) lookup(ctx context.Context, parent element.Handle, loc model.Locator, many bool) ([]element.Handle, error) {
	e.waitIdle(ctx)
	if parent == nil {
		return e.resolve(ctx, scope{}, loc, many)
	}
	hs, err := parent.Child(ctx, loc, many)
	if errors.Is(err, element.ErrBackendMismatch) {
		conv, cerr := e.Convert(parent, element.BackendFor(loc.Strategy))
		if cerr != nil {
			return nil, cerr
		}
		hs, err = conv.Child(ctx, loc, many)
	}
	return hs, err
}

func (e *Engine) waitIdle(ctx context.Context) {
	st := e.state()
	if e.prov.Idle == nil || st == nil || st.IdleTimeout() <= 0 {
		return
	}
	if err := e.prov.Idle.WaitForIdle(ctx, st.IdleTimeout()); err != nil {
		e.log.Debug("device did not become idle", zap.Error(err))
	}
}

// FindIn implements element.Scope.
func (e *Engine) FindIn(ctx context.Context, parent element.Handle, loc model.Locator, many bool) ([]element.Handle, error) {
	switch p := parent.(type) {
	case *element.LiveBound:
		return e.resolve(ctx, scope{within: p.Selector()}, loc, many)
	default:
		n, err := parent.Node()
		if err != nil {
			return nil, err
		}
		return e.resolve(ctx, scope{node: n}, loc, many)
	}
}

// scope restricts a lookup to a parent element. The zero scope is the
// whole screen.
type scope struct {
	node   platform.Node
	within *selector.Selector
}

func (e *Engine) resolve(ctx context.Context, sc scope, loc model.Locator, many bool) ([]element.Handle, error) {
	var hs []element.Handle
	var err error
	switch loc.Strategy {
	case model.ResourceID:
		hs, err = e.native(sc, platform.By{ResourceID: e.qualifyID(loc.Value)}, many)
	case model.AccessibilityID:
		hs, err = e.native(sc, platform.By{ContentDesc: loc.Value}, many)
	case model.ClassName:
		hs, err = e.native(sc, platform.By{Class: loc.Value}, many)
	case model.XPath:
		hs, err = e.xpath(sc, loc.Value, many)
	case model.SelectorExpression:
		hs, err = e.selectors(ctx, sc, loc.Value, many)
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownStrategy, loc.Strategy)
	}
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return hs, nil
}

var qualifiedID = regexp.MustCompile(`^[^:/\s]+:id/.+$`)

// qualifyID prefixes bare resource ids with the session's app package.
func (e *Engine) qualifyID(id string) string {
	if qualifiedID.MatchString(id) {
		return id
	}
	st := e.state()
	if st == nil || st.AppPackage() == "" {
		return id
	}
	return st.AppPackage() + ":id/" + id
}

func (e *Engine) native(sc scope, by platform.By, many bool) ([]element.Handle, error) {
	var roots []platform.Node
	if sc.node != nil {
		roots = sc.node.Children()
	} else {
		var err error
		if roots, err = e.prov.Roots(); err != nil {
			return nil, err
		}
	}
	if !many {
		n, ok := e.prov.Querier.FindMatch(by, roots)
		if !ok {
			return nil, nil
		}
		return []element.Handle{element.NewSnapshotBound(e.env, n)}, nil
	}
	nodes := e.prov.Querier.FindMatches(by, roots)
	return e.snapshotHandles(nodes), nil
}

func (e *Engine) xpath(sc scope, expr string, many bool) ([]element.Handle, error) {
	var roots []platform.Node
	var opts pagesource.Options
	if sc.node != nil {
		roots = []platform.Node{sc.node}
	} else {
		var err error
		if roots, err = e.prov.Roots(); err != nil {
			return nil, err
		}
		opts.Toasts = e.prov.Notifications
	}
	nodes, err := pagesource.FindAll(expr, roots, opts)
	if err != nil {
		return nil, err
	}
	if !many && len(nodes) > 1 {
		nodes = nodes[:1]
	}
	return e.snapshotHandles(nodes), nil
}

func (e *Engine) snapshotHandles(nodes []platform.Node) []element.Handle {
	hs := make([]element.Handle, 0, len(nodes))
	for _, n := range nodes {
		hs = append(hs, element.NewSnapshotBound(e.env, n))
	}
	return hs
}

// selectors evaluates each statement of a selector expression in order.
// Find-one returns the first statement's first match; find-many
// concatenates every statement's matches.
func (e *Engine) selectors(ctx context.Context, sc scope, expr string, many bool) ([]element.Handle, error) {
	sels, err := selector.Parse(expr)
	if err != nil {
		return nil, err
	}
	var hs []element.Handle
	for _, sel := range sels {
		if sc.within != nil {
			sel = sel.Within(sc.within)
		}
		if sel.Scroll != nil {
			if err := e.scrollIntoView(ctx, sel); err != nil {
				return nil, err
			}
		}
		roots, err := e.prov.Roots()
		if err != nil {
			return nil, err
		}
		if !many {
			if _, ok := sel.Find(roots); ok {
				return []element.Handle{element.NewLiveBound(e.env, sel)}, nil
			}
			continue
		}
		if sel.HasInstance() {
			// The instance clause already designates a single node; re-pinning
			// it to other positions would point at unrelated elements.
			if _, ok := sel.Find(roots); ok {
				hs = append(hs, element.NewLiveBound(e.env, sel))
			}
			continue
		}
		for i := range sel.FindAll(roots) {
			hs = append(hs, element.NewLiveBound(e.env, sel.Nth(i)))
		}
	}
	return hs, nil
}

// Focused returns the element holding input focus.
func (e *Engine) Focused(ctx context.Context) (element.Handle, error) {
	e.waitIdle(ctx)
	hs, err := e.native(scope{}, platform.By{Flags: map[string]bool{"focused": true}}, false)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("%w: no focused element", ErrNotFound)
	}
	return hs[0], nil
}
