package element

import (
	"context"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/selector"
)

// LiveBound is bound to a selector and re-resolves it against the current
// tree on every access. It goes stale as soon as the selector stops matching.
type LiveBound struct {
	base
	sel *selector.Selector
}

// NewLiveBound binds sel.
func NewLiveBound(env *Env, sel *selector.Selector) *LiveBound {
	h := &LiveBound{sel: sel}
	h.base = base{env: env, node: h.resolve}
	return h
}

func (h *LiveBound) resolve() (platform.Node, error) {
	roots, err := h.env.Roots()
	if err != nil {
		return nil, err
	}
	n, ok := h.sel.Find(roots)
	if !ok {
		return nil, ErrStale
	}
	return n, nil
}

// Selector returns the bound selector.
func (h *LiveBound) Selector() *selector.Selector {
	return h.sel
}

func (h *LiveBound) Key() string {
	return "selector:" + h.sel.String()
}

func (h *LiveBound) Backend() Backend {
	return Selector
}

func (h *LiveBound) Node() (platform.Node, error) {
	return h.resolve()
}

func (h *LiveBound) Child(ctx context.Context, loc model.Locator, many bool) ([]Handle, error) {
	if BackendFor(loc.Strategy) != Selector {
		return nil, ErrBackendMismatch
	}
	if _, err := h.resolve(); err != nil {
		return nil, err
	}
	return h.env.Scope.FindIn(ctx, h, loc, many)
}
