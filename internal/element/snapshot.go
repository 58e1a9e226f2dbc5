package element

import (
	"context"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

// SnapshotBound holds the tree node captured when it was found. Every
// access checks the node is still attached.
type SnapshotBound struct {
	base
	n platform.Node
}

// NewSnapshotBound binds n.
func NewSnapshotBound(env *Env, n platform.Node) *SnapshotBound {
	h := &SnapshotBound{n: n}
	h.base = base{env: env, node: h.check}
	return h
}

func (h *SnapshotBound) check() (platform.Node, error) {
	if !h.n.Refresh() {
		return nil, ErrStale
	}
	return h.n, nil
}

func (h *SnapshotBound) Key() string {
	return "node:" + h.n.Key()
}

func (h *SnapshotBound) Backend() Backend {
	return Native
}

func (h *SnapshotBound) Node() (platform.Node, error) {
	return h.check()
}

func (h *SnapshotBound) Child(ctx context.Context, loc model.Locator, many bool) ([]Handle, error) {
	if BackendFor(loc.Strategy) != Native {
		return nil, ErrBackendMismatch
	}
	if _, err := h.check(); err != nil {
		return nil, err
	}
	return h.env.Scope.FindIn(ctx, h, loc, many)
}
