package finder

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/element"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/selector"
)

// Convert re-resolves h through the given backend using a query built from
// every identifying attribute of its current node. When the other backend
// cannot see an equivalent node the error wraps both ErrConversion and
// element.ErrStale.
func (e *Engine) Convert(h element.Handle, to element.Backend) (element.Handle, error) {
	if h.Backend() == to {
		return h, nil
	}
	info, err := h.Info()
	if err != nil {
		return nil, err
	}
	roots, err := e.prov.Roots()
	if err != nil {
		return nil, err
	}
	switch to {
	case element.Selector:
		sel := selector.FromNodeInfo(info)
		if _, ok := sel.Find(roots); !ok {
			return nil, fmt.Errorf("%w: %s: %w", ErrConversion, sel, element.ErrStale)
		}
		e.log.Debug("converted element", zap.String("from", h.Key()), zap.Stringer("to", sel))
		return element.NewLiveBound(e.env, sel), nil
	default:
		by := platform.ByFromInfo(info)
		n, ok := e.prov.Querier.FindMatch(by, roots)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %w", ErrConversion, by, element.ErrStale)
		}
		e.log.Debug("converted element", zap.String("from", h.Key()), zap.Stringer("to", by))
		return element.NewSnapshotBound(e.env, n), nil
	}
}
