package platform

import (
	"errors"
)

// Provider bundles all platform backends.
type Provider struct {
	Tree          TreeProvider
	Querier       Querier
	Injector      Injector
	Idle          IdleWaiter
	Device        Device
	Screenshotter Screenshotter
	Notifications NotificationSource
}

// ErrUnsupported is returned when no platform bridge has been registered.
var ErrUnsupported = errors.New("no platform bridge registered; start the server with a fixture or link a device adapter")

// ErrNoSuchWindow is returned for window handles other than the current
// window.
var ErrNoSuchWindow = errors.New("no such window")

// NewProviderFunc is set by adapter packages (or by the command layer for
// fixture-backed runs) before the server starts.
var NewProviderFunc func() (*Provider, error)

// NewProvider returns the registered Provider.
func NewProvider() (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	p, err := NewProviderFunc()
	if err != nil {
		return nil, err
	}
	if p.Querier == nil {
		p.Querier = DefaultQuerier{}
	}
	return p, nil
}

// Roots returns the window roots, falling back to the active root when the
// provider reports no windows.
func (p *Provider) Roots() ([]Node, error) {
	roots, err := p.Tree.WindowRoots()
	if err != nil {
		return nil, err
	}
	if len(roots) > 0 {
		return roots, nil
	}
	root, err := p.Tree.RootNode()
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	return []Node{root}, nil
}
