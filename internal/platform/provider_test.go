package platform

import (
	"errors"
	"testing"
)

func TestNewProvider_Unregistered(t *testing.T) {
	orig := NewProviderFunc
	NewProviderFunc = nil
	defer func() { NewProviderFunc = orig }()

	_, err := NewProvider()
	if err == nil {
		t.Fatal("expected error with no registered bridge")
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got: %v", err)
	}
}

func TestNewProvider_DefaultsQuerier(t *testing.T) {
	orig := NewProviderFunc
	NewProviderFunc = func() (*Provider, error) {
		return &Provider{Tree: fakeTree{}}, nil
	}
	defer func() { NewProviderFunc = orig }()

	p, err := NewProvider()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Querier.(DefaultQuerier); !ok {
		t.Errorf("expected DefaultQuerier, got %T", p.Querier)
	}
}

func TestProvider_RootsFallsBackToRootNode(t *testing.T) {
	root := &fakeNode{key: "root"}
	p := &Provider{Tree: fakeTree{root: root}}
	roots, err := p.Roots()
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 || roots[0].Key() != "root" {
		t.Errorf("Roots() = %v", roots)
	}
}

type fakeTree struct {
	root    Node
	windows []Node
}

func (f fakeTree) RootNode() (Node, error)      { return f.root, nil }
func (f fakeTree) WindowRoots() ([]Node, error) { return f.windows, nil }
