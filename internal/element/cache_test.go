package element

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

type keyHandle struct {
	key string
}

func (h keyHandle) Key() string                            { return h.key }
func (h keyHandle) Backend() Backend                       { return Native }
func (h keyHandle) Node() (platform.Node, error)           { return nil, ErrStale }
func (h keyHandle) IsStale() bool                          { return true }
func (h keyHandle) Info() (model.NodeInfo, error)          { return model.NodeInfo{}, ErrStale }
func (h keyHandle) Text() (string, error)                  { return "", ErrStale }
func (h keyHandle) Attribute(string) (string, bool, error) { return "", false, ErrStale }
func (h keyHandle) Bounds() (model.Rect, error)            { return model.Rect{}, ErrStale }
func (h keyHandle) Click(context.Context) error            { return ErrStale }
func (h keyHandle) SetText(string) error                   { return ErrStale }
func (h keyHandle) Clear() error                           { return ErrStale }
func (h keyHandle) Child(context.Context, model.Locator, bool) ([]Handle, error) {
	return nil, ErrStale
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCache_Dedup(t *testing.T) {
	c := NewCache()
	id1 := c.Add(keyHandle{key: "node:1"})
	id2 := c.Add(keyHandle{key: "node:1"})
	if id1 != id2 {
		t.Errorf("equal handles got ids %q and %q", id1, id2)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if id3 := c.Add(keyHandle{key: "node:2"}); id3 == id1 {
		t.Error("distinct handles must get distinct ids")
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := NewCache()
	h, ok := c.Get("missing")
	if ok || h != nil {
		t.Errorf("Get(missing) = %v, %v", h, ok)
	}
}

func TestCache_Clear(t *testing.T) {
	c := NewCache()
	id := c.Add(keyHandle{key: "a"})
	c.Clear()
	if _, ok := c.Get(id); ok {
		t.Error("handle survived Clear")
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	if id2 := c.Add(keyHandle{key: "a"}); id2 == id {
		t.Error("re-added handle reused an evicted id")
	}
}

func TestCache_ConcurrentAdd(t *testing.T) {
	const n = 200
	c := NewCache()
	ids := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			ids[i] = c.Add(keyHandle{key: fmt.Sprintf("node:%d", i)})
			// Same key again from another goroutine's point of view.
			if again := c.Add(keyHandle{key: fmt.Sprintf("node:%d", i)}); again != ids[i] {
				return fmt.Errorf("handle %d got two ids", i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool, n)
	for i, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id for handle %d", i)
		}
		seen[id] = true
		if _, ok := c.Get(id); !ok {
			t.Fatalf("lost entry for handle %d", i)
		}
	}
	if c.Len() != n {
		t.Errorf("Len() = %d, want %d", c.Len(), n)
	}
}

func TestCache_ConcurrentSameKey(t *testing.T) {
	c := NewCache()
	ids := make([]string, 50)
	var g errgroup.Group
	for i := range ids {
		i := i
		g.Go(func() error {
			ids[i] = c.Add(keyHandle{key: "shared"})
			return nil
		})
	}
	_ = g.Wait()
	for _, id := range ids {
		if id != ids[0] {
			t.Fatal("racing adds of one handle produced different ids")
		}
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
