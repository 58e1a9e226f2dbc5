package session

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mj1618/uiautomator-server/internal/element"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/platform/memtree"
)

func cachedHandle(t *testing.T, s *Session) string {
	t.Helper()
	tree, err := memtree.Parse([]byte(`<hierarchy><node class="android.widget.Button" text="OK"/></hierarchy>`))
	if err != nil {
		t.Fatal(err)
	}
	root, err := tree.RootNode()
	if err != nil {
		t.Fatal(err)
	}
	return s.Cache.Add(element.NewSnapshotBound(&element.Env{}, root))
}

func TestManager_NoSession(t *testing.T) {
	m := NewManager()
	if _, err := m.Current(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Current() error = %v", err)
	}
	if err := m.Delete("nope"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Delete() error = %v", err)
	}
	if got := m.List(); len(got) != 0 {
		t.Errorf("List() = %v", got)
	}
}

func TestManager_CreateReplacesActiveSession(t *testing.T) {
	m := NewManager()
	first := m.Create(Capabilities{"appPackage": "com.example"})
	id := cachedHandle(t, first)
	if first.Cache.Len() != 1 {
		t.Fatalf("cache len = %d", first.Cache.Len())
	}

	second := m.Create(nil)
	if first.Cache.Len() != 0 {
		t.Error("previous session's cache was not cleared")
	}
	if _, ok := first.Cache.Get(id); ok {
		t.Error("previous session's element is still resolvable")
	}
	if _, err := m.Get(first.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Get(old id) error = %v", err)
	}
	cur, err := m.Get(second.ID)
	if err != nil || cur != second {
		t.Errorf("Get(new id) = %v, %v", cur, err)
	}
	if len(m.List()) != 1 {
		t.Errorf("List() has %d sessions", len(m.List()))
	}
}

func TestManager_Delete(t *testing.T) {
	m := NewManager()
	s := m.Create(Capabilities{})
	cachedHandle(t, s)
	if err := m.Delete("other"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Delete(other) error = %v", err)
	}
	if err := m.Delete(s.ID); err != nil {
		t.Fatal(err)
	}
	if s.Cache.Len() != 0 {
		t.Error("cache not cleared on delete")
	}
	if _, err := m.Current(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Current() after delete error = %v", err)
	}
}

func TestManager_ConcurrentCreate(t *testing.T) {
	m := NewManager()
	var g errgroup.Group
	created := make([]*Session, 16)
	for i := range created {
		g.Go(func() error {
			created[i] = m.Create(nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	cur, err := m.Current()
	if err != nil {
		t.Fatal(err)
	}
	active := 0
	for _, s := range created {
		if s == cur {
			active++
		}
	}
	if active != 1 {
		t.Errorf("%d created sessions are active, want 1", active)
	}
}

func TestManager_ConcurrentCurrentOrCreate(t *testing.T) {
	m := NewManager()
	var g errgroup.Group
	got := make([]*Session, 16)
	for i := range got {
		g.Go(func() error {
			got[i] = m.CurrentOrCreate(nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	for i, s := range got {
		if s != got[0] {
			t.Errorf("caller %d got session %s, want %s", i, s.ID, got[0].ID)
		}
	}
	if n := len(m.List()); n != 1 {
		t.Errorf("List() has %d sessions, want 1", n)
	}
	if cur, _ := m.Current(); cur != got[0] {
		t.Error("shared session is not the active one")
	}
}

func TestManager_Defaults(t *testing.T) {
	defaults := DefaultSettings()
	defaults.ScrollAcknowledgmentTimeout = 50 * time.Millisecond
	m := NewManager(WithDefaults(defaults), WithImplicitWait(2*time.Second))
	s := m.Create(Capabilities{"appPackage": "com.example"})
	if s.ScrollTimeout() != 50*time.Millisecond {
		t.Errorf("ScrollTimeout() = %v", s.ScrollTimeout())
	}
	if s.ImplicitWait() != 2*time.Second {
		t.Errorf("ImplicitWait() = %v", s.ImplicitWait())
	}
	if s.SelectorTimeout() != defaults.WaitForSelectorTimeout {
		t.Errorf("SelectorTimeout() = %v", s.SelectorTimeout())
	}
	if s.AppPackage() != "com.example" {
		t.Errorf("AppPackage() = %q", s.AppPackage())
	}
	s.SetImplicitWait(-time.Second)
	if s.ImplicitWait() != 0 {
		t.Errorf("negative implicit wait stored as %v", s.ImplicitWait())
	}
}

func TestSession_LastScroll(t *testing.T) {
	s := NewManager().Create(nil)
	if _, ok := s.LastScroll(); ok {
		t.Error("new session has a last scroll")
	}
	s.RecordScroll(platform.AccessibilityEvent{Type: platform.EventViewScrolled, ScrollY: 300})
	ev, ok := s.LastScroll()
	if !ok || ev.ScrollY != 300 {
		t.Errorf("LastScroll() = %+v, %v", ev, ok)
	}
}
