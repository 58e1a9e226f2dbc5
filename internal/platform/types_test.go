package platform

import (
	"testing"

	"github.com/mj1618/uiautomator-server/internal/model"
)

type fakeNode struct {
	key      string
	info     model.NodeInfo
	parent   Node
	children []Node
}

func (n *fakeNode) Key() string                                 { return n.key }
func (n *fakeNode) Info() model.NodeInfo                        { return n.info }
func (n *fakeNode) Parent() Node                                { return n.parent }
func (n *fakeNode) Children() []Node                            { return n.children }
func (n *fakeNode) Refresh() bool                               { return true }
func (n *fakeNode) PerformAction(Action, map[string]string) bool { return false }

func buildTree() *fakeNode {
	root := &fakeNode{key: "0", info: model.NodeInfo{Class: "android.widget.FrameLayout"}}
	a := &fakeNode{key: "1", parent: root, info: model.NodeInfo{Class: "android.widget.Button", Text: "OK", Clickable: true}}
	b := &fakeNode{key: "2", parent: root, info: model.NodeInfo{Class: "android.widget.Button", Text: "Cancel", Index: 1}}
	c := &fakeNode{key: "3", parent: b, info: model.NodeInfo{Class: "android.widget.TextView", Text: "OK"}}
	b.children = []Node{c}
	root.children = []Node{a, b}
	return root
}

func TestRotationFromDegrees(t *testing.T) {
	tests := []struct {
		deg     int
		want    Rotation
		wantErr bool
	}{
		{0, Rotation0, false},
		{90, Rotation90, false},
		{180, Rotation180, false},
		{270, Rotation270, false},
		{10, 0, true},
		{360, 0, true},
		{-90, 0, true},
	}
	for _, tt := range tests {
		got, err := RotationFromDegrees(tt.deg)
		if (err != nil) != tt.wantErr {
			t.Errorf("RotationFromDegrees(%d) error = %v, wantErr %v", tt.deg, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("RotationFromDegrees(%d) = %v, want %v", tt.deg, got, tt.want)
		}
	}
}

func TestBy_Matches(t *testing.T) {
	n := model.NodeInfo{Class: "android.widget.Button", Text: "OK", Clickable: true}
	one := 1
	tests := []struct {
		name string
		by   By
		want bool
	}{
		{"empty matches all", By{}, true},
		{"class", By{Class: "android.widget.Button"}, true},
		{"text mismatch", By{Text: "Cancel"}, false},
		{"flag", By{Flags: map[string]bool{"clickable": true}}, true},
		{"flag false", By{Flags: map[string]bool{"checked": true}}, false},
		{"index", By{Index: &one}, false},
	}
	for _, tt := range tests {
		if got := tt.by.Matches(n); got != tt.want {
			t.Errorf("%s: Matches() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestByFromInfo_MatchesSource(t *testing.T) {
	n := model.NodeInfo{Class: "android.widget.CheckBox", ResourceID: "com.app:id/c", Checkable: true, Index: 2}
	if !ByFromInfo(n).Matches(n) {
		t.Error("query built from a node should match that node")
	}
	other := n
	other.Checked = true
	if ByFromInfo(n).Matches(other) {
		t.Error("query should constrain boolean flags")
	}
}

func TestDefaultQuerier(t *testing.T) {
	root := buildTree()
	q := DefaultQuerier{}

	matches := q.FindMatches(By{Text: "OK"}, []Node{root})
	if len(matches) != 2 || matches[0].Key() != "1" || matches[1].Key() != "3" {
		t.Errorf("FindMatches returned %d nodes in wrong order", len(matches))
	}
	n, ok := q.FindMatch(By{Class: "android.widget.Button", Text: "Cancel"}, []Node{root})
	if !ok || n.Key() != "2" {
		t.Errorf("FindMatch() = %v, %v", n, ok)
	}
	if _, ok := q.FindMatch(By{Text: "missing"}, []Node{root}); ok {
		t.Error("expected no match")
	}
}
