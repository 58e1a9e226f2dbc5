package model

import "testing"

func flat(class, id, text, path string) FlatElement {
	return FlatElement{NodeInfo: NodeInfo{Class: class, ResourceID: id, Text: text}, Path: path}
}

func TestStructuralKey_IgnoresText(t *testing.T) {
	a := NodeInfo{Class: "android.widget.TextView", ResourceID: "com.app:id/title", Text: "one"}
	b := a
	b.Text = "two"
	b.Bounds = Rect{X: 5}
	if StructuralKey(a, "FrameLayout > TextView") != StructuralKey(b, "FrameLayout > TextView") {
		t.Error("text and bounds should not affect the structural key")
	}
	if StructuralKey(a, "FrameLayout > TextView") == StructuralKey(a, "TextView") {
		t.Error("path should affect the structural key")
	}
}

func TestDiffTrees(t *testing.T) {
	prev := []FlatElement{
		flat("android.widget.TextView", "com.app:id/title", "Inbox", "TextView"),
		flat("android.widget.Button", "com.app:id/refresh", "Refresh", "Button"),
	}
	curr := []FlatElement{
		flat("android.widget.TextView", "com.app:id/title", "Inbox (3)", "TextView"),
		flat("android.widget.Button", "com.app:id/compose", "Compose", "Button"),
	}
	diff := DiffTrees(prev, curr)
	if len(diff.Added) != 1 || diff.Added[0].ResourceID != "com.app:id/compose" {
		t.Errorf("Added = %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].ResourceID != "com.app:id/refresh" {
		t.Errorf("Removed = %+v", diff.Removed)
	}
	if len(diff.Changed) != 1 {
		t.Fatalf("expected 1 change, got %d", len(diff.Changed))
	}
	if got := diff.Changed[0].Changes["text"]; got != [2]string{"Inbox", "Inbox (3)"} {
		t.Errorf("text change = %v", got)
	}
	if diff.UnchangedCount != 0 {
		t.Errorf("UnchangedCount = %d, want 0", diff.UnchangedCount)
	}
}

func TestDiffTrees_Unchanged(t *testing.T) {
	els := []FlatElement{flat("android.view.View", "", "", "View")}
	diff := DiffTrees(els, els)
	if diff.UnchangedCount != 1 || len(diff.Added)+len(diff.Removed)+len(diff.Changed) != 0 {
		t.Errorf("unexpected diff %+v", diff)
	}
}
