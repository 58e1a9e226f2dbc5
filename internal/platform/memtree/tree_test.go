package memtree

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

const fixture = `<?xml version="1.0" encoding="UTF-8"?>
<hierarchy rotation="0">
  <node index="0" class="android.widget.FrameLayout" package="com.example" bounds="[0,0][1080,1920]" enabled="true">
    <node index="0" class="android.widget.EditText" package="com.example" resource-id="com.example:id/username" text="" enabled="true" focusable="true" clickable="true" bounds="[40,200][1040,320]"/>
    <node index="1" class="android.widget.CheckBox" package="com.example" resource-id="com.example:id/remember" text="Remember me" checkable="true" clickable="true" enabled="true" bounds="[40,360][1040,440]"/>
    <node index="2" class="android.widget.ScrollView" package="com.example" resource-id="com.example:id/list" scrollable="true" enabled="true" bounds="[0,500][1080,1500]">
      <node index="0" class="android.widget.TextView" package="com.example" text="Item 1" enabled="true" bounds="[0,500][1080,600]"/>
    </node>
    <android.widget.ProgressBar package="com.example" range-min="0" range-max="100" range-current="40" enabled="true" bounds="[0,1600][1080,1650]"/>
  </node>
</hierarchy>`

func loadFixture(t *testing.T) *Tree {
	t.Helper()
	tree, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func TestParse(t *testing.T) {
	tree := loadFixture(t)
	root, err := tree.RootNode()
	if err != nil {
		t.Fatal(err)
	}
	info := root.Info()
	if info.Class != "android.widget.FrameLayout" || !info.Displayed {
		t.Errorf("root = %+v", info)
	}
	children := root.Children()
	if len(children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(children))
	}
	bar := children[3].Info()
	if bar.Class != "android.widget.ProgressBar" {
		t.Errorf("element-named node class = %q", bar.Class)
	}
	if bar.Range == nil || bar.DisplayText() != "40" {
		t.Errorf("expected range value 40, got %+v", bar.Range)
	}
	if children[1].Parent().Key() != root.Key() {
		t.Error("child parent mismatch")
	}
	if w, h := tree.DisplaySize(); w != 1080 || h != 1920 {
		t.Errorf("DisplaySize() = %d,%d", w, h)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"",
		"<hierarchy><node bounds=\"[0,0]\"/></hierarchy>",
		"<hierarchy><node range-current=\"x\"/></hierarchy>",
	}
	for _, s := range tests {
		if _, err := Parse([]byte(s)); err == nil {
			t.Errorf("Parse(%q) should fail", s)
		}
	}
}

func TestRemove_MarksSubtreeStale(t *testing.T) {
	tree := loadFixture(t)
	list := tree.FindByResourceID("com.example:id/list")
	item := list.Children()[0]
	tree.Remove(list)
	if list.Refresh() || item.Refresh() {
		t.Error("removed subtree should be stale")
	}
	root, _ := tree.RootNode()
	kids := root.Children()
	if len(kids) != 3 || kids[2].Info().Index != 2 {
		t.Errorf("siblings not reindexed: %d children", len(kids))
	}
}

func TestPerformAction_SetText(t *testing.T) {
	tree := loadFixture(t)
	n := tree.FindByResourceID("com.example:id/username")
	if !n.PerformAction(platform.ActionSetText, map[string]string{"text": "alice"}) {
		t.Fatal("set_text rejected")
	}
	if got := n.Info().Text; got != "alice" {
		t.Errorf("text = %q", got)
	}
	tree.Remove(n)
	if n.PerformAction(platform.ActionSetText, map[string]string{"text": "bob"}) {
		t.Error("detached node should reject actions")
	}
}

func tap(tree *Tree, x, y int) {
	down := platform.InputEvent{Action: platform.ActionDown, Pointers: []platform.Pointer{{X: x, Y: y}}}
	up := platform.InputEvent{Action: platform.ActionUp, Pointers: []platform.Pointer{{X: x, Y: y}}}
	tree.InjectEventSync(down)
	tree.InjectEventSync(up)
}

func TestInjectEventSync_TapTogglesCheckbox(t *testing.T) {
	tree := loadFixture(t)
	box := tree.FindByResourceID("com.example:id/remember")
	c := box.Info().Bounds.Center()

	ev, err := tree.ExecuteAndWait(context.Background(), func() error {
		tap(tree, c.X, c.Y)
		return nil
	}, func(e platform.AccessibilityEvent) bool { return e.Type == platform.EventViewClicked }, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Class != "android.widget.CheckBox" {
		t.Errorf("click event class = %q", ev.Class)
	}
	if !box.Info().Checked {
		t.Error("tap should toggle the checkbox")
	}
	if taps := tree.Taps(); len(taps) != 1 || taps[0] != c {
		t.Errorf("Taps() = %v", taps)
	}
}

func TestInjectEventSync_OutsideDisplay(t *testing.T) {
	tree := loadFixture(t)
	ok := tree.InjectEventSync(platform.InputEvent{Action: platform.ActionDown, Pointers: []platform.Pointer{{X: 5000, Y: 10}}})
	if ok {
		t.Error("event outside the display should be rejected")
	}
}

func TestSwipe_RevealsQueuedPage(t *testing.T) {
	tree := loadFixture(t)
	list := tree.FindByResourceID("com.example:id/list")
	tree.QueueScrollPage(list, model.NodeInfo{Class: "android.widget.TextView", Text: "Item 2", Displayed: true, Enabled: true})

	swipe := func() error {
		tree.InjectEventSync(platform.InputEvent{Action: platform.ActionDown, Pointers: []platform.Pointer{{X: 540, Y: 1400}}})
		tree.InjectEventSync(platform.InputEvent{Action: platform.ActionMove, Pointers: []platform.Pointer{{X: 540, Y: 1000}}})
		tree.InjectEventSync(platform.InputEvent{Action: platform.ActionUp, Pointers: []platform.Pointer{{X: 540, Y: 600}}})
		return nil
	}
	isScroll := func(e platform.AccessibilityEvent) bool { return e.Type == platform.EventViewScrolled }

	first, err := tree.ExecuteAndWait(context.Background(), swipe, isScroll, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Children()) != 2 {
		t.Fatalf("expected revealed item, got %d children", len(list.Children()))
	}
	second, err := tree.ExecuteAndWait(context.Background(), swipe, isScroll, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if first.ScrollY == 0 || second.ScrollY != first.ScrollY {
		t.Errorf("scroll positions = %d then %d; want a move then no change", first.ScrollY, second.ScrollY)
	}
}

func TestExecuteAndWait_Timeout(t *testing.T) {
	tree := loadFixture(t)
	_, err := tree.ExecuteAndWait(context.Background(), func() error { return nil },
		func(platform.AccessibilityEvent) bool { return true }, 10*time.Millisecond)
	if !errors.Is(err, platform.ErrEventTimeout) {
		t.Errorf("expected ErrEventTimeout, got %v", err)
	}
}

func TestSetRotation_SwapsAxes(t *testing.T) {
	tree := loadFixture(t)
	if err := tree.SetRotation(platform.Rotation90); err != nil {
		t.Fatal(err)
	}
	if w, h := tree.DisplaySize(); w != 1920 || h != 1080 {
		t.Errorf("DisplaySize() after rotation = %d,%d", w, h)
	}
	if tree.Rotation() != platform.Rotation90 {
		t.Errorf("Rotation() = %v", tree.Rotation())
	}
}

func TestScreenshot_Size(t *testing.T) {
	tree := loadFixture(t)
	img, err := tree.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1080 || b.Dy() != 1920 {
		t.Errorf("screenshot bounds = %v", b)
	}
}

func TestToasts(t *testing.T) {
	tree := loadFixture(t)
	tree.PostToast("Saved", "com.example")
	if toasts := tree.PendingToasts(); len(toasts) != 1 || toasts[0].Text != "Saved" {
		t.Errorf("PendingToasts() = %v", toasts)
	}
	tree.ClearToasts()
	if len(tree.PendingToasts()) != 0 {
		t.Error("toasts not cleared")
	}
}
