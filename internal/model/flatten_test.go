package model

import "testing"

func TestFlattenElements_Basic(t *testing.T) {
	elements := []Element{
		{NodeInfo: NodeInfo{Class: "android.widget.Button", Text: "OK"}},
		{NodeInfo: NodeInfo{Class: "android.widget.TextView", Text: "Hello"}},
	}
	result := FlattenElements(elements)
	if len(result) != 2 {
		t.Fatalf("expected 2 flat elements, got %d", len(result))
	}
	if result[0].Path != "Button" {
		t.Errorf("expected path 'Button', got %q", result[0].Path)
	}
	if result[1].Path != "TextView" {
		t.Errorf("expected path 'TextView', got %q", result[1].Path)
	}
}

func TestFlattenElements_NestedPath(t *testing.T) {
	elements := []Element{
		{
			NodeInfo: NodeInfo{Class: "android.widget.FrameLayout"},
			Children: []Element{
				{
					NodeInfo: NodeInfo{Class: "android.widget.LinearLayout"},
					Children: []Element{
						{NodeInfo: NodeInfo{Class: "android.widget.Button", Text: "Back"}},
					},
				},
			},
		},
	}
	result := FlattenElements(elements)
	if len(result) != 3 {
		t.Fatalf("expected 3 flat elements, got %d", len(result))
	}
	want := []string{
		"FrameLayout",
		"FrameLayout > LinearLayout",
		"FrameLayout > LinearLayout > Button",
	}
	for i, w := range want {
		if result[i].Path != w {
			t.Errorf("result[%d].Path = %q, want %q", i, result[i].Path, w)
		}
	}
	if result[2].Text != "Back" {
		t.Errorf("expected leaf text 'Back', got %q", result[2].Text)
	}
}

func TestFlattenElements_Empty(t *testing.T) {
	if result := FlattenElements(nil); len(result) != 0 {
		t.Errorf("expected empty result, got %d", len(result))
	}
}

func TestShortClass(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"android.widget.Button", "Button"},
		{"Button", "Button"},
		{"", ""},
		{"hierarchy", "hierarchy"},
	}
	for _, tt := range tests {
		if got := ShortClass(tt.input); got != tt.want {
			t.Errorf("ShortClass(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
