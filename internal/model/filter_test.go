package model

import "testing"

func TestFilterByText(t *testing.T) {
	elements := []Element{
		{
			NodeInfo: NodeInfo{Class: "android.widget.LinearLayout"},
			Children: []Element{
				{NodeInfo: NodeInfo{Class: "android.widget.Button", Text: "Submit"}},
				{NodeInfo: NodeInfo{Class: "android.widget.Button", Text: "Cancel"}},
			},
		},
		{NodeInfo: NodeInfo{Class: "android.widget.ImageView", ContentDesc: "Submit icon"}},
		{NodeInfo: NodeInfo{Class: "android.widget.EditText", ResourceID: "com.app:id/submit_note"}},
	}
	result := FilterByText(elements, "SUBMIT")
	if len(result) != 3 {
		t.Fatalf("expected 3 top-level matches, got %d", len(result))
	}
	if len(result[0].Children) != 1 || result[0].Children[0].Text != "Submit" {
		t.Errorf("expected container to keep only the matching child, got %+v", result[0].Children)
	}
}

func TestFilterByText_RangeValue(t *testing.T) {
	elements := []Element{
		{NodeInfo: NodeInfo{Class: "android.widget.SeekBar", Range: &RangeInfo{Max: 100, Current: 42}}},
	}
	if result := FilterByText(elements, "42"); len(result) != 1 {
		t.Errorf("expected range value to be searchable, got %d matches", len(result))
	}
}

func TestFilterByText_Empty(t *testing.T) {
	elements := []Element{{NodeInfo: NodeInfo{Text: "a"}}}
	if result := FilterByText(elements, ""); len(result) != 1 {
		t.Errorf("empty filter should return input unchanged")
	}
}

func TestPruneHidden(t *testing.T) {
	elements := []Element{
		{
			NodeInfo: NodeInfo{Class: "hidden", Displayed: false},
			Children: []Element{
				{NodeInfo: NodeInfo{Class: "visible", Displayed: true}},
			},
		},
	}
	result := PruneHidden(elements)
	if len(result) != 1 || result[0].Class != "visible" {
		t.Errorf("expected visible child promoted, got %+v", result)
	}
}
