package model

import "testing"

func TestParseBounds_Valid(t *testing.T) {
	r, err := ParseBounds("[10,20][310,420]")
	if err != nil {
		t.Fatal(err)
	}
	if r.X != 10 || r.Y != 20 || r.Width != 300 || r.Height != 400 {
		t.Errorf("got %+v, want {10 20 300 400}", r)
	}
	if r.String() != "[10,20][310,420]" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestParseBounds_Invalid(t *testing.T) {
	tests := []string{
		"",
		"[10,20]",
		"10,20,300,400",
		"[a,b][c,d]",
		"[10,20][30,40]x",
	}
	for _, s := range tests {
		if _, err := ParseBounds(s); err == nil {
			t.Errorf("ParseBounds(%q) should fail", s)
		}
	}
}

func TestRect_CenterContains(t *testing.T) {
	r := Rect{X: 0, Y: 100, Width: 200, Height: 50}
	c := r.Center()
	if c.X != 100 || c.Y != 125 {
		t.Errorf("Center() = %+v", c)
	}
	if !r.Contains(c) {
		t.Error("rect should contain its center")
	}
	if r.Contains(Point{X: 200, Y: 125}) {
		t.Error("right edge is exclusive")
	}
}

func TestRect_Intersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	tests := []struct {
		b    Rect
		want bool
	}{
		{Rect{X: 10, Y: 10, Width: 50, Height: 30}, true},
		{Rect{X: 200, Y: 200, Width: 50, Height: 30}, false},
		{Rect{X: 90, Y: 90, Width: 50, Height: 30}, true},
		{Rect{X: 100, Y: 0, Width: 10, Height: 10}, false},
	}
	for _, tt := range tests {
		if got := a.Intersects(tt.b); got != tt.want {
			t.Errorf("Intersects(%+v) = %v, want %v", tt.b, got, tt.want)
		}
	}
}
