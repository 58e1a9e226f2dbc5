package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// Rect is a screen rectangle in pixels.
type Rect struct {
	X      int `yaml:"x"      json:"x"`
	Y      int `yaml:"y"      json:"y"`
	Width  int `yaml:"width"  json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String formats the rect the way hierarchy dumps do: "[x1,y1][x2,y2]".
func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Center returns the midpoint of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside the rect.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Intersects checks if two rectangles overlap.
func (r Rect) Intersects(o Rect) bool {
	ax1, ay1, ax2, ay2 := r.X, r.Y, r.X+r.Width, r.Y+r.Height
	bx1, by1, bx2, by2 := o.X, o.Y, o.X+o.Width, o.Y+o.Height
	return ax1 < bx2 && ax2 > bx1 && ay1 < by2 && ay2 > by1
}

var boundsRe = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// ParseBounds parses a "[x1,y1][x2,y2]" string into a Rect.
func ParseBounds(s string) (Rect, error) {
	m := boundsRe.FindStringSubmatch(s)
	if m == nil {
		return Rect{}, fmt.Errorf("invalid bounds %q: expected [x1,y1][x2,y2]", s)
	}
	vals := make([]int, 4)
	for i := range vals {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Rect{}, fmt.Errorf("invalid bounds %q: %w", s, err)
		}
		vals[i] = v
	}
	return Rect{X: vals[0], Y: vals[1], Width: vals[2] - vals[0], Height: vals[3] - vals[1]}, nil
}
