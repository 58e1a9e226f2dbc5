package input

import (
	"errors"
	"fmt"

	"github.com/mj1618/uiautomator-server/internal/platform"
)

var (
	// ErrUnsupportedAxis is returned for rotations around the x or y axis.
	ErrUnsupportedAxis = errors.New("only rotation around the z axis is supported")

	// ErrInvalidRotation is returned for z angles other than 0, 90, 180 and 270.
	ErrInvalidRotation = errors.New("invalid rotation angle")
)

// Rotation is the wire form of a device rotation in degrees.
type Rotation struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Validate converts r into a platform rotation.
func (r Rotation) Validate() (platform.Rotation, error) {
	if r.X != 0 || r.Y != 0 {
		return 0, fmt.Errorf("%w: got x=%d y=%d", ErrUnsupportedAxis, r.X, r.Y)
	}
	rot, err := platform.RotationFromDegrees(r.Z)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRotation, err)
	}
	return rot, nil
}

// RotationOf returns the wire form of a platform rotation.
func RotationOf(r platform.Rotation) Rotation {
	return Rotation{Z: r.Degrees()}
}

// Orientation names the two screen orientations.
type Orientation string

const (
	Portrait  Orientation = "PORTRAIT"
	Landscape Orientation = "LANDSCAPE"
)

// OrientationOf reports the orientation for a rotation.
func OrientationOf(r platform.Rotation) Orientation {
	if r.IsLandscape() {
		return Landscape
	}
	return Portrait
}

// ParseOrientation maps an orientation name to its natural rotation.
func ParseOrientation(s string) (platform.Rotation, error) {
	switch Orientation(s) {
	case Portrait:
		return platform.Rotation0, nil
	case Landscape:
		return platform.Rotation90, nil
	default:
		return 0, fmt.Errorf("%w: orientation %q", ErrInvalidRotation, s)
	}
}

// Rotate changes the device rotation. It takes the gesture lock so a
// rotation never lands in the middle of a gesture.
func (d *Dispatcher) Rotate(r platform.Rotation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev.SetRotation(r)
}
