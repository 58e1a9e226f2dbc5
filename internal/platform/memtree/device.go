package memtree

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/mj1618/uiautomator-server/internal/platform"
)

func (t *Tree) Rotation() platform.Rotation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rotation
}

// SetRotation changes the orientation, swapping the display axes when the
// new rotation switches between portrait and landscape.
func (t *Tree) SetRotation(r platform.Rotation) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.IsLandscape() != t.rotation.IsLandscape() {
		t.width, t.height = t.height, t.width
	}
	t.rotation = r
	return nil
}

func (t *Tree) DisplaySize() (int, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.width, t.height
}

// Screenshot renders a wireframe of the displayed nodes, deeper nodes darker.
func (t *Tree) Screenshot() (image.Image, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	var paint func(nodes []*Node, depth int)
	paint = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if !n.info.Displayed {
				continue
			}
			b := n.info.Bounds
			shade := 255 - uint8(min(depth*16, 192))
			r := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Intersect(img.Bounds())
			draw.Draw(img, r, image.NewUniform(color.Gray{Y: shade}), image.Point{}, draw.Src)
			paint(n.children, depth+1)
		}
	}
	paint(t.roots, 0)
	return img, nil
}
