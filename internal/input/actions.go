package input

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	json "github.com/json-iterator/go"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

// ErrInvalidActions is returned for action chains that cannot be executed
// as written.
var ErrInvalidActions = errors.New("invalid action sequence")

// w3cElementKey is the W3C element reference key; ELEMENT is the JSON wire form.
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// moveInterval is the spacing of interpolated moves inside a timed pointerMove.
const moveInterval = 20 * time.Millisecond

// ActionSequence is one input source of a W3C actions request.
type ActionSequence struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Parameters struct {
		PointerType string `json:"pointerType"`
	} `json:"parameters"`
	Actions []Action `json:"actions"`
}

// Action is one item of an input source.
type Action struct {
	Type     string          `json:"type"`
	Duration int64           `json:"duration"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Origin   json.RawMessage `json:"origin,omitempty"`
	Button   int             `json:"button"`
}

// ElementLocator resolves element origins of pointerMove actions.
type ElementLocator interface {
	ElementCenter(id string) (model.Point, error)
}

type pointerState struct {
	id   int
	at   model.Point
	down bool
}

// PerformActions executes W3C action sequences. Sources are merged by tick:
// tick i applies the i-th action of every source, then waits for the
// longest duration among them.
func (d *Dispatcher) PerformActions(ctx context.Context, seqs []ActionSequence, elements ElementLocator) error {
	var pointers []*pointerState
	var sources []ActionSequence
	ticks := 0
	for i, seq := range seqs {
		switch seq.Type {
		case "pointer":
			pointers = append(pointers, &pointerState{id: i})
			sources = append(sources, seq)
			if len(seq.Actions) > ticks {
				ticks = len(seq.Actions)
			}
		case "none", "key":
			// Pauses only; keys have no touch representation.
			if len(seq.Actions) > ticks {
				ticks = len(seq.Actions)
			}
		default:
			return fmt.Errorf("%w: unknown source type %q", ErrInvalidActions, seq.Type)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	down := d.now()
	for tick := 0; tick < ticks; tick++ {
		var pause time.Duration
		for _, seq := range seqs {
			if tick < len(seq.Actions) && seq.Actions[tick].Type == "pause" {
				pause = max(pause, time.Duration(seq.Actions[tick].Duration)*time.Millisecond)
			}
		}
		var moves []move
		for si, seq := range sources {
			if tick >= len(seq.Actions) {
				continue
			}
			a := seq.Actions[tick]
			ps := pointers[si]
			switch a.Type {
			case "pause":
			case "pointerMove":
				target, err := d.resolveOrigin(a, ps.at, elements)
				if err != nil {
					return err
				}
				if err := d.checkPoint(target); err != nil {
					return err
				}
				moves = append(moves, move{ps: ps, from: ps.at, to: target, dur: time.Duration(a.Duration) * time.Millisecond})
			case "pointerDown":
				if ps.down {
					continue
				}
				ps.down = true
				if err := d.inject(platform.ActionDown, indexOf(pointers, ps), downPointers(pointers), down); err != nil {
					return err
				}
			case "pointerUp":
				if !ps.down {
					continue
				}
				all := downPointers(pointers)
				idx := indexOf(pointers, ps)
				ps.down = false
				if err := d.inject(platform.ActionUp, idx, all, down); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: unknown pointer action %q", ErrInvalidActions, a.Type)
			}
		}
		moved, err := d.moveLocked(ctx, pointers, moves, down)
		if err != nil {
			return err
		}
		if err := sleep(ctx, pause-moved); err != nil {
			return err
		}
	}
	return nil
}

type move struct {
	ps       *pointerState
	from, to model.Point
	dur      time.Duration
}

// moveLocked runs the moves of one tick together, interpolating pressed
// pointers over the longest move duration so the platform sees a
// continuous drag. It returns the time spent.
func (d *Dispatcher) moveLocked(ctx context.Context, all []*pointerState, moves []move, down time.Time) (time.Duration, error) {
	if len(moves) == 0 {
		return 0, nil
	}
	var longest time.Duration
	pressed := false
	for _, m := range moves {
		longest = max(longest, m.dur)
		pressed = pressed || m.ps.down
	}
	steps := int(longest / moveInterval)
	if steps < 1 || !pressed {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		for _, m := range moves {
			m.ps.at = lerp(m.from, m.to, float64(i)/float64(steps))
		}
		if pressed {
			if err := d.inject(platform.ActionMove, 0, downPointers(all), down); err != nil {
				return 0, err
			}
		}
		if err := sleep(ctx, longest/time.Duration(steps)); err != nil {
			return 0, err
		}
	}
	for _, m := range moves {
		m.ps.at = m.to
	}
	return longest, nil
}

func (d *Dispatcher) resolveOrigin(a Action, current model.Point, elements ElementLocator) (model.Point, error) {
	offset := model.Point{X: int(math.Round(a.X)), Y: int(math.Round(a.Y))}
	if len(a.Origin) == 0 {
		return offset, nil
	}
	var name string
	if err := json.Unmarshal(a.Origin, &name); err == nil {
		switch name {
		case "", "viewport":
			return offset, nil
		case "pointer":
			return model.Point{X: current.X + offset.X, Y: current.Y + offset.Y}, nil
		default:
			return model.Point{}, fmt.Errorf("%w: unknown origin %q", ErrInvalidActions, name)
		}
	}
	var ref map[string]string
	if err := json.Unmarshal(a.Origin, &ref); err != nil {
		return model.Point{}, fmt.Errorf("%w: origin must be a string or element reference", ErrInvalidActions)
	}
	id := ref[w3cElementKey]
	if id == "" {
		id = ref["ELEMENT"]
	}
	if id == "" || elements == nil {
		return model.Point{}, fmt.Errorf("%w: origin element reference has no id", ErrInvalidActions)
	}
	c, err := elements.ElementCenter(id)
	if err != nil {
		return model.Point{}, err
	}
	return model.Point{X: c.X + offset.X, Y: c.Y + offset.Y}, nil
}

func downPointers(all []*pointerState) []platform.Pointer {
	var out []platform.Pointer
	for _, p := range all {
		if p.down {
			out = append(out, platform.Pointer{ID: p.id, X: p.at.X, Y: p.at.Y})
		}
	}
	return out
}

// indexOf returns ps's position among the pressed pointers, which is the
// action index of the event it produces.
func indexOf(all []*pointerState, ps *pointerState) int {
	i := 0
	for _, p := range all {
		if p == ps {
			return i
		}
		if p.down {
			i++
		}
	}
	return i
}
