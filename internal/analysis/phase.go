package analysis

import (
	"fmt"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// Point is a single phase-space sample.
type Point struct {
	X, Y float64
}

// PhasePortrait2D projects a trajectory onto a pair of state variables.
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
}

// Bounds returns the extent of the portrait. Zero extents are widened
// so callers can always divide by the range.
func (p *PhasePortrait2D) Bounds() (minX, maxX, minY, maxY float64) {
	if len(p.Points) == 0 {
		return 0, 1, 0, 1
	}
	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX = min(minX, pt.X)
		maxX = max(maxX, pt.X)
		minY = min(minY, pt.Y)
		maxY = max(maxY, pt.Y)
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}
	return minX, maxX, minY, maxY
}

// PortraitFromStates builds a portrait from recorded states, e.g. a
// stored trajectory.
func PortraitFromStates(states []dynamics.State, xIdx, yIdx int) (*PhasePortrait2D, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: no states to project", dynamics.ErrDimensionMismatch)
	}
	if xIdx < 0 || yIdx < 0 || xIdx >= len(states[0]) || yIdx >= len(states[0]) {
		return nil, fmt.Errorf("%w: phase indices %d,%d for %d-dim state",
			dynamics.ErrDimensionMismatch, xIdx, yIdx, len(states[0]))
	}
	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, len(states)),
	}
	for i, x := range states {
		portrait.Points[i] = Point{X: x[xIdx], Y: x[yIdx]}
	}
	return portrait, nil
}

// PhasePortrait rolls the system out under the given control law and
// records the (xIdx, yIdx) projection, initial state included.
func PhasePortrait(
	sys dynamics.System,
	integ dynamics.Integrator,
	ctrl ControlFunc,
	x0 dynamics.State,
	xIdx, yIdx int,
	dt, duration float64,
) (*PhasePortrait2D, error) {
	if xIdx < 0 || yIdx < 0 || xIdx >= len(x0) || yIdx >= len(x0) {
		return nil, fmt.Errorf("%w: phase indices %d,%d for %d-dim state",
			dynamics.ErrDimensionMismatch, xIdx, yIdx, len(x0))
	}
	if dt <= 0 || duration <= 0 {
		return nil, fmt.Errorf("%w: dt and duration must be positive", dynamics.ErrInvalidConfig)
	}

	steps := int(duration / dt)
	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, steps+1),
	}

	x := x0.Clone()
	portrait.Points = append(portrait.Points, Point{X: x[xIdx], Y: x[yIdx]})
	for i := 0; i < steps; i++ {
		t := float64(i) * dt
		x = integ.Step(sys, x, controlAt(ctrl, sys, x, t), t, dt)
		if !x.IsValid() {
			break
		}
		portrait.Points = append(portrait.Points, Point{X: x[xIdx], Y: x[yIdx]})
	}
	return portrait, nil
}
