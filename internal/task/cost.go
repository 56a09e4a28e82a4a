package task

import (
	"math"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/physics"
)

// Cost is a differentiable scalar cost over a vector (state or control).
// Grad returns the exact analytic gradient; the optimization passes
// consume it directly.
type Cost interface {
	Eval(v []float64) float64
	Grad(v []float64) []float64
}

// Quadratic is v' diag(w) v.
type Quadratic struct {
	weights []float64
}

func NewDiagonal(weights ...float64) *Quadratic {
	return &Quadratic{weights: weights}
}

// Diagonal returns a copy of the weight vector, for controller
// synthesis that needs the matching quadratic matrices.
func (q *Quadratic) Diagonal() []float64 {
	return append([]float64(nil), q.weights...)
}

func (q *Quadratic) Eval(v []float64) float64 {
	sum := 0.0
	for i, w := range q.weights {
		if i < len(v) {
			sum += w * v[i] * v[i]
		}
	}
	return sum
}

func (q *Quadratic) Grad(v []float64) []float64 {
	g := make([]float64, len(v))
	for i, w := range q.weights {
		if i < len(v) {
			g[i] = 2 * w * v[i]
		}
	}
	return g
}

// Scaled multiplies an inner cost by a constant factor.
type Scaled struct {
	Inner Cost
	K     float64
}

func (s *Scaled) Eval(v []float64) float64 {
	return s.K * s.Inner.Eval(v)
}

func (s *Scaled) Grad(v []float64) []float64 {
	g := s.Inner.Grad(v)
	for i := range g {
		g[i] *= s.K
	}
	return g
}

// Swingup penalizes distance from the upright pendulum configuration:
// kPos*(1 - cos theta) + kVel*omega^2 over state [theta, omega].
type Swingup struct {
	KPos float64
	KVel float64
}

func (s *Swingup) Eval(v []float64) float64 {
	return s.KPos*(1-math.Cos(v[0])) + s.KVel*v[1]*v[1]
}

func (s *Swingup) Grad(v []float64) []float64 {
	g := make([]float64, len(v))
	g[0] = s.KPos * math.Sin(v[0])
	g[1] = 2 * s.KVel * v[1]
	return g
}

// Reach penalizes end-effector distance from a planar target plus joint
// velocity, over arm state [theta1, theta2, omega1, omega2].
type Reach struct {
	Arm     *physics.TwoLinkArm
	TargetX float64
	TargetY float64
	WPos    float64
	WVel    float64
}

func (r *Reach) Eval(v []float64) float64 {
	px, py := r.Arm.Tip(dynamics.State(v))
	dx := px - r.TargetX
	dy := py - r.TargetY
	return r.WPos*(dx*dx+dy*dy) + r.WVel*(v[2]*v[2]+v[3]*v[3])
}

func (r *Reach) Grad(v []float64) []float64 {
	px, py := r.Arm.Tip(dynamics.State(v))
	dx := px - r.TargetX
	dy := py - r.TargetY
	jac := r.Arm.TipJacobian(dynamics.State(v))

	g := make([]float64, len(v))
	for j := 0; j < 2; j++ {
		g[j] = 2 * r.WPos * (dx*jac.At(0, j) + dy*jac.At(1, j))
	}
	g[2] = 2 * r.WVel * v[2]
	g[3] = 2 * r.WVel * v[3]
	return g
}

// Zero is a no-op cost (the cartpole task has no running state cost).
type Zero struct{}

func (Zero) Eval(v []float64) float64 {
	return 0
}

func (Zero) Grad(v []float64) []float64 {
	return make([]float64, len(v))
}
