package nn

import "math"

// Adam implements the Adam optimizer over a ParamSet with the usual defaults
// (beta1 0.9, beta2 0.999, eps 1e-8). Optimizer state lives only in memory;
// checkpoints never include it.
type Adam struct {
	set *ParamSet
	lr  float64

	beta1, beta2, eps float64

	t int
	m [][]float64
	v [][]float64
}

// NewAdam creates an optimizer over the given parameters with the given
// initial learning rate.
func NewAdam(set *ParamSet, lr float64) *Adam {
	a := &Adam{
		set:   set,
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
	}
	for _, p := range set.Params() {
		a.m = append(a.m, make([]float64, p.Len()))
		a.v = append(a.v, make([]float64, p.Len()))
	}
	return a
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 { return a.lr }

// SetLR replaces the learning rate; used by the schedule.
func (a *Adam) SetLR(lr float64) { a.lr = lr }

// ZeroGrad clears all gradients.
func (a *Adam) ZeroGrad() { a.set.ZeroGrad() }

// Step applies one Adam update to every parameter from its accumulated
// gradient.
func (a *Adam) Step() {
	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	for pi, p := range a.set.Params() {
		m, v := a.m[pi], a.v[pi]
		for i, g := range p.Grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
			mHat := m[i] / bc1
			vHat := v[i] / bc2
			p.Data[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// ExponentialLR decays the optimizer's learning rate geometrically: each
// Step multiplies the rate by gamma, so after k steps it equals lr0 * gamma^k.
type ExponentialLR struct {
	opt   *Adam
	gamma float64
	steps int
}

// NewExponentialLR wraps the optimizer with a decay factor.
func NewExponentialLR(opt *Adam, gamma float64) *ExponentialLR {
	return &ExponentialLR{opt: opt, gamma: gamma}
}

// Step applies one decay.
func (s *ExponentialLR) Step() {
	s.steps++
	s.opt.SetLR(s.opt.LR() * s.gamma)
}

// LR returns the current learning rate.
func (s *ExponentialLR) LR() float64 { return s.opt.LR() }

// Steps returns how many decays have been applied.
func (s *ExponentialLR) Steps() int { return s.steps }
