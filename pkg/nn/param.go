// Package nn provides the small parameter-store machinery the training
// orchestrator needs: named parameter tensors with gradients, variance-scaled
// initialization, Adam optimization, an exponentially decaying learning-rate
// schedule and global gradient-norm clipping.
//
// It is not an autograd engine. Models compute their own gradients during
// Forward and accumulate them into the parameter store; the optimizer only
// consumes them.
package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Param is one named parameter tensor, stored flat with its gradient.
type Param struct {
	Name  string
	Shape []int
	Data  []float64
	Grad  []float64
}

// NewParam allocates a zeroed parameter with the given shape.
func NewParam(name string, shape ...int) *Param {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("nn: non-positive dimension %d in %q", d, name))
		}
		n *= d
	}
	return &Param{
		Name:  name,
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, n),
		Grad:  make([]float64, n),
	}
}

// Dim returns the number of tensor dimensions.
func (p *Param) Dim() int { return len(p.Shape) }

// Len returns the number of elements.
func (p *Param) Len() int { return len(p.Data) }

// Norm returns the L2 norm of the parameter values.
func (p *Param) Norm() float64 { return floats.Norm(p.Data, 2) }

// GradNorm returns the L2 norm of the gradient.
func (p *Param) GradNorm() float64 { return floats.Norm(p.Grad, 2) }

// ZeroGrad clears the gradient in place.
func (p *Param) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// ParamSet is the ordered collection of all parameters of a model. It is the
// single mutable resource of a training run: only the optimizer step writes
// to Data, and evaluation treats it as a read-only snapshot.
type ParamSet struct {
	params []*Param
}

// NewParamSet creates an empty set.
func NewParamSet() *ParamSet { return &ParamSet{} }

// Add registers parameters in order. Registration order determines the
// checkpoint layout, so models must register deterministically.
func (s *ParamSet) Add(ps ...*Param) {
	s.params = append(s.params, ps...)
}

// Params returns the registered parameters in registration order.
func (s *ParamSet) Params() []*Param { return s.params }

// NumElements returns the total element count across all parameters.
func (s *ParamSet) NumElements() int {
	n := 0
	for _, p := range s.params {
		n += p.Len()
	}
	return n
}

// ZeroGrad clears every gradient.
func (s *ParamSet) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// ParamNorm returns the global L2 norm over all parameter values.
func (s *ParamSet) ParamNorm() float64 {
	return globalNorm(s.params, func(p *Param) float64 { return p.Norm() })
}

// GradNorm returns the global L2 norm over all gradients.
func (s *ParamSet) GradNorm() float64 {
	return globalNorm(s.params, func(p *Param) float64 { return p.GradNorm() })
}

func globalNorm(params []*Param, norm func(*Param) float64) float64 {
	acc := 0.0
	for _, p := range params {
		n := norm(p)
		acc += n * n
	}
	return sqrt(acc)
}

// ClipGradNorm rescales all gradients so their global L2 norm does not exceed
// maxNorm. Returns the norm measured before clipping. Gradients below the
// ceiling are left untouched.
func (s *ParamSet) ClipGradNorm(maxNorm float64) float64 {
	total := s.GradNorm()
	if maxNorm <= 0 || total <= maxNorm || total == 0 {
		return total
	}
	scale := maxNorm / total
	for _, p := range s.params {
		floats.Scale(scale, p.Grad)
	}
	return total
}
