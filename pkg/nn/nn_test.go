package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewParamShapeAndZeroing(t *testing.T) {
	p := NewParam("w", 3, 4)
	require.Equal(t, []int{3, 4}, p.Shape)
	require.Len(t, p.Data, 12)
	require.Len(t, p.Grad, 12)
	require.Equal(t, 2, p.Dim())

	p.Grad[5] = 1.5
	p.ZeroGrad()
	require.Zero(t, p.Grad[5])
}

func TestNewParamRejectsBadShape(t *testing.T) {
	require.Panics(t, func() { NewParam("w", 3, 0) })
	require.Panics(t, func() { NewParam("w", -1) })
}

func TestParamSetRegistrationOrder(t *testing.T) {
	s := NewParamSet()
	a := NewParam("a", 2)
	b := NewParam("b", 2, 2)
	s.Add(a, b)

	require.Equal(t, []*Param{a, b}, s.Params())
	require.Equal(t, 6, s.NumElements())
}

func TestGlobalGradNorm(t *testing.T) {
	s := NewParamSet()
	a := NewParam("a", 2)
	b := NewParam("b", 1)
	s.Add(a, b)

	// Component norms 2 and sqrt(5): global norm sqrt(4+5) = 3.
	a.Grad[0], a.Grad[1] = 2, 0
	b.Grad[0] = math.Sqrt(5)
	require.InDelta(t, 3.0, s.GradNorm(), 1e-12)
}

func TestClipGradNormScalesAboveCeiling(t *testing.T) {
	s := NewParamSet()
	p := NewParam("p", 2)
	s.Add(p)

	p.Grad[0], p.Grad[1] = 6, 8 // norm 10
	pre := s.ClipGradNorm(1.0)
	require.InDelta(t, 10.0, pre, 1e-12)
	require.InDelta(t, 0.6, p.Grad[0], 1e-12)
	require.InDelta(t, 0.8, p.Grad[1], 1e-12)
	require.InDelta(t, 1.0, s.GradNorm(), 1e-12)
}

func TestClipGradNormLeavesSmallGradientsAlone(t *testing.T) {
	s := NewParamSet()
	p := NewParam("p", 2)
	s.Add(p)

	p.Grad[0], p.Grad[1] = 0.3, 0.4
	pre := s.ClipGradNorm(1.0)
	require.InDelta(t, 0.5, pre, 1e-12)
	require.InDelta(t, 0.3, p.Grad[0], 1e-12)
	require.InDelta(t, 0.4, p.Grad[1], 1e-12)
}

func TestXavierInitZeroesBiases(t *testing.T) {
	s := NewParamSet()
	w := NewParam("w", 16, 16)
	b := NewParam("b", 16)
	b.Data[3] = 7 // stale value must be overwritten
	s.Add(w, b)

	XavierInit(s, 1)

	for _, v := range b.Data {
		require.Zero(t, v)
	}
	nonzero := 0
	for _, v := range w.Data {
		if v != 0 {
			nonzero++
		}
	}
	require.Greater(t, nonzero, len(w.Data)/2)
}

func TestXavierInitDeterministicPerSeed(t *testing.T) {
	build := func(seed uint64) []float64 {
		s := NewParamSet()
		w := NewParam("w", 4, 4)
		s.Add(w)
		XavierInit(s, seed)
		return w.Data
	}

	require.Equal(t, build(42), build(42))
	require.NotEqual(t, build(42), build(43))
}

func TestExponentialLRDecay(t *testing.T) {
	s := NewParamSet()
	s.Add(NewParam("p", 1))
	opt := NewAdam(s, 0.1)
	sched := NewExponentialLR(opt, 0.9)

	for k := 1; k <= 3; k++ {
		sched.Step()
		require.InDelta(t, 0.1*math.Pow(0.9, float64(k)), sched.LR(), 1e-12)
		require.Equal(t, k, sched.Steps())
	}
}

func TestAdamStepsAgainstGradient(t *testing.T) {
	s := NewParamSet()
	p := NewParam("p", 2)
	s.Add(p)
	p.Data[0], p.Data[1] = 1, -1

	opt := NewAdam(s, 0.01)
	p.Grad[0], p.Grad[1] = 1, -1
	opt.Step()

	require.Less(t, p.Data[0], 1.0)
	require.Greater(t, p.Data[1], -1.0)
}

func TestAdamZeroGradClearsSet(t *testing.T) {
	s := NewParamSet()
	p := NewParam("p", 2)
	s.Add(p)
	p.Grad[0] = 3

	opt := NewAdam(s, 0.01)
	opt.ZeroGrad()
	require.Zero(t, p.Grad[0])
}
