package nn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

func sqrt(x float64) float64 { return math.Sqrt(x) }

// XavierInit applies the standard fresh-start initialization: bias-like
// one-dimensional parameters are zeroed, everything else is drawn from a
// zero-mean normal whose variance is scaled by the fan-in and fan-out of the
// tensor (Glorot/Xavier normal).
func XavierInit(s *ParamSet, seed uint64) {
	src := rand.NewSource(seed)
	for _, p := range s.Params() {
		if p.Dim() == 1 {
			for i := range p.Data {
				p.Data[i] = 0
			}
			continue
		}
		fanOut := p.Shape[0]
		fanIn := 1
		for _, d := range p.Shape[1:] {
			fanIn *= d
		}
		dist := distuv.Normal{
			Mu:    0,
			Sigma: math.Sqrt(2.0 / float64(fanIn+fanOut)),
			Src:   src,
		}
		for i := range p.Data {
			p.Data[i] = dist.Rand()
		}
	}
}
