package train

import "fmt"

// Metrics is the ten-value vector a model forward pass returns: the joint
// loss, its decomposition, and the three reconstruction accuracies (in [0,1]).
type Metrics struct {
	Loss     float64
	KL       float64
	MAE      float64
	WordLoss float64
	TopoLoss float64
	AssmLoss float64
	PredLoss float64
	WordAcc  float64
	TopoAcc  float64
	AssmAcc  float64
}

// Meters accumulates running sums of the metric vector between reporting
// boundaries. Accuracies are stored as percentages. The orchestrator owns the
// accumulator and resets it after every print interval and every evaluation
// pass.
type Meters struct {
	vals [10]float64
}

// Add accumulates one step's metrics.
func (m *Meters) Add(x Metrics) {
	m.vals[0] += x.Loss
	m.vals[1] += x.KL
	m.vals[2] += x.MAE
	m.vals[3] += x.WordLoss
	m.vals[4] += x.TopoLoss
	m.vals[5] += x.AssmLoss
	m.vals[6] += x.PredLoss
	m.vals[7] += x.WordAcc * 100
	m.vals[8] += x.TopoAcc * 100
	m.vals[9] += x.AssmAcc * 100
}

// Averaged returns a copy divided by n.
func (m *Meters) Averaged(n int) Meters {
	out := *m
	if n == 0 {
		return out
	}
	for i := range out.vals {
		out.vals[i] /= float64(n)
	}
	return out
}

// Reset zeroes the accumulator.
func (m *Meters) Reset() { m.vals = [10]float64{} }

// Values exposes the raw vector in its fixed order: loss, kl, mae, word loss,
// topo loss, assm loss, pred loss, word%, topo%, assm%.
func (m *Meters) Values() [10]float64 { return m.vals }

// WordLoss returns the accumulated word reconstruction loss, the value
// evaluation passes report for model selection.
func (m *Meters) WordLoss() float64 { return m.vals[3] }

// format renders the fixed-order progress fields shared by training and
// evaluation lines.
func (m *Meters) format(phase string, step int, alpha, beta float64) string {
	return fmt.Sprintf(
		"[%s][%d] Alpha: %.3f, Beta: %.3f, Loss: %.2f, KL: %.2f, MAE: %.5f, Word Loss: %.2f, Topo Loss: %.2f, Assm Loss: %.2f, Pred Loss: %.2f, Word: %.2f, Topo: %.2f, Assm: %.2f",
		phase, step, alpha, beta,
		m.vals[0], m.vals[1], m.vals[2], m.vals[3], m.vals[4],
		m.vals[5], m.vals[6], m.vals[7], m.vals[8], m.vals[9],
	)
}
