package train

import (
	"fmt"

	"github.com/tsa87/anb-net/pkg/loader"
	"github.com/tsa87/anb-net/pkg/metrics"
)

// Evaluate runs one full read-only pass over a validation or test loader and
// returns the mean word reconstruction loss, the value used for model
// selection. The evaluation protocol assumes a fully labelled set, so only
// the labelled branch runs. A summary line is emitted in the training format,
// without the parameter/gradient norm suffix and with the number of batches
// in the step field. Model parameters are never mutated here.
func (t *Trainer) Evaluate(phase string, l loader.Loader) (float64, error) {
	t.model.SetTraining(false)
	defer t.model.SetTraining(true)

	var meters Meters
	numIters := 0

	for batch := range l.Batches() {
		m, err := t.model.Forward(batch.Labelled, batch.Labels, t.alpha, t.beta)
		if err != nil {
			return 0, fmt.Errorf("train: %s pass: %w", phase, err)
		}
		meters.Add(m)
		numIters++
	}

	avg := meters.Averaged(numIters)
	fmt.Fprintln(t.out, avg.format(phase, numIters, t.alpha, t.beta))
	metrics.EvalWordLoss.WithLabelValues(phase).Set(avg.WordLoss())

	return avg.WordLoss(), nil
}
