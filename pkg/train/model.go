package train

import (
	"math/rand"

	"github.com/tsa87/anb-net/pkg/moltree"
	"github.com/tsa87/anb-net/pkg/nn"
)

// Model is the differentiable collaborator the orchestrator drives. Its
// internals (encoder/decoder architecture) are outside this module; the
// orchestrator only needs the contract below.
type Model interface {
	// Forward runs the model on a slice of trees. A nil labels slice selects
	// the unsupervised branch of the objective. In training mode, Forward
	// accumulates gradients into Params; in inference mode it must not touch
	// them. Any error is fatal to the run.
	Forward(trees []*moltree.MolTree, labels []float64, alpha, beta float64) (Metrics, error)

	// Params exposes the model's parameters for initialization, clipping,
	// optimization and checkpointing.
	Params() *nn.ParamSet

	// SetTraining switches between training and inference mode.
	SetTraining(training bool)

	// SamplePrior decodes one structure from a draw on the latent prior.
	SamplePrior(rng *rand.Rand) (string, error)
}
