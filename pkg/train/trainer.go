// Package train drives the training of the semi-supervised junction-tree
// model: the epoch/step loop, the joint loss composition over labelled and
// unlabelled branches, the coupled annealing schedules (KL weight,
// supervised-loss weight, learning rate), gradient-clipped optimization and
// periodic checkpointing and evaluation.
package train

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/tsa87/anb-net/internal/config"
	"github.com/tsa87/anb-net/pkg/checkpoint"
	"github.com/tsa87/anb-net/pkg/loader"
	"github.com/tsa87/anb-net/pkg/metrics"
	"github.com/tsa87/anb-net/pkg/nn"
)

// Options configures a Trainer beyond the run configuration.
type Options struct {
	// Resume, when positive, loads the parameter snapshot written at that
	// global step and continues counting from it. Schedule state is
	// re-derived from the configuration, never read from the snapshot.
	Resume int

	// SupervisedOnly selects the labelled-only training mode: the joint loss
	// is the labelled loss alone, checkpoints use the "model0" prefix, and a
	// final test evaluation runs after the last epoch.
	SupervisedOnly bool

	// Out receives the progress lines. Nil means os.Stdout. The line format
	// is a contract consumed by downstream tooling; structured events go to
	// slog instead.
	Out io.Writer
}

// Trainer is the training orchestrator. It owns the schedule state and the
// metric accumulator, and is the only writer of model parameters (through
// the optimizer step). It is strictly single-threaded: one batch in flight,
// one indivisible forward/compose/clip/step unit at a time.
type Trainer struct {
	cfg   *config.Config
	model Model
	opt   *nn.Adam
	sched *nn.ExponentialLR
	opts  Options
	out   io.Writer
	runID string

	// Schedule state. alpha lags one step behind the loss that determines
	// it: nextAlpha is computed from the just-finished step's totals and
	// becomes alpha at the start of the following step.
	alpha     float64
	nextAlpha float64
	beta      float64
	step      int

	meters Meters
	prefix string
}

// New constructs a Trainer, initializes (or restores) the model parameters
// and applies the initial schedule tick.
func New(cfg *config.Config, model Model, opts Options) (*Trainer, error) {
	t := &Trainer{
		cfg:       cfg,
		model:     model,
		opts:      opts,
		out:       opts.Out,
		runID:     uuid.NewString(),
		alpha:     cfg.Alpha,
		nextAlpha: cfg.Alpha,
		beta:      cfg.Beta,
		prefix:    "model",
	}
	if t.out == nil {
		t.out = os.Stdout
	}
	if opts.SupervisedOnly {
		t.prefix = "model0"
	}

	params := model.Params()
	if opts.Resume > 0 {
		path := checkpoint.Path(cfg.SaveDir, t.prefix, opts.Resume)
		if err := checkpoint.Load(path, params); err != nil {
			return nil, err
		}
		t.step = opts.Resume
		slog.Info("resumed from checkpoint", "run", t.runID, "path", path, "step", opts.Resume)
	} else {
		nn.XavierInit(params, cfg.Seed)
	}

	if err := os.MkdirAll(cfg.SaveDir, 0755); err != nil {
		return nil, fmt.Errorf("train: create save dir: %w", err)
	}

	slog.Info("model constructed",
		"run", t.runID,
		"params_k", params.NumElements()/1000,
		"supervised_only", opts.SupervisedOnly)

	t.opt = nn.NewAdam(params, cfg.LR)
	t.sched = nn.NewExponentialLR(t.opt, cfg.AnnealRate)
	t.sched.Step() // initial schedule tick, before the first step
	metrics.LearningRate.Set(t.sched.LR())
	metrics.Alpha.Set(t.alpha)
	metrics.Beta.Set(t.beta)

	return t, nil
}

// Step returns the current global step counter.
func (t *Trainer) Step() int { return t.step }

// Beta returns the current KL weight.
func (t *Trainer) Beta() float64 { return t.beta }

// Alpha returns the supervised-loss weight that the next step will use.
func (t *Trainer) Alpha() float64 { return t.nextAlpha }

// LR returns the current learning rate.
func (t *Trainer) LR() float64 { return t.sched.LR() }

// Meters exposes the metric accumulator (primarily for tests).
func (t *Trainer) Meters() *Meters { return &t.meters }

// Train runs the full epoch loop: training batches with interval-triggered
// printing, checkpointing and annealing, plus a validation and a test
// evaluation at the end of every epoch. Any model, checkpoint or loader
// failure aborts the run immediately.
func (t *Trainer) Train(trainLoader, valLoader, testLoader loader.Loader) error {
	for epoch := 0; epoch < t.cfg.NumEpochs; epoch++ {
		t.model.SetTraining(true)

		for batch := range trainLoader.Batches() {
			if err := t.TrainStep(batch); err != nil {
				return fmt.Errorf("train: epoch %d step %d: %w", epoch, t.step, err)
			}
		}

		if _, err := t.Evaluate("Validation", valLoader); err != nil {
			return err
		}
		if _, err := t.Evaluate("Test", testLoader); err != nil {
			return err
		}
	}

	// The labelled-only mode reports once more after training completes.
	if t.opts.SupervisedOnly {
		if _, err := t.Evaluate("Test", testLoader); err != nil {
			return err
		}
	}
	return nil
}

// TrainStep performs one optimization step on one batch: forward on both
// branches, joint loss composition, the one-step-lagged alpha update,
// gradient clipping, the optimizer step, metric accumulation and the
// interval triggers.
func (t *Trainer) TrainStep(batch *loader.Batch) error {
	t.step++
	t.alpha = t.nextAlpha
	metrics.Alpha.Set(t.alpha)

	t.opt.ZeroGrad()

	labelled, err := t.model.Forward(batch.Labelled, batch.Labels, t.alpha, t.beta)
	if err != nil {
		return err
	}

	joint := labelled
	if !t.opts.SupervisedOnly && len(batch.Unlabelled) > 0 {
		unlabelled, err := t.model.Forward(batch.Unlabelled, nil, t.alpha, t.beta)
		if err != nil {
			return err
		}
		joint = composeJoint(labelled, unlabelled)
	}

	// Computed from this step's totals, used by the next step.
	t.nextAlpha = (joint.Loss / 4) / joint.PredLoss

	params := t.model.Params()
	params.ClipGradNorm(t.cfg.ClipNorm)
	t.opt.Step()

	t.meters.Add(joint)
	metrics.StepsTotal.Inc()

	if t.step%t.cfg.PrintIter == 0 {
		avg := t.meters.Averaged(t.cfg.PrintIter)
		fmt.Fprintf(t.out, "%s, PNorm: %.2f, GNorm: %.2f\n",
			avg.format("Train", t.step, t.alpha, t.beta),
			params.ParamNorm(), params.GradNorm())
		metrics.TrainLoss.Set(avg.Values()[0])
		metrics.TrainKL.Set(avg.Values()[1])
		t.meters.Reset()
	}

	if t.step%t.cfg.SaveIter == 0 {
		path := checkpoint.Path(t.cfg.SaveDir, t.prefix, t.step)
		if err := checkpoint.Save(path, params, checkpoint.Precision(t.cfg.CheckpointPrecision)); err != nil {
			return err
		}
		metrics.CheckpointsTotal.Inc()
		slog.Info("checkpoint written", "run", t.runID, "path", path, "step", t.step)
	}

	if t.step%t.cfg.AnnealIter == 0 {
		t.sched.Step()
		fmt.Fprintf(t.out, "learning rate: %.6f\n", t.sched.LR())
		metrics.LearningRate.Set(t.sched.LR())
	}

	if t.step%t.cfg.KLAnnealIter == 0 && t.step >= t.cfg.AnnealIter {
		t.beta = min(t.cfg.MaxBeta, t.beta+t.cfg.StepBeta)
		metrics.Beta.Set(t.beta)
	}

	return nil
}

// composeJoint merges the labelled and unlabelled branch metrics into the
// joint step metrics: losses sum, accuracies average, and MAE and prediction
// loss come from the labelled branch alone since unlabelled data carries no
// ground-truth label.
func composeJoint(labelled, unlabelled Metrics) Metrics {
	return Metrics{
		Loss:     labelled.Loss + unlabelled.Loss,
		KL:       labelled.KL + unlabelled.KL,
		MAE:      labelled.MAE,
		WordLoss: labelled.WordLoss + unlabelled.WordLoss,
		TopoLoss: labelled.TopoLoss + unlabelled.TopoLoss,
		AssmLoss: labelled.AssmLoss + unlabelled.AssmLoss,
		PredLoss: labelled.PredLoss,
		WordAcc:  (labelled.WordAcc + unlabelled.WordAcc) / 2,
		TopoAcc:  (labelled.TopoAcc + unlabelled.TopoAcc) / 2,
		AssmAcc:  (labelled.AssmAcc + unlabelled.AssmAcc) / 2,
	}
}
