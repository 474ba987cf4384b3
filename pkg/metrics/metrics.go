// Package metrics exposes the training run to Prometheus.
//
// Metrics are package globals registered through promauto, so no explicit
// initialization is needed; the trainer updates them at every print boundary
// and the CLI optionally serves them over /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrainLoss is the joint loss averaged over the last print interval.
	TrainLoss = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anbnet_train_loss",
		Help: "Joint training loss averaged over the last print interval",
	})

	// TrainKL is the KL divergence averaged over the last print interval.
	TrainKL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anbnet_train_kl",
		Help: "KL divergence averaged over the last print interval",
	})

	// Alpha is the current supervised-loss weight.
	Alpha = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anbnet_alpha",
		Help: "Current supervised-loss weight",
	})

	// Beta is the current KL regularization weight.
	Beta = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anbnet_beta",
		Help: "Current KL regularization weight",
	})

	// LearningRate is the current optimizer learning rate.
	LearningRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anbnet_learning_rate",
		Help: "Current optimizer learning rate",
	})

	// StepsTotal counts completed optimization steps.
	StepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anbnet_steps_total",
		Help: "Total number of completed optimization steps",
	})

	// CheckpointsTotal counts checkpoints written.
	CheckpointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anbnet_checkpoints_total",
		Help: "Total number of checkpoints written",
	})

	// PreprocessFailures counts structures dropped during preprocessing.
	PreprocessFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anbnet_preprocess_failures_total",
		Help: "Total number of structures dropped by the preprocessing pipeline",
	})

	// EvalWordLoss is the mean word loss of the most recent evaluation pass,
	// labeled by phase (Validation or Test).
	EvalWordLoss = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "anbnet_eval_word_loss",
		Help: "Mean word reconstruction loss of the latest evaluation pass",
	}, []string{"phase"})
)
