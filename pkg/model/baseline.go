// Package model provides a lightweight reference implementation of the
// training orchestrator's Model boundary: a bag-of-clusters encoder with
// linear reconstruction and property heads. It exists so the full pipeline
// (preprocess, train, checkpoint, sample) is runnable end to end and so the
// orchestrator has a realistic collaborator to exercise; it makes no claim
// to the reconstruction quality of a full tree encoder/decoder.
package model

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/tsa87/anb-net/internal/config"
	"github.com/tsa87/anb-net/pkg/moltree"
	"github.com/tsa87/anb-net/pkg/nn"
	"github.com/tsa87/anb-net/pkg/train"
)

// Baseline scores junction trees with a mean cluster embedding followed by
// linear heads for word, topology, assembly and property prediction. All
// gradients are derived analytically and accumulated into the parameter set
// during training-mode forwards.
type Baseline struct {
	vocab  *moltree.Vocab
	hidden int

	labelMean float64
	labelStd  float64

	params *nn.ParamSet
	emb    *nn.Param // [V, H] cluster embeddings
	wordW  *nn.Param // [V, H] word head
	wordB  *nn.Param // [V]
	topoW  *nn.Param // [1, H] leaf/branch head
	topoB  *nn.Param // [1]
	predW  *nn.Param // [1, H] property head
	predB  *nn.Param // [1]

	training bool
}

// NewBaseline constructs the model for a vocabulary and run configuration.
func NewBaseline(vocab *moltree.Vocab, cfg *config.Config) *Baseline {
	m := &Baseline{
		vocab:     vocab,
		hidden:    cfg.HiddenSize,
		labelMean: cfg.LabelMean,
		labelStd:  math.Sqrt(cfg.LabelVar),
		params:    nn.NewParamSet(),
	}
	v := vocab.Size()
	m.emb = nn.NewParam("embedding.weight", v, m.hidden)
	m.wordW = nn.NewParam("word.weight", v, m.hidden)
	m.wordB = nn.NewParam("word.bias", v)
	m.topoW = nn.NewParam("topo.weight", 1, m.hidden)
	m.topoB = nn.NewParam("topo.bias", 1)
	m.predW = nn.NewParam("pred.weight", 1, m.hidden)
	m.predB = nn.NewParam("pred.bias", 1)
	m.params.Add(m.emb, m.wordW, m.wordB, m.topoW, m.topoB, m.predW, m.predB)
	return m
}

// Params implements train.Model.
func (m *Baseline) Params() *nn.ParamSet { return m.params }

// SetTraining implements train.Model. Inference-mode forwards skip all
// gradient work.
func (m *Baseline) SetTraining(training bool) { m.training = training }

// Forward implements train.Model. Metrics are averaged over the trees of the
// slice; a nil labels slice selects the unsupervised branch, which carries no
// MAE or prediction term.
func (m *Baseline) Forward(trees []*moltree.MolTree, labels []float64, alpha, beta float64) (train.Metrics, error) {
	var out train.Metrics
	if len(trees) == 0 {
		return out, nil
	}

	scale := 1.0 / float64(len(trees))
	for ti, tree := range trees {
		var label *float64
		if labels != nil {
			label = &labels[ti]
		}
		tm := m.forwardTree(tree, label, alpha, beta, scale)
		out.Loss += tm.Loss * scale
		out.KL += tm.KL * scale
		out.MAE += tm.MAE * scale
		out.WordLoss += tm.WordLoss * scale
		out.TopoLoss += tm.TopoLoss * scale
		out.AssmLoss += tm.AssmLoss * scale
		out.PredLoss += tm.PredLoss * scale
		out.WordAcc += tm.WordAcc * scale
		out.TopoAcc += tm.TopoAcc * scale
		out.AssmAcc += tm.AssmAcc * scale
	}
	return out, nil
}

// forwardTree scores one tree. gradZ carries the per-tree gradient of the
// weighted loss with respect to the latent code; parameter gradients are
// accumulated directly, scaled by the 1/batch factor.
func (m *Baseline) forwardTree(tree *moltree.MolTree, label *float64, alpha, beta, scale float64) train.Metrics {
	var tm train.Metrics
	h := m.hidden

	// Encoder: mean embedding of the known cluster symbols.
	idxs := make([]int, 0, len(tree.Nodes))
	for _, n := range tree.Nodes {
		if i := m.vocab.Get(n.Smiles); i >= 0 {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return tm
	}
	z := make([]float64, h)
	for _, i := range idxs {
		row := m.emb.Data[i*h : (i+1)*h]
		for d := 0; d < h; d++ {
			z[d] += row[d]
		}
	}
	invK := 1.0 / float64(len(idxs))
	for d := 0; d < h; d++ {
		z[d] *= invK
	}
	gradZ := make([]float64, h)

	// KL of the deterministic code against the unit prior.
	for d := 0; d < h; d++ {
		tm.KL += 0.5 * z[d] * z[d]
	}

	// Word reconstruction: per-node softmax over the vocabulary.
	v := m.vocab.Size()
	logits := make([]float64, v)
	invN := invK
	correct := 0
	for _, y := range idxs {
		for c := 0; c < v; c++ {
			logits[c] = m.wordB.Data[c] + dot(m.wordW.Data[c*h:(c+1)*h], z)
		}
		p, best := softmax(logits)
		if best == y {
			correct++
		}
		tm.WordLoss += -math.Log(math.Max(p[y], 1e-12)) * invN

		if m.training {
			for c := 0; c < v; c++ {
				d := p[c]
				if c == y {
					d--
				}
				d *= invN
				m.wordB.Grad[c] += d * scale
				grow := m.wordW.Grad[c*h : (c+1)*h]
				wrow := m.wordW.Data[c*h : (c+1)*h]
				for k := 0; k < h; k++ {
					grow[k] += d * z[k] * scale
					gradZ[k] += d * wrow[k]
				}
			}
		}
	}
	tm.WordAcc = float64(correct) / float64(len(idxs))

	// Topology: per-node leaf classification.
	correct = 0
	topoRow := m.topoW.Data[:h]
	for _, n := range tree.Nodes {
		if m.vocab.Get(n.Smiles) < 0 {
			continue
		}
		x := m.topoB.Data[0] + dot(topoRow, z)
		s := sigmoid(x)
		y := 0.0
		if n.IsLeaf {
			y = 1.0
		}
		if (s > 0.5) == n.IsLeaf {
			correct++
		}
		if n.IsLeaf {
			tm.TopoLoss += -math.Log(math.Max(s, 1e-12)) * invN
		} else {
			tm.TopoLoss += -math.Log(math.Max(1-s, 1e-12)) * invN
		}
		if m.training {
			d := (s - y) * invN
			m.topoB.Grad[0] += d * scale
			for k := 0; k < h; k++ {
				m.topoW.Grad[k] += d * z[k] * scale
				gradZ[k] += d * topoRow[k]
			}
		}
	}
	tm.TopoAcc = float64(correct) / float64(len(idxs))

	// Assembly: softmax over each node's candidate attachments, scored
	// against a fixed hash feature of the candidate string. The projection
	// carries no parameters; gradients flow only through the latent code.
	assmNodes := 0
	for _, n := range tree.Nodes {
		if len(n.Cands) >= 2 && n.HasLabelCand() {
			assmNodes++
		}
	}
	assmCorrect := 0
	if assmNodes > 0 {
		invA := 1.0 / float64(assmNodes)
		for _, n := range tree.Nodes {
			if len(n.Cands) < 2 || !n.HasLabelCand() {
				continue
			}
			y := -1
			scores := make([]float64, len(n.Cands))
			for ci, cand := range n.Cands {
				scores[ci] = dot(candFeature(cand, h), z)
				if cand == n.Label {
					y = ci
				}
			}
			p, best := softmax(scores)
			if best == y {
				assmCorrect++
			}
			tm.AssmLoss += -math.Log(math.Max(p[y], 1e-12)) * invA
			if m.training {
				for ci, cand := range n.Cands {
					d := p[ci]
					if ci == y {
						d--
					}
					d *= invA
					feat := candFeature(cand, h)
					for k := 0; k < h; k++ {
						gradZ[k] += d * feat[k]
					}
				}
			}
		}
		tm.AssmAcc = float64(assmCorrect) / float64(assmNodes)
	} else {
		tm.AssmAcc = 1
	}

	// Property prediction on the labelled branch.
	if label != nil {
		predRow := m.predW.Data[:h]
		yHat := m.predB.Data[0] + dot(predRow, z)
		yTil := (*label - m.labelMean) / m.labelStd
		r := yHat - yTil
		tm.PredLoss = r * r
		tm.MAE = math.Abs(r)
		if m.training {
			d := alpha * 2 * r
			m.predB.Grad[0] += d * scale
			for k := 0; k < h; k++ {
				m.predW.Grad[k] += d * z[k] * scale
				gradZ[k] += d * predRow[k]
			}
		}
	}

	tm.Loss = tm.WordLoss + tm.TopoLoss + tm.AssmLoss + beta*tm.KL + alpha*tm.PredLoss

	// Backprop the code gradient into the embedding rows.
	if m.training {
		for k := 0; k < h; k++ {
			gradZ[k] += beta * z[k] // KL term
		}
		for _, i := range idxs {
			grow := m.emb.Grad[i*h : (i+1)*h]
			for k := 0; k < h; k++ {
				grow[k] += gradZ[k] * invK * scale
			}
		}
	}
	return tm
}

// SamplePrior implements train.Model: draw a latent code from the unit prior
// and decode the highest-scoring cluster symbol.
func (m *Baseline) SamplePrior(rng *rand.Rand) (string, error) {
	h := m.hidden
	z := make([]float64, h)
	for d := range z {
		z[d] = rng.NormFloat64()
	}
	best, bestScore := 0, math.Inf(-1)
	for c := 0; c < m.vocab.Size(); c++ {
		s := m.wordB.Data[c] + dot(m.wordW.Data[c*h:(c+1)*h], z)
		if s > bestScore {
			best, bestScore = c, s
		}
	}
	return m.vocab.Symbol(best), nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// softmax returns the probabilities and the argmax index.
func softmax(logits []float64) ([]float64, int) {
	maxV, best := logits[0], 0
	for i, v := range logits {
		if v > maxV {
			maxV, best = v, i
		}
	}
	sum := 0.0
	p := make([]float64, len(logits))
	for i, l := range logits {
		p[i] = math.Exp(l - maxV)
		sum += p[i]
	}
	for i := range p {
		p[i] /= sum
	}
	return p, best
}

// candFeature expands a candidate string into a deterministic ±1/sqrt(h)
// feature vector seeded by its FNV hash.
func candFeature(cand string, h int) []float64 {
	f := fnv.New64a()
	f.Write([]byte(cand))
	state := f.Sum64()
	feat := make([]float64, h)
	norm := 1 / math.Sqrt(float64(h))
	for i := range feat {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		if state&1 == 1 {
			feat[i] = norm
		} else {
			feat[i] = -norm
		}
	}
	return feat
}
