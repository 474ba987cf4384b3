package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsa87/anb-net/internal/config"
	"github.com/tsa87/anb-net/pkg/moltree"
	"github.com/tsa87/anb-net/pkg/nn"
)

func testBaseline(t *testing.T) *Baseline {
	t.Helper()
	vocab := moltree.NewVocab([]string{"CC", "CO", "CN", "c1ccccc1"})
	cfg := &config.Config{HiddenSize: 8, LabelMean: 2.0, LabelVar: 4.0}
	m := NewBaseline(vocab, cfg)
	nn.XavierInit(m.Params(), 7)
	return m
}

func testTree(symbols ...string) *moltree.MolTree {
	tr := &moltree.MolTree{Smiles: "test"}
	for i, s := range symbols {
		tr.Nodes = append(tr.Nodes, &moltree.Node{
			Smiles: s,
			IsLeaf: i == 0 || i == len(symbols)-1,
			Label:  s + "()",
			Cands:  []string{s + "(x)", s + "()"},
		})
	}
	return tr
}

func TestBaselineParameterLayout(t *testing.T) {
	m := testBaseline(t)
	params := m.Params().Params()
	require.Equal(t, "embedding.weight", params[0].Name)
	require.Equal(t, []int{4, 8}, params[0].Shape)
	require.Equal(t, "pred.bias", params[len(params)-1].Name)
}

func TestBaselineForwardReturnsFiniteMetrics(t *testing.T) {
	m := testBaseline(t)
	trees := []*moltree.MolTree{testTree("CC", "CO", "CN")}

	got, err := m.Forward(trees, []float64{1.5}, 0.1, 0.01)
	require.NoError(t, err)

	for _, v := range []float64{got.Loss, got.KL, got.MAE, got.WordLoss, got.TopoLoss, got.AssmLoss, got.PredLoss} {
		require.False(t, math.IsNaN(v))
		require.False(t, math.IsInf(v, 0))
		require.GreaterOrEqual(t, v, 0.0)
	}
	require.InDelta(t, got.WordLoss+got.TopoLoss+got.AssmLoss+0.01*got.KL+0.1*got.PredLoss, got.Loss, 1e-9)
}

func TestBaselineUnlabelledBranchHasNoPredictionTerm(t *testing.T) {
	m := testBaseline(t)
	trees := []*moltree.MolTree{testTree("CC", "CO")}

	got, err := m.Forward(trees, nil, 0.1, 0.01)
	require.NoError(t, err)
	require.Zero(t, got.PredLoss)
	require.Zero(t, got.MAE)
	require.Greater(t, got.WordLoss, 0.0)
}

func TestBaselineInferenceModeLeavesGradientsUntouched(t *testing.T) {
	m := testBaseline(t)
	m.SetTraining(false)

	_, err := m.Forward([]*moltree.MolTree{testTree("CC", "CO")}, []float64{1}, 0.1, 0.01)
	require.NoError(t, err)
	require.Zero(t, m.Params().GradNorm())
}

func TestBaselineTrainingModeAccumulatesGradients(t *testing.T) {
	m := testBaseline(t)
	m.SetTraining(true)

	_, err := m.Forward([]*moltree.MolTree{testTree("CC", "CO", "CN")}, []float64{1}, 0.1, 0.01)
	require.NoError(t, err)
	require.Greater(t, m.Params().GradNorm(), 0.0)
}

func TestBaselineGradientStepReducesLoss(t *testing.T) {
	m := testBaseline(t)
	trees := []*moltree.MolTree{testTree("CC", "CO", "CN")}
	labels := []float64{1.5}

	m.SetTraining(true)
	before, err := m.Forward(trees, labels, 0.1, 0.01)
	require.NoError(t, err)

	// One plain gradient-descent step on the accumulated gradients.
	for _, p := range m.Params().Params() {
		for i, g := range p.Grad {
			p.Data[i] -= 0.01 * g
		}
	}

	m.SetTraining(false)
	after, err := m.Forward(trees, labels, 0.1, 0.01)
	require.NoError(t, err)
	require.Less(t, after.Loss, before.Loss)
}

func TestBaselineSkipsUnknownSymbols(t *testing.T) {
	m := testBaseline(t)
	got, err := m.Forward([]*moltree.MolTree{testTree("XX", "YY")}, []float64{1}, 0.1, 0.01)
	require.NoError(t, err)
	require.Zero(t, got.Loss)
}

func TestBaselineSamplePriorReturnsVocabSymbol(t *testing.T) {
	m := testBaseline(t)
	rng := rand.New(rand.NewSource(3))

	s, err := m.SamplePrior(rng)
	require.NoError(t, err)
	require.Contains(t, []string{"CC", "CN", "CO", "c1ccccc1"}, s)
}
