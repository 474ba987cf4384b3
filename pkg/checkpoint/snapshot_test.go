package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsa87/anb-net/pkg/nn"
)

func testSet(t *testing.T) *nn.ParamSet {
	t.Helper()
	s := nn.NewParamSet()
	w := nn.NewParam("enc.weight", 2, 3)
	b := nn.NewParam("enc.bias", 3)
	for i := range w.Data {
		w.Data[i] = 0.125 * float64(i+1)
	}
	for i := range b.Data {
		b.Data[i] = -0.5 * float64(i)
	}
	s.Add(w, b)
	return s
}

func freshLike(src *nn.ParamSet) *nn.ParamSet {
	dst := nn.NewParamSet()
	for _, p := range src.Params() {
		dst.Add(nn.NewParam(p.Name, p.Shape...))
	}
	return dst
}

func TestPathFormat(t *testing.T) {
	require.Equal(t, filepath.Join("saved", "model.iter-3000"), Path("saved", "model", 3000))
	require.Equal(t, filepath.Join("out", "model0.iter-0"), Path("out", "model0", 0))
}

func TestSaveLoadFloat32Exact(t *testing.T) {
	src := testSet(t)
	path := filepath.Join(t.TempDir(), "model.iter-1")
	require.NoError(t, Save(path, src, Float32))

	dst := freshLike(src)
	require.NoError(t, Load(path, dst))
	for i, p := range src.Params() {
		require.Equal(t, p.Data, dst.Params()[i].Data, p.Name)
	}
}

func TestSaveLoadFloat16Approximate(t *testing.T) {
	src := testSet(t)
	path := filepath.Join(t.TempDir(), "model.iter-1")
	require.NoError(t, Save(path, src, Float16))

	dst := freshLike(src)
	require.NoError(t, Load(path, dst))
	for i, p := range src.Params() {
		for j, v := range p.Data {
			require.InDelta(t, v, dst.Params()[i].Data[j], 1e-2)
		}
	}
}

func TestSaveRejectsUnknownPrecision(t *testing.T) {
	src := testSet(t)
	path := filepath.Join(t.TempDir(), "model.iter-1")
	err := Save(path, src, Precision("float8"))
	require.ErrorIs(t, err, ErrUnknownPrecision)
}

func TestLoadDetectsCorruption(t *testing.T) {
	src := testSet(t)
	path := filepath.Join(t.TempDir(), "model.iter-1")
	require.NoError(t, Save(path, src, Float32))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	err = Load(path, freshLike(src))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestLoadDetectsBadMagic(t *testing.T) {
	src := testSet(t)
	path := filepath.Join(t.TempDir(), "model.iter-1")
	require.NoError(t, Save(path, src, Float32))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] = 0x00
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	err = Load(path, freshLike(src))
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestLoadRejectsShapeMismatch(t *testing.T) {
	src := testSet(t)
	path := filepath.Join(t.TempDir(), "model.iter-1")
	require.NoError(t, Save(path, src, Float32))

	dst := nn.NewParamSet()
	dst.Add(nn.NewParam("enc.weight", 3, 3), nn.NewParam("enc.bias", 3))
	require.ErrorIs(t, Load(path, dst), ErrShapeMismatch)
}

func TestLoadRejectsNameMismatch(t *testing.T) {
	src := testSet(t)
	path := filepath.Join(t.TempDir(), "model.iter-1")
	require.NoError(t, Save(path, src, Float32))

	dst := nn.NewParamSet()
	dst.Add(nn.NewParam("dec.weight", 2, 3), nn.NewParam("enc.bias", 3))
	require.ErrorIs(t, Load(path, dst), ErrShapeMismatch)
}

func TestLoadRejectsTruncatedSnapshot(t *testing.T) {
	src := testSet(t)
	path := filepath.Join(t.TempDir(), "model.iter-1")
	require.NoError(t, Save(path, src, Float32))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-4], 0o644))

	err = Load(path, freshLike(src))
	require.Error(t, err)
}
