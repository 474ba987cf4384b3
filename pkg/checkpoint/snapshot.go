package checkpoint

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/x448/float16"

	"github.com/tsa87/anb-net/pkg/nn"
)

// Precision selects the on-disk representation of parameter values.
type Precision string

const (
	// Float32 is the default full-precision layout.
	Float32 Precision = "float32"
	// Float16 halves snapshot size at the cost of weight precision,
	// acceptable for inference-only checkpoints.
	Float16 Precision = "float16"
)

var (
	// ErrShapeMismatch indicates a snapshot parameter does not match the
	// model parameter it is being loaded into.
	ErrShapeMismatch = errors.New("checkpoint: parameter shape mismatch")
	// ErrUnknownPrecision indicates an unsupported Precision value.
	ErrUnknownPrecision = errors.New("checkpoint: unknown precision")
)

const (
	precF32 = 1
	precF16 = 2
)

// Path returns the snapshot filename for a given global step:
// <dir>/<prefix>.iter-<step>. The training orchestrator uses prefix "model"
// ("model0" in labelled-only mode).
func Path(dir, prefix string, step int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.iter-%d", prefix, step))
}

// Save writes all parameters of the set to path. The write is not atomic;
// a failure mid-write is surfaced to the caller and treated as fatal by the
// trainer, never retried.
func Save(path string, set *nn.ParamSet, prec Precision) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("checkpoint: create %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)

	for _, p := range set.Params() {
		payload, err := encodeParam(p, prec)
		if err != nil {
			f.Close()
			return err
		}
		if err := writeFrame(buf, payload); err != nil {
			f.Close()
			return fmt.Errorf("checkpoint: write %s: %w", p.Name, err)
		}
	}

	if err := buf.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a snapshot back into an already-constructed parameter set. The
// snapshot must contain exactly the registered parameters, in registration
// order, with matching names and shapes.
func Load(path string, set *nn.ParamSet) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	params := set.Params()
	for i := 0; ; i++ {
		payload, err := readFrame(r)
		if err == io.EOF {
			if i != len(params) {
				return fmt.Errorf("%w: snapshot has %d of %d parameters", ErrIncompleteFrame, i, len(params))
			}
			return nil
		}
		if err != nil {
			return err
		}
		if i >= len(params) {
			return fmt.Errorf("%w: snapshot has extra parameters", ErrShapeMismatch)
		}
		if err := decodeParam(payload, params[i]); err != nil {
			return err
		}
	}
}

// encodeParam lays out one parameter:
// [nameLen u16][name][prec u8][ndims u8][dims u32...][values].
func encodeParam(p *nn.Param, prec Precision) ([]byte, error) {
	var valSize int
	var precByte byte
	switch prec {
	case Float32, "":
		valSize, precByte = 4, precF32
	case Float16:
		valSize, precByte = 2, precF16
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrecision, prec)
	}

	size := 2 + len(p.Name) + 1 + 1 + 4*len(p.Shape) + valSize*p.Len()
	buf := make([]byte, 0, size)

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p.Name)))
	buf = append(buf, p.Name...)
	buf = append(buf, precByte, byte(len(p.Shape)))
	for _, d := range p.Shape {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d))
	}
	for _, v := range p.Data {
		switch precByte {
		case precF32:
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
		case precF16:
			buf = binary.LittleEndian.AppendUint16(buf, float16.Fromfloat32(float32(v)).Bits())
		}
	}
	return buf, nil
}

func decodeParam(payload []byte, into *nn.Param) error {
	if len(payload) < 4 {
		return ErrIncompleteFrame
	}
	nameLen := int(binary.LittleEndian.Uint16(payload[0:2]))
	off := 2
	if len(payload) < off+nameLen+2 {
		return ErrIncompleteFrame
	}
	name := string(payload[off : off+nameLen])
	off += nameLen
	precByte := payload[off]
	ndims := int(payload[off+1])
	off += 2

	if name != into.Name {
		return fmt.Errorf("%w: snapshot %q, model %q", ErrShapeMismatch, name, into.Name)
	}
	if ndims != len(into.Shape) {
		return fmt.Errorf("%w: %q has %d dims, model has %d", ErrShapeMismatch, name, ndims, len(into.Shape))
	}
	if len(payload) < off+4*ndims {
		return ErrIncompleteFrame
	}
	for i := 0; i < ndims; i++ {
		d := int(binary.LittleEndian.Uint32(payload[off : off+4]))
		off += 4
		if d != into.Shape[i] {
			return fmt.Errorf("%w: %q dim %d is %d, model has %d", ErrShapeMismatch, name, i, d, into.Shape[i])
		}
	}

	var valSize int
	switch precByte {
	case precF32:
		valSize = 4
	case precF16:
		valSize = 2
	default:
		return fmt.Errorf("%w: byte %d", ErrUnknownPrecision, precByte)
	}
	if len(payload) != off+valSize*into.Len() {
		return ErrIncompleteFrame
	}

	for i := range into.Data {
		switch precByte {
		case precF32:
			bits := binary.LittleEndian.Uint32(payload[off : off+4])
			into.Data[i] = float64(math.Float32frombits(bits))
			off += 4
		case precF16:
			bits := binary.LittleEndian.Uint16(payload[off : off+2])
			into.Data[i] = float64(float16.Frombits(bits).Float32())
			off += 2
		}
	}
	return nil
}
