// Package checkpoint writes and reads parameter-only snapshots of a model.
//
// A snapshot holds one binary frame per parameter tensor, in registration
// order. Frames carry a magic byte, a payload length and a CRC32 checksum so
// that a truncated or corrupted file is detected on load instead of silently
// producing garbage weights. Optimizer and schedule state are deliberately
// not part of the format: resuming re-derives them from configuration.
package checkpoint

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants of the snapshot binary framing.
const (
	// MagicByte marks the start of a valid frame.
	MagicByte = 0xA7

	// headerSize is 1 byte (magic) + 1 byte (opcode) + 4 bytes (length) +
	// 4 bytes (CRC32).
	headerSize = 10

	// OpCodeParam is the only frame type: one parameter tensor.
	OpCodeParam = 0x01
)

var (
	// ErrInvalidMagic indicates the stream is not a parameter snapshot or
	// lost synchronization.
	ErrInvalidMagic = errors.New("checkpoint: invalid magic byte")
	// ErrChecksumMismatch indicates payload corruption.
	ErrChecksumMismatch = errors.New("checkpoint: crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended mid-frame.
	ErrIncompleteFrame = errors.New("checkpoint: incomplete frame")
)

// writeFrame encodes the payload into a framed record.
// Format: [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)].
func writeFrame(w io.Writer, payload []byte) error {
	header := make([]byte, headerSize)
	header[0] = MagicByte
	header[1] = OpCodeParam
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[6:10], crc32.ChecksumIEEE(payload))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame reads and validates the next frame. Returns io.EOF cleanly when
// the stream ends exactly on a frame boundary.
func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, ErrIncompleteFrame
	}
	if header[0] != MagicByte {
		return nil, ErrInvalidMagic
	}

	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ErrIncompleteFrame
	}
	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}
