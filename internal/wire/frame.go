// Package wire implements the length-prefixed framing shared by all three
// channels: a 4-byte big-endian length followed by exactly that many
// payload bytes. Text frames carry JSON or UTF-8 commands and enforce a
// per-channel maximum length; binary frames carry opaque bytes (monitor
// info, JPEG payloads) and are bounded by MaxBinaryFrameSize.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxBinaryFrameSize bounds a single screen-channel payload (monitor info
// or one encoded frame).
const MaxBinaryFrameSize = 16 << 20

// ErrEmptyFrame is returned when a peer sends a zero-length frame where
// the protocol requires a non-empty payload (e.g. a token handshake).
var ErrEmptyFrame = errors.New("wire: zero-length frame")

// ErrFrameTooLarge is returned when the declared length exceeds the
// caller-supplied maximum for that channel.
type ErrFrameTooLarge struct {
	Length, Max uint32
}

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("wire: frame length %d exceeds maximum %d", e.Length, e.Max)
}

// ReadFrame performs a read-exact read of one length-prefixed frame,
// rejecting any declared length above maxLen. io.EOF on the length header
// is returned unwrapped so callers can treat it as a clean disconnect.
func ReadFrame(r io.Reader, maxLen uint32) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > maxLen {
		return nil, &ErrFrameTooLarge{Length: length, Max: maxLen}
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("wire: read payload: %w", err)
		}
	}
	return payload, nil
}

// ReadNonEmptyFrame is ReadFrame plus a zero-length rejection, used for
// the token handshake and auth requests where an empty frame is always a
// protocol error rather than a legal empty payload.
func ReadNonEmptyFrame(r io.Reader, maxLen uint32) ([]byte, error) {
	payload, err := ReadFrame(r, maxLen)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrEmptyFrame
	}
	return payload, nil
}

// WriteFrame writes payload as one length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("wire: write payload: %w", err)
		}
	}
	return nil
}
