package wire

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxAuthFrameSize bounds a register/login/logout/validate request or
// response frame on the auth channel.
const MaxAuthFrameSize = 100_000

// MaxCommandFrameSize bounds an input-channel command frame and a
// channel-handshake token frame.
const MaxCommandFrameSize = 1024

// ReadJSON reads one frame bounded by maxLen and unmarshals it into v.
func ReadJSON(r io.Reader, maxLen uint32, v any) error {
	payload, err := ReadFrame(r, maxLen)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wire: unmarshal json: %w", err)
	}
	return nil
}

// WriteJSON marshals v and writes it as one frame.
func WriteJSON(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal json: %w", err)
	}
	return WriteFrame(w, payload)
}
