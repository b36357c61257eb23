// Package frameencoder defines and implements the FrameEncoder capability
// boundary: turning a captured image into the bytes placed on the wire.
package frameencoder

import "image"

// Encoder turns a captured frame into wire bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// JPEGEncoder is the default Encoder, matching the original server's
// JPEG quality 85 output. JPEG encoding itself is explicitly a
// capability-boundary concern (not core protocol logic), so a
// stdlib-backed implementation behind this interface is the right
// amount of abstraction — callers depend on Encoder, never on
// image/jpeg directly.
type JPEGEncoder struct {
	Quality int
}

// NewJPEGEncoder creates an encoder at the given JPEG quality (1-100).
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &JPEGEncoder{Quality: quality}
}
