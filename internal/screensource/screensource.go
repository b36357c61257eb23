// Package screensource defines the capability boundary around OS screen
// capture, modeled on the teacher's desktop.ScreenCapturer interface.
package screensource

import (
	"errors"
	"image"
)

// ErrDisplayNotFound is returned when the configured monitor index does
// not exist.
var ErrDisplayNotFound = errors.New("screensource: display not found")

// Source captures frames from one configured monitor. Implementations
// own whatever OS handles they need and must be safe to call serially
// from the single screen-channel goroutine.
type Source interface {
	// Capture grabs the full configured monitor.
	Capture() (image.Image, error)

	// CaptureRegion grabs a sub-rectangle of the configured monitor.
	CaptureRegion(x, y, width, height int) (image.Image, error)

	// Bounds reports the configured monitor's dimensions.
	Bounds() (width, height int, err error)

	// Close releases any OS resources held by the source.
	Close() error
}
