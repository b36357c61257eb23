package screensource

import (
	"image"
	"image/color"
)

// Synthetic is a Source backed by an in-memory test pattern rather than
// OS screen capture. It exists so the screen channel and its tests can
// run without a real display, and as the fallback when no
// platform-specific capturer is wired in for the current build target;
// the real OS capture backend is outside this package's scope (see
// screensource.Source's doc comment).
type Synthetic struct {
	width, height int
	closed        bool
}

// NewSynthetic creates a Source reporting the given monitor dimensions.
func NewSynthetic(width, height int) *Synthetic {
	return &Synthetic{width: width, height: height}
}

func (s *Synthetic) Capture() (image.Image, error) {
	return s.CaptureRegion(0, 0, s.width, s.height)
}

func (s *Synthetic) CaptureRegion(x, y, width, height int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			shade := uint8((px + y + py + x) % 256)
			img.Set(px, py, color.RGBA{R: shade, G: shade / 2, B: 255 - shade, A: 255})
		}
	}
	return img, nil
}

func (s *Synthetic) Bounds() (width, height int, err error) {
	return s.width, s.height, nil
}

func (s *Synthetic) Close() error {
	s.closed = true
	return nil
}
