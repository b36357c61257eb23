package frameencoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Encode renders img as a JPEG at the configured quality.
func (e *JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.Quality}); err != nil {
		return nil, fmt.Errorf("frameencoder: jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
