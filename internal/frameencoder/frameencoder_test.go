package frameencoder

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func TestJPEGEncoderProducesDecodableImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	enc := NewJPEGEncoder(85)

	data, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty encoded output")
	}

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("jpeg.Decode: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("decoded bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
}

func TestNewJPEGEncoderClampsQuality(t *testing.T) {
	if got := NewJPEGEncoder(0).Quality; got != 1 {
		t.Fatalf("Quality = %d, want clamped to 1", got)
	}
	if got := NewJPEGEncoder(500).Quality; got != 100 {
		t.Fatalf("Quality = %d, want clamped to 100", got)
	}
}
