package phash_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"focustrail/internal/platform/phash"
)

func gradient(w, h int, invert bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*255)/w/2 + (y*255)/h/2)
			if invert {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestIdenticalImagesHaveZeroDistance(t *testing.T) {
	t.Parallel()
	a := phash.FromImage(gradient(320, 200, false))
	b := phash.FromImage(gradient(320, 200, false))
	d, err := phash.Distance(a, b)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected zero distance, got %d", d)
	}
}

func TestScaledImageStaysClose(t *testing.T) {
	t.Parallel()
	a := phash.FromImage(gradient(640, 400, false))
	b := phash.FromImage(gradient(320, 200, false))
	d, err := phash.Distance(a, b)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if d > 8 {
		t.Fatalf("expected scaled copy within 8 bits, got %d", d)
	}
}

func TestInvertedImageIsFar(t *testing.T) {
	t.Parallel()
	a := phash.FromImage(gradient(320, 200, false))
	b := phash.FromImage(gradient(320, 200, true))
	d, err := phash.Distance(a, b)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if d < 64 {
		t.Fatalf("expected inverted image to differ in most bits, got %d", d)
	}
}

func TestFromBytesDecodesPNG(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, gradient(64, 64, false)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	fp, err := phash.FromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if fp != phash.FromImage(gradient(64, 64, false)) {
		t.Fatalf("png round trip changed fingerprint")
	}
	if _, err := phash.FromBytes([]byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDistanceRejectsMalformedFingerprints(t *testing.T) {
	t.Parallel()
	good := phash.FromImage(gradient(32, 32, false))
	if _, err := phash.Distance(good, "AAAA"); !errors.Is(err, phash.ErrInvalidFingerprint) {
		t.Fatalf("expected invalid fingerprint, got %v", err)
	}
	if _, err := phash.Distance("%%%", good); !errors.Is(err, phash.ErrInvalidFingerprint) {
		t.Fatalf("expected invalid fingerprint, got %v", err)
	}
}
