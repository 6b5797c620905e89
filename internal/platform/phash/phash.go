// Package phash computes double-gradient perceptual fingerprints of
// screenshots. Visually similar images produce fingerprints with a small
// Hamming distance.
package phash

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"

	"golang.org/x/image/draw"
)

const (
	side = 8
	// Bits is the fingerprint width: one 8x8 row-gradient plane plus one
	// 8x8 column-gradient plane.
	Bits      = 2 * side * side
	byteCount = Bits / 8
)

var ErrInvalidFingerprint = errors.New("invalid fingerprint")

// Fingerprint is the base64 encoding of the 128 gradient bits.
type Fingerprint string

// FromBytes decodes an encoded image (PNG or JPEG) and fingerprints it.
func FromBytes(data []byte) (Fingerprint, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}

// FromImage fingerprints an already decoded image.
func FromImage(img image.Image) Fingerprint {
	gray := image.NewGray(image.Rect(0, 0, side+1, side+1))
	draw.CatmullRom.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	var out [byteCount]byte
	bit := 0
	set := func(on bool) {
		if on {
			out[bit/8] |= 1 << (7 - uint(bit%8))
		}
		bit++
	}
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			set(gray.GrayAt(x, y).Y < gray.GrayAt(x+1, y).Y)
		}
	}
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			set(gray.GrayAt(x, y).Y < gray.GrayAt(x, y+1).Y)
		}
	}
	return Fingerprint(base64.StdEncoding.EncodeToString(out[:]))
}

// Distance returns the number of differing bits between a and b.
func Distance(a, b Fingerprint) (int, error) {
	ra, err := decode(a)
	if err != nil {
		return 0, err
	}
	rb, err := decode(b)
	if err != nil {
		return 0, err
	}
	d := 0
	for i := range ra {
		d += bits.OnesCount8(ra[i] ^ rb[i])
	}
	return d, nil
}

func decode(f Fingerprint) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(string(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFingerprint, err)
	}
	if len(raw) != byteCount {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidFingerprint, len(raw))
	}
	return raw, nil
}
