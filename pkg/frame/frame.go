// Package frame holds the captured still image a selection session works on.
//
// A Buffer is immutable after construction and may be read concurrently by
// any number of crop operations without synchronization.
package frame

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Buffer is a read-only 4-channel raster anchored at the origin
type Buffer struct {
	img *image.NRGBA
}

// New wraps raw non-premultiplied RGBA pixels. The slice is copied.
func New(width, height int, pix []uint8) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel buffer has %d bytes, want %d for %dx%d", len(pix), width*height*4, width, height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	return &Buffer{img: img}, nil
}

// FromImage copies any image into a new buffer
func FromImage(src image.Image) (*Buffer, error) {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", b.Dx(), b.Dy())
	}
	return &Buffer{img: imaging.Clone(src)}, nil
}

// Load reads a frame from an image file (png, jpeg, webp)
func Load(path string) (*Buffer, error) {
	if img, err := imaging.Open(path); err == nil {
		return FromImage(img)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}

	// imaging.Open only knows the registered decoders; retry with the cgo webp decoder
	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
			return FromImage(img)
		}
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads a frame from an encoded image stream
func Decode(r io.Reader) (*Buffer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img)
}

// Width in pixels
func (b *Buffer) Width() int { return b.img.Rect.Dx() }

// Height in pixels
func (b *Buffer) Height() int { return b.img.Rect.Dy() }

// Bounds of the frame, always anchored at (0,0)
func (b *Buffer) Bounds() image.Rectangle { return b.img.Rect }

// Image exposes the frame for reading. Callers must not modify it.
func (b *Buffer) Image() image.Image { return b.img }
