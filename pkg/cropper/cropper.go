package cropper

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/menta2k/region-ocr/pkg/frame"
	"github.com/menta2k/region-ocr/pkg/types"
)

// ErrEncode is returned when cropped pixels cannot be serialized
var ErrEncode = errors.New("failed to encode cropped image")

// Format is the lossless encoding used to ship crops to remote backends
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat maps a config string onto a Format, defaulting to PNG
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported crop format: %s (use png or webp)", s)
}

// MimeType returns the media type of the encoded bytes
func (f Format) MimeType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// CropConfig holds configuration for region extraction
type CropConfig struct {
	Format           Format
	CompressionLevel png.CompressionLevel
}

// Extractor turns a selection over a frame into a sub-image
type Extractor struct {
	config CropConfig
}

// New creates an Extractor producing PNG crops
func New() *Extractor {
	return &Extractor{
		config: CropConfig{
			Format:           FormatPNG,
			CompressionLevel: png.DefaultCompression,
		},
	}
}

// NewWithConfig creates an Extractor with custom configuration
func NewWithConfig(config CropConfig) *Extractor {
	if config.Format == "" {
		config.Format = FormatPNG
	}
	return &Extractor{config: config}
}

// Crop is a sub-image cut from a frame together with its position in it
type Crop struct {
	Image  *image.NRGBA
	Origin image.Point
}

// Width of the crop in pixels
func (c *Crop) Width() int { return c.Image.Rect.Dx() }

// Height of the crop in pixels
func (c *Crop) Height() int { return c.Image.Rect.Dy() }

// PixelRect converts a selection into integer frame pixels, clamped to the
// frame bounds. Coordinates are rounded the same way for origin and size.
func PixelRect(r types.Rect, bounds image.Rectangle) image.Rectangle {
	n := r.Normalized()
	x := int(math.Round(n.Min.X))
	y := int(math.Round(n.Min.Y))
	w := int(math.Round(n.Width()))
	h := int(math.Round(n.Height()))
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(x, y, x+w, y+h).Intersect(bounds)
}

// Extract cuts the selection out of the frame. It returns false when the
// clamped selection has no area.
func (e *Extractor) Extract(f *frame.Buffer, r types.Rect) (*Crop, bool) {
	rect := PixelRect(r, f.Bounds())
	if rect.Empty() {
		return nil, false
	}
	return &Crop{
		Image:  imaging.Crop(f.Image(), rect),
		Origin: rect.Min,
	}, true
}

// Format returns the configured transmission format
func (e *Extractor) Format() Format { return e.config.Format }

// Encode serializes the crop in the extractor's configured format
func (e *Extractor) Encode(c *Crop) ([]byte, error) {
	return c.encode(e.config.Format, e.config.CompressionLevel)
}

// Encode serializes the crop losslessly in the given format
func (c *Crop) Encode(format Format) ([]byte, error) {
	return c.encode(format, png.DefaultCompression)
}

func (c *Crop) encode(format Format, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatWebP:
		if err := webp.Encode(&buf, c.Image, &webp.Options{Lossless: true}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	case FormatPNG, "":
		enc := png.Encoder{CompressionLevel: level}
		if err := enc.Encode(&buf, c.Image); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrEncode, format)
	}
	return buf.Bytes(), nil
}
