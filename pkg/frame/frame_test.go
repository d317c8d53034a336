package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	pix := make([]uint8, 4*3*4)
	pix[0] = 200
	pix[3] = 255

	b, err := New(4, 3, pix)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if b.Width() != 4 || b.Height() != 3 {
		t.Errorf("expected 4x3, got %dx%d", b.Width(), b.Height())
	}

	// the buffer owns its pixels
	pix[0] = 1
	if r, _, _, _ := b.Image().At(0, 0).RGBA(); r>>8 != 200 {
		t.Errorf("buffer should not alias caller pixels, got r=%d", r>>8)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(0, 10, nil); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := New(2, 2, make([]uint8, 3)); err == nil {
		t.Error("expected error for short pixel buffer")
	}
}

func TestFromImageRebasesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 30, 20))
	b, err := FromImage(src)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if b.Bounds() != image.Rect(0, 0, 20, 10) {
		t.Errorf("unexpected bounds %v", b.Bounds())
	}
}

func TestLoadAndDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(50, 40)); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b.Width() != 50 || b.Height() != 40 {
		t.Errorf("expected 50x40, got %dx%d", b.Width(), b.Height())
	}

	if _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected decode error for garbage input")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
