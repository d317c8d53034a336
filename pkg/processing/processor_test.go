package processing

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/menta2k/region-ocr/pkg/types"
)

// createTextLikeImage draws dark "glyph" bars on a tinted background
func createTextLikeImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if y > height/3 && y < 2*height/3 && (x/4)%2 == 0 {
				img.Set(x, y, color.RGBA{20, 20, 40, 255})
			} else {
				img.Set(x, y, color.RGBA{220, 200, 180, 255})
			}
		}
	}
	return img
}

func TestNewProcessor(t *testing.T) {
	p := NewProcessor()
	if p.Scale() != 2 {
		t.Errorf("expected default scale 2, got %v", p.Scale())
	}
	if p.config.Threshold != 128 {
		t.Errorf("expected threshold 128, got %d", p.config.Threshold)
	}

	if NewProcessorWithConfig(PreprocessConfig{Scale: 0}).Scale() != 1 {
		t.Error("scale below 1 should be raised to 1")
	}
}

func TestBinarize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 256, 1))
	for x := 0; x < 256; x++ {
		img.SetGray(x, 0, color.Gray{Y: uint8(x)})
	}

	out := Binarize(img, 128)
	for x := 0; x < 256; x++ {
		got := out.NRGBAAt(x, 0).R
		want := uint8(0)
		if x >= 128 {
			want = 255
		}
		if got != want {
			t.Fatalf("intensity %d -> %d, want %d", x, got, want)
		}
	}
}

func TestPreprocessUpscalesAndDesaturates(t *testing.T) {
	p := NewProcessor()
	out := p.Preprocess(createTextLikeImage(60, 30))

	if out.Bounds().Dx() != 120 || out.Bounds().Dy() != 60 {
		t.Fatalf("expected 120x60, got %v", out.Bounds())
	}

	for y := 0; y < out.Bounds().Dy(); y++ {
		for x := 0; x < out.Bounds().Dx(); x++ {
			c := out.NRGBAAt(x, y)
			if c.R != c.G || c.G != c.B {
				t.Fatalf("pixel (%d,%d) is not gray: %v", x, y, c)
			}
		}
	}
}

func TestPreprocessWithoutScaleIsBilevel(t *testing.T) {
	cfg := DefaultPreprocessConfig()
	cfg.Scale = 1
	out := NewProcessorWithConfig(cfg).Preprocess(createTextLikeImage(40, 30))

	if out.Bounds().Dx() != 40 {
		t.Fatalf("expected unscaled width 40, got %d", out.Bounds().Dx())
	}
	sawBlack, sawWhite := false, false
	for _, v := range out.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("found non bilevel value %d", v)
		}
	}
	for y := 0; y < 30; y++ {
		switch out.NRGBAAt(0, y).R {
		case 0:
			sawBlack = true
		case 255:
			sawWhite = true
		}
	}
	if !sawBlack || !sawWhite {
		t.Error("expected both text and background to survive binarization")
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	base := image.NewRGBA(image.Rect(0, 0, 100, 100))

	sel := types.RectFromPoints(types.Point{X: 10, Y: 10}, types.Point{X: 90, Y: 60})
	words := []types.RecognizedWord{{Text: "Hi", Confidence: 90, Box: types.Box{X: 20, Y: 20, W: 20, H: 10}}}
	lines := []types.RecognizedLine{{Words: words, Box: words[0].Box}}

	out := p.CreateDebugOverlay(base, sel, words, lines)
	if out.Bounds() != base.Bounds() {
		t.Fatalf("overlay changed bounds: %v", out.Bounds())
	}
	if r, g, _, _ := out.At(25, 20).RGBA(); r != 0 || g>>8 != 255 {
		t.Errorf("expected green word border at (25,20)")
	}
	if r, _, _, _ := base.At(25, 20).RGBA(); r != 0 {
		t.Error("overlay must not modify the source image")
	}
}

func TestSaveImage(t *testing.T) {
	p := NewProcessor()
	img := createTextLikeImage(16, 16)
	dir := t.TempDir()

	if err := p.SaveImage(img, filepath.Join(dir, "a.png"), "png", 90, false); err != nil {
		t.Errorf("png save failed: %v", err)
	}
	if err := p.SaveImage(img, filepath.Join(dir, "a.jpg"), "jpg", 90, false); err != nil {
		t.Errorf("jpg save failed: %v", err)
	}
	if err := p.SaveImage(img, filepath.Join(dir, "a.gifx"), "gifx", 90, false); err == nil {
		t.Error("expected error for unsupported format")
	}
}
