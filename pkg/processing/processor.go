package processing

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/menta2k/region-ocr/pkg/types"
)

// PreprocessConfig controls the OCR preprocessing stages
type PreprocessConfig struct {
	// Contrast is the imaging.AdjustContrast percentage (-100..100)
	Contrast float64
	// BlurSigma is the gaussian sigma of the speckle filter, 0 disables it
	BlurSigma float64
	// Threshold is the binarization midpoint: intensities >= Threshold become white
	Threshold uint8
	// Scale is the integer upscale factor applied last
	Scale int
}

// DefaultPreprocessConfig returns the stages tuned for screenshot text
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		Contrast:  50,
		BlurSigma: 0.8,
		Threshold: 128,
		Scale:     2,
	}
}

// Processor handles image processing operations
type Processor struct {
	config PreprocessConfig
}

// NewProcessor creates a processor with default preprocessing
func NewProcessor() *Processor {
	return &Processor{config: DefaultPreprocessConfig()}
}

// NewProcessorWithConfig creates a processor with custom preprocessing
func NewProcessorWithConfig(config PreprocessConfig) *Processor {
	if config.Scale < 1 {
		config.Scale = 1
	}
	return &Processor{config: config}
}

// Scale returns the factor by which Preprocess enlarges its input
func (p *Processor) Scale() float64 {
	return float64(p.config.Scale)
}

// Preprocess prepares a crop for the OCR engine: grayscale, contrast
// stretch, blur, hard binarization and finally an upscale.
func (p *Processor) Preprocess(img image.Image) *image.NRGBA {
	out := imaging.Grayscale(img)
	if p.config.Contrast != 0 {
		out = imaging.AdjustContrast(out, p.config.Contrast)
	}
	if p.config.BlurSigma > 0 {
		out = imaging.Blur(out, p.config.BlurSigma)
	}
	out = Binarize(out, p.config.Threshold)
	if p.config.Scale > 1 {
		b := out.Bounds()
		out = imaging.Resize(out, b.Dx()*p.config.Scale, b.Dy()*p.config.Scale, imaging.Lanczos)
	}
	return out
}

// Binarize maps every pixel of a grayscale image to black or white
func Binarize(img image.Image, threshold uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		var v uint8
		if c.R >= threshold {
			v = 255
		}
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// CreateDebugOverlay draws the selection, word boxes and line boxes over a
// copy of the frame. Word and line boxes are in frame coordinates.
func (p *Processor) CreateDebugOverlay(img image.Image, selection types.Rect, words []types.RecognizedWord, lines []types.RecognizedLine) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	blue := color.NRGBA{173, 216, 230, 255}  // selection
	green := color.NRGBA{0, 255, 0, 255}     // words
	gold := color.NRGBA{255, 204, 0, 255}    // lines
	white := color.NRGBA{255, 255, 255, 255} // handles
	stroke := int(math.Max(1, 0.002*float64(minInt(w, h))))

	sel := selection.Normalized()
	drawBox(nrgba, types.Box{X: sel.Min.X, Y: sel.Min.Y, W: sel.Width(), H: sel.Height()}, blue, stroke)
	for _, c := range types.Corners {
		pt := sel.Corner(c)
		px, py := int(pt.X+0.5), int(pt.Y+0.5)
		for d := -3; d <= 3; d++ {
			drawHLine(nrgba, py+d, px-3, px+4, white)
		}
	}

	for _, l := range lines {
		drawBox(nrgba, l.Box, gold, stroke)
	}
	for _, word := range words {
		drawBox(nrgba, word.Box, green, stroke+1)
	}

	return nrgba
}

// Helper functions
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func boxToPixels(box types.Box) (int, int, int, int) {
	x0 := int(box.X + 0.5)
	y0 := int(box.Y + 0.5)
	x1 := int(box.Right() + 0.5)
	y1 := int(box.Bottom() + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func drawBox(img *image.NRGBA, box types.Box, color color.NRGBA, stroke int) {
	x0, y0, x1, y1 := boxToPixels(box)
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, color)
		drawHLine(img, y1-1-s, x0, x1, color)
		drawVLine(img, x0+s, y0, y1, color)
		drawVLine(img, x1-1-s, y0, y1, color)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
