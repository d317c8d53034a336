//go:build gosseract

// Package gosseract runs tesseract in-process through libtesseract. It lives
// apart from package tesseract so the parser and CLI engine build without cgo.
package gosseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/menta2k/region-ocr/pkg/tesseract"
	"github.com/menta2k/region-ocr/pkg/types"
)

// Engine implements tesseract.Engine on top of a fresh gosseract client per call
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs an in-process engine
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

// TSV recognizes the image and renders word boxes as 12-column TSV rows so
// the shared parser applies the same filtering as for the CLI engine. The
// engine mode is fixed when libtesseract initializes and is not applied.
func (e *Engine) TSV(ctx context.Context, png []byte, cfg types.BackendConfig) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	cfg = cfg.Clamped()
	if cfg.Language != "" {
		if err := c.SetLanguage(strings.Split(cfg.Language, "+")...); err != nil {
			return "", fmt.Errorf("%w: set languages: %v", tesseract.ErrEngine, err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		return "", fmt.Errorf("%w: set page segmentation mode: %v", tesseract.ErrEngine, err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(cfg.DPI)); err != nil {
		return "", fmt.Errorf("%w: set dpi: %v", tesseract.ErrEngine, err)
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("%w: set image: %v", tesseract.ErrEngine, err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return "", fmt.Errorf("%w: recognize: %v", tesseract.ErrEngine, err)
	}

	var sb strings.Builder
	for i, b := range boxes {
		fmt.Fprintf(&sb, "5\t1\t1\t1\t1\t%d\t%d\t%d\t%d\t%d\t%g\t%s\n",
			i+1, b.Box.Min.X, b.Box.Min.Y, b.Box.Dx(), b.Box.Dy(), b.Confidence,
			strings.ReplaceAll(b.Word, "\t", " "))
	}
	return sb.String(), nil
}
