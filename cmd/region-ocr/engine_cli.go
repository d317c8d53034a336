//go:build !gosseract

package main

import (
	"fmt"
	"log/slog"

	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/pkg/tesseract"
)

const engineSupport = "tesseract cli"

func newEngine(cfg config.TesseractConfig, logger *slog.Logger) (tesseract.Engine, error) {
	if cfg.Engine == "gosseract" {
		return nil, fmt.Errorf("tesseract.engine is gosseract but this binary was built without it; rebuild with -tags gosseract")
	}
	return tesseract.NewCLIEngine(cfg.Path, logger), nil
}
