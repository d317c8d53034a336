//go:build gosseract

package main

import (
	"log/slog"

	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/pkg/tesseract"
	"github.com/menta2k/region-ocr/pkg/tesseract/gosseract"
)

const engineSupport = "tesseract cli, libtesseract"

func newEngine(cfg config.TesseractConfig, logger *slog.Logger) (tesseract.Engine, error) {
	if cfg.Engine == "gosseract" {
		logger.Debug("using in-process libtesseract")
		return gosseract.New(), nil
	}
	return tesseract.NewCLIEngine(cfg.Path, logger), nil
}
