package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/menta2k/region-ocr/pkg/processing"
	"github.com/menta2k/region-ocr/pkg/types"
)

// ErrEngine wraps every failure of the OCR engine invocation
var ErrEngine = errors.New("ocr engine failed")

// Engine runs OCR over a PNG image and returns the 12-column TSV report
type Engine interface {
	TSV(ctx context.Context, png []byte, cfg types.BackendConfig) (string, error)
}

// Pipeline preprocesses a crop, runs the engine and maps the accepted words
// back into crop-local coordinates.
type Pipeline struct {
	engine    Engine
	processor *processing.Processor
	logger    *slog.Logger
}

// NewPipeline creates a pipeline with the default preprocessing stages
func NewPipeline(engine Engine, logger *slog.Logger) *Pipeline {
	return NewPipelineWithProcessor(engine, processing.NewProcessor(), logger)
}

// NewPipelineWithProcessor creates a pipeline with custom preprocessing
func NewPipelineWithProcessor(engine Engine, processor *processing.Processor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{engine: engine, processor: processor, logger: logger}
}

// Recognize returns the words found in img. Boxes are in img's pixel space.
func (p *Pipeline) Recognize(ctx context.Context, img image.Image, cfg types.BackendConfig) ([]types.RecognizedWord, error) {
	prepared := p.processor.Preprocess(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return nil, fmt.Errorf("%w: encode preprocessed image: %v", ErrEngine, err)
	}

	tsv, err := p.engine.TSV(ctx, buf.Bytes(), cfg.Clamped())
	if err != nil {
		if !errors.Is(err, ErrEngine) {
			err = fmt.Errorf("%w: %v", ErrEngine, err)
		}
		return nil, err
	}

	words := ParseTSV(tsv)
	scale := p.processor.Scale()
	if scale != 1 {
		for i := range words {
			words[i].Box = words[i].Box.Scale(1 / scale)
		}
	}

	p.logger.Debug("local recognition finished",
		"words", len(words),
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return words, nil
}
