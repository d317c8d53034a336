package tesseract

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/lines"
	"github.com/menta2k/region-ocr/pkg/types"
)

// Backend exposes the local pipeline through the client.Backend contract.
// It answers with one chunk holding the grouped line text and one result
// per word.
type Backend struct {
	pipeline   *Pipeline
	aggregator *lines.Aggregator
	logger     *slog.Logger
}

// NewBackend wraps a pipeline and line aggregator
func NewBackend(pipeline *Pipeline, aggregator *lines.Aggregator, logger *slog.Logger) *Backend {
	if aggregator == nil {
		aggregator = lines.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{pipeline: pipeline, aggregator: aggregator, logger: logger}
}

func (b *Backend) Name() string { return "tesseract" }

// Recognize decodes the image and runs the pipeline. Engine failures are
// logged and produce no chunk.
func (b *Backend) Recognize(ctx context.Context, img client.Image, cfg types.BackendConfig, out chan<- types.Chunk) {
	words, grouped, err := b.RecognizeImage(ctx, img.Data, cfg)
	if err != nil {
		b.logger.Error("local recognition failed", "error", err)
		return
	}
	client.Send(ctx, out, types.Chunk{
		Text:    JoinLines(grouped),
		Results: WordResults(words),
	})
}

// RecognizeImage decodes encoded image bytes and returns words and lines
func (b *Backend) RecognizeImage(ctx context.Context, data []byte, cfg types.BackendConfig) ([]types.RecognizedWord, []types.RecognizedLine, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	words, err := b.pipeline.Recognize(ctx, src, cfg)
	if err != nil {
		return nil, nil, err
	}
	return words, b.aggregator.Group(words), nil
}

// JoinLines renders lines one per row
func JoinLines(ls []types.RecognizedLine) string {
	rows := make([]string, len(ls))
	for i, l := range ls {
		rows[i] = l.Text()
	}
	return strings.Join(rows, "\n")
}

// WordResults converts word boxes into polygon results
func WordResults(words []types.RecognizedWord) []types.OcrResult {
	results := make([]types.OcrResult, len(words))
	for i, w := range words {
		results[i] = types.OcrResult{Text: w.Text, Polygon: w.Box.Polygon()}
	}
	return results
}
