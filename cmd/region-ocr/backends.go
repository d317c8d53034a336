package main

import (
	"fmt"
	"log/slog"

	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/gemini"
	"github.com/menta2k/region-ocr/pkg/lines"
	"github.com/menta2k/region-ocr/pkg/llamacpp"
	"github.com/menta2k/region-ocr/pkg/ollama"
	"github.com/menta2k/region-ocr/pkg/paddle"
	"github.com/menta2k/region-ocr/pkg/processing"
	"github.com/menta2k/region-ocr/pkg/tesseract"
)

// newPipeline builds the local preprocessing + engine pipeline from config
func newPipeline(cfg *config.Config, logger *slog.Logger) (*tesseract.Pipeline, error) {
	engine, err := newEngine(cfg.Tesseract, logger)
	if err != nil {
		return nil, err
	}
	processor := processing.NewProcessorWithConfig(cfg.ProcessingConfig())
	return tesseract.NewPipelineWithProcessor(engine, processor, logger), nil
}

// newBackend creates the named backend. The local engine is returned as a
// client.Backend too, so it can run through the bridge (serve) or inline.
func newBackend(name string, cfg *config.Config, logger *slog.Logger) (client.Backend, error) {
	switch name {
	case config.BackendTesseract:
		pipeline, err := newPipeline(cfg, logger)
		if err != nil {
			return nil, err
		}
		return tesseract.NewBackend(pipeline, lines.NewWithConfig(cfg.Lines), logger), nil

	case config.BackendOllama:
		c, err := ollama.NewClient(cfg.Ollama.URL, cfg.Ollama.Model, logger)
		if err != nil {
			return nil, err
		}
		return c, nil

	case config.BackendGemini:
		c, err := gemini.NewClient(gemini.Config{
			APIKey:     cfg.GeminiAPIKey(),
			BaseURL:    cfg.Gemini.BaseURL,
			Model:      cfg.Gemini.Model,
			Timeout:    cfg.Gemini.Timeout,
			MaxRetries: cfg.Gemini.MaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil

	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(llamacpp.Config{
			ServerURL: cfg.LlamaCpp.URL,
			APIKey:    cfg.LlamaCpp.APIKey,
			Model:     cfg.LlamaCpp.Model,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil

	case config.BackendPaddle:
		return paddle.NewClient(cfg.Paddle.Socket, logger), nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}
