package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/prompts"
	"github.com/menta2k/region-ocr/pkg/types"
)

const (
	// DefaultURL is the local ollama daemon
	DefaultURL = "http://localhost:11434"
	// DefaultModel is a small multimodal model that reads screenshots well
	DefaultModel = "gemma3:4b"
)

var errReceiverGone = errors.New("receiver gone")

// Client streams generate responses from an ollama daemon
type Client struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL, model string, logger *slog.Logger) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = DefaultURL
	}
	// Parse the provided URL
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}

	// Create base URL from the provided URL (removing path like /api/generate)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Create client with the specified URL, ignoring environment
	return &Client{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
		logger: logger,
	}, nil
}

func (c *Client) Name() string { return "ollama" }

// Recognize forwards every partial response as its own chunk. A transport
// or stream failure ends the job with one error chunk. When ctx is
// canceled the callback aborts and nothing else is sent.
func (c *Client) Recognize(ctx context.Context, img client.Image, cfg types.BackendConfig, out chan<- types.Chunk) {
	model := cfg.Model
	if model == "" {
		model = c.model
	}

	streamTrue := true
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompts.OrDefault(cfg.Prompt),
		Images: []api.ImageData{api.ImageData(img.Data)},
		Stream: &streamTrue,
	}

	chunks := 0
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		if resp.Response == "" {
			return nil
		}
		chunks++
		if !client.Send(ctx, out, types.Chunk{Text: resp.Response}) {
			return errReceiverGone
		}
		return nil
	})

	switch {
	case err == nil:
		c.logger.Debug("ollama stream finished", "model", model, "chunks", chunks)
	case errors.Is(err, errReceiverGone) || ctx.Err() != nil:
		c.logger.Debug("ollama stream abandoned", "model", model, "chunks", chunks)
	default:
		c.logger.Warn("ollama stream failed", "model", model, "error", err)
		client.Send(ctx, out, client.ErrorChunk(c.Name(), fmt.Errorf("%w: %v", client.ErrTransport, err)))
	}
}

// Models lists the models installed on the daemon
func (c *Client) Models(ctx context.Context) ([]string, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list models: %v", client.ErrTransport, err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
