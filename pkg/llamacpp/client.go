package llamacpp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/prompts"
	"github.com/menta2k/region-ocr/pkg/types"
)

const (
	DefaultURL = "http://localhost:8080"
	// llama-server serves whatever model it was started with and ignores this
	DefaultModel = "local"
)

// Config holds the settings for an OpenAI-compatible llama.cpp server
type Config struct {
	ServerURL  string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client streams chat completion deltas from llama-server
type Client struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultURL
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		return nil, fmt.Errorf("invalid server URL %q", cfg.ServerURL)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "no-key"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	base := strings.TrimSuffix(cfg.ServerURL, "/")
	base = strings.TrimSuffix(base, "/v1")
	opts := []option.RequestOption{
		option.WithBaseURL(base + "/v1/"),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (c *Client) Name() string { return "llamacpp" }

// Recognize streams the completion, one chunk per non-empty delta
func (c *Client) Recognize(ctx context.Context, img client.Image, cfg types.BackendConfig, out chan<- types.Chunk) {
	model := cfg.Model
	if model == "" {
		model = c.model
	}
	mime := img.MimeType
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompts.OrDefault(cfg.Prompt)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(2048),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	chunks := 0
	for stream.Next() {
		evt := stream.Current()
		if len(evt.Choices) == 0 || evt.Choices[0].Delta.Content == "" {
			continue
		}
		chunks++
		if !client.Send(ctx, out, types.Chunk{Text: evt.Choices[0].Delta.Content}) {
			c.logger.Debug("llamacpp stream abandoned", "chunks", chunks)
			return
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("llamacpp stream failed", "model", model, "error", err)
		client.Send(ctx, out, client.ErrorChunk(c.Name(), fmt.Errorf("%w: %v", client.ErrTransport, err)))
		return
	}
	c.logger.Debug("llamacpp stream finished", "model", model, "chunks", chunks)
}
