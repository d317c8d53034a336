package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/menta2k/region-ocr/internal/logutil"
	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/prompts"
	"github.com/menta2k/region-ocr/pkg/types"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-lite"
)

// Config holds the connection settings for the generateContent endpoint
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Client performs one-shot generateContent calls
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client, filling unset fields with defaults
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{config: config, http: httpClient, logger: logger}, nil
}

func (c *Client) Name() string { return "gemini" }

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// firstText returns the first candidate's first part, or "" when absent
func (r *generateResponse) firstText() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error: %d %s - %s", e.code, http.StatusText(e.code), e.body)
}

// Recognize sends exactly one chunk: the extracted text or an error.
func (c *Client) Recognize(ctx context.Context, img client.Image, cfg types.BackendConfig, out chan<- types.Chunk) {
	text, err := c.Generate(ctx, img, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("gemini request failed", "model", c.model(cfg), "error", err)
		client.Send(ctx, out, client.ErrorChunk(c.Name(), err))
		return
	}
	client.Send(ctx, out, types.Chunk{Text: text})
}

func (c *Client) model(cfg types.BackendConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return c.config.Model
}

// Generate runs the request with retries on transport failures, 429 and 5xx
func (c *Client) Generate(ctx context.Context, img client.Image, cfg types.BackendConfig) (string, error) {
	mime := img.MimeType
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompts.OrDefault(cfg.Prompt)},
				{InlineData: &inlineData{MimeType: mime, Data: img.Data}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", client.ErrProtocol, err)
	}

	model := c.model(cfg)
	url := fmt.Sprintf("%s/models/%s:generateContent", c.config.BaseURL, model)
	c.logger.Debug("gemini request", "model", model, "bytes", len(img.Data), "key", logutil.RedactKey(c.config.APIKey))

	return retry.DoWithData(
		func() (string, error) {
			return c.post(ctx, url, body)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.config.MaxRetries)+1),
		retry.Delay(c.config.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("retrying gemini request", "attempt", n+1, "error", err)
		}),
	)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return errors.Is(err, client.ErrTransport)
}

func (c *Client) post(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", client.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", strings.TrimSpace(c.config.APIKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", client.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", client.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %w", client.ErrTransport, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(raw))})
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", client.ErrProtocol, err)
	}
	return stripCodeFence(parsed.firstText()), nil
}

// stripCodeFence removes a ``` fence the model sometimes wraps its answer in
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return raw
	}
	if i := strings.Index(trimmed, "\n"); i >= 0 {
		trimmed = trimmed[i+1:]
	} else {
		return strings.Trim(trimmed, "`")
	}
	if j := strings.LastIndex(trimmed, "```"); j >= 0 {
		trimmed = trimmed[:j]
	}
	return strings.TrimSpace(trimmed)
}
