package paddle

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/types"
)

// Client talks to an OCR server over a unix domain socket
type Client struct {
	socketPath string
	dialer     net.Dialer
	logger     *slog.Logger
}

// NewClient creates a client for socketPath, DefaultSocketPath when empty
func NewClient(socketPath string, logger *slog.Logger) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		socketPath: socketPath,
		dialer:     net.Dialer{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

func (c *Client) Name() string { return "paddle" }

// Recognize sends one chunk carrying the result list. Any failure still
// yields one chunk with no results; its Err field records the cause.
func (c *Client) Recognize(ctx context.Context, img client.Image, _ types.BackendConfig, out chan<- types.Chunk) {
	results, err := c.Do(ctx, img.Data)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("socket ocr failed", "socket", c.socketPath, "error", err)
		client.Send(ctx, out, types.Chunk{Results: []types.OcrResult{}, Err: err})
		return
	}
	c.logger.Debug("socket ocr finished", "socket", c.socketPath, "results", len(results))
	client.Send(ctx, out, types.Chunk{Text: ResultsText(results), Results: results})
}

// Do performs one request/response exchange on a fresh connection
func (c *Client) Do(ctx context.Context, image []byte) ([]types.OcrResult, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", client.ErrTransport, c.socketPath, err)
	}
	defer conn.Close()

	// unblock reads and writes when the job is canceled
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := WriteFrame(conn, image); err != nil {
		return nil, fmt.Errorf("%w: write request: %v", client.ErrTransport, err)
	}
	body, err := ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", client.ErrTransport, err)
	}
	return DecodeResults(body)
}

// ResultsText joins result texts one per line
func ResultsText(results []types.OcrResult) string {
	var buf []byte
	for i, r := range results {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, r.Text...)
	}
	return string(buf)
}
