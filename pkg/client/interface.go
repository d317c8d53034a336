package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/menta2k/region-ocr/pkg/types"
)

var (
	// ErrTransport covers connect, DNS, socket and HTTP status failures
	ErrTransport = errors.New("transport error")
	// ErrProtocol covers framing and response shape mismatches
	ErrProtocol = errors.New("protocol error")
)

// Image is an encoded crop ready to be sent to a backend
type Image struct {
	Data     []byte
	MimeType string
}

// Backend is a recognition service. Recognize writes its chunks to out in
// production order and returns when the job is over. It never closes out;
// whoever created the channel does. Failures are delivered as a terminal
// chunk built with ErrorChunk, never returned.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, img Image, cfg types.BackendConfig, out chan<- types.Chunk)
}

// Submit starts b in its own goroutine and returns the channel it feeds.
// The channel is closed when the backend returns.
func Submit(ctx context.Context, b Backend, img Image, cfg types.BackendConfig) <-chan types.Chunk {
	out := make(chan types.Chunk, 16)
	go func() {
		defer close(out)
		b.Recognize(ctx, img, cfg, out)
	}()
	return out
}

// Send delivers c unless ctx is done first. A false return means the
// receiver is gone and the backend should stop.
func Send(ctx context.Context, out chan<- types.Chunk, c types.Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// ErrorChunk renders err as the single terminal chunk of a failed job
func ErrorChunk(backend string, err error) types.Chunk {
	return types.Chunk{
		Text: fmt.Sprintf("[%s] Error: %v", backend, err),
		Err:  err,
	}
}

// Collect drains a job channel and joins its text, mostly for CLI and tests
func Collect(ch <-chan types.Chunk) (string, []types.OcrResult, error) {
	var (
		text    []byte
		results []types.OcrResult
		lastErr error
	)
	for c := range ch {
		text = append(text, c.Text...)
		results = append(results, c.Results...)
		if c.Err != nil {
			lastErr = c.Err
		}
	}
	return string(text), results, lastErr
}
