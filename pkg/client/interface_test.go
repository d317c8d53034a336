package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/menta2k/region-ocr/pkg/types"
)

type partsBackend struct {
	parts []types.Chunk
}

func (p *partsBackend) Name() string { return "parts" }

func (p *partsBackend) Recognize(ctx context.Context, _ Image, _ types.BackendConfig, out chan<- types.Chunk) {
	for _, c := range p.parts {
		if !Send(ctx, out, c) {
			return
		}
	}
}

func TestSubmitClosesChannelInOrder(t *testing.T) {
	b := &partsBackend{parts: []types.Chunk{
		{Text: "a"},
		{Text: "b", Results: []types.OcrResult{{Text: "b"}}},
		{Text: "c"},
	}}

	text, results, err := Collect(Submit(context.Background(), b, Image{}, types.BackendConfig{}))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if text != "abc" {
		t.Errorf("expected chunks in order, got %q", text)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestSendStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan types.Chunk)
	done := make(chan bool)
	go func() { done <- Send(ctx, out, types.Chunk{Text: "x"}) }()

	select {
	case ok := <-done:
		if ok {
			t.Error("Send should report the receiver gone")
		}
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a canceled context")
	}
}

func TestErrorChunk(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", ErrTransport)
	c := ErrorChunk("ollama", cause)

	if c.Text != "[ollama] Error: transport error: connection refused" {
		t.Errorf("unexpected text %q", c.Text)
	}
	if !errors.Is(c.Err, ErrTransport) {
		t.Error("Err should keep the cause")
	}

	b := &partsBackend{parts: []types.Chunk{{Text: "partial "}, c}}
	text, _, err := Collect(Submit(context.Background(), b, Image{}, types.BackendConfig{}))
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Collect should report the terminal error, got %v", err)
	}
	if text != "partial [ollama] Error: transport error: connection refused" {
		t.Errorf("unexpected text %q", text)
	}
}
