package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/prompts"
	"github.com/menta2k/region-ocr/pkg/types"
)

func newStreamServer(t *testing.T, parts []string, gotReq *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if gotReq != nil {
			_ = json.NewDecoder(r.Body).Decode(gotReq)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, p := range parts {
			fmt.Fprintf(w, `{"model":"m","created_at":"2024-01-01T00:00:00Z","response":%q,"done":false}`+"\n", p)
			w.(http.Flusher).Flush()
		}
		fmt.Fprintln(w, `{"model":"m","created_at":"2024-01-01T00:00:00Z","response":"","done":true}`)
	}))
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient("://bad", "", nil); err == nil {
		t.Error("expected error for invalid URL")
	}
	c, err := NewClient("http://localhost:11434/api/generate", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.model != DefaultModel {
		t.Errorf("expected default model, got %s", c.model)
	}
}

func TestRecognizeStreamsChunksInOrder(t *testing.T) {
	var req map[string]any
	srv := newStreamServer(t, []string{"Hel", "lo ", "world"}, &req)
	defer srv.Close()

	c, err := NewClient(srv.URL, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	cfg := types.BackendConfig{Prompt: "read the text"}
	ch := client.Submit(context.Background(), c, client.Image{Data: []byte("png-bytes")}, cfg)

	var got []string
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("unexpected error chunk: %v", chunk.Err)
		}
		got = append(got, chunk.Text)
	}
	if strings.Join(got, "|") != "Hel|lo |world" {
		t.Errorf("got chunks %q", got)
	}

	if req["model"] != DefaultModel || req["prompt"] != "read the text" {
		t.Errorf("unexpected request %v", req)
	}
	images, _ := req["images"].([]any)
	if len(images) != 1 || images[0] != "cG5nLWJ5dGVz" {
		t.Errorf("expected one base64 image, got %v", req["images"])
	}
}

func TestRecognizeSendsDefaultPrompt(t *testing.T) {
	var req map[string]any
	srv := newStreamServer(t, []string{"ok"}, &req)
	defer srv.Close()

	c, err := NewClient(srv.URL, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := client.Collect(client.Submit(context.Background(), c, client.Image{Data: []byte{1}}, types.BackendConfig{})); err != nil {
		t.Fatal(err)
	}
	if req["prompt"] != prompts.Extract {
		t.Errorf("expected the extract instruction, got %v", req["prompt"])
	}
}

func TestRecognizeTransportErrorBecomesTextChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"model not loaded"}`)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "", nil)
	text, _, err := client.Collect(client.Submit(context.Background(), c, client.Image{Data: []byte{1}}, types.BackendConfig{}))

	if !errors.Is(err, client.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !strings.HasPrefix(text, "[ollama] Error:") {
		t.Errorf("expected visible error text, got %q", text)
	}
}

func TestRecognizeStopsWhenReceiverLeaves(t *testing.T) {
	parts := make([]string, 200)
	for i := range parts {
		parts[i] = "x"
	}
	srv := newStreamServer(t, parts, nil)
	defer srv.Close()

	c, _ := NewClient(srv.URL, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan types.Chunk)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Recognize(ctx, client.Image{Data: []byte{1}}, types.BackendConfig{}, out)
	}()

	<-out
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("backend kept running after the receiver left")
	}
}
