package bridge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/menta2k/region-ocr/internal/logutil"
	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/types"
)

// scriptedBackend sends each part once release allows it
type scriptedBackend struct {
	parts   []string
	release chan struct{}
	stopped chan struct{}
}

func newScripted(parts ...string) *scriptedBackend {
	return &scriptedBackend{parts: parts, release: make(chan struct{}, len(parts)), stopped: make(chan struct{})}
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) Recognize(ctx context.Context, _ client.Image, _ types.BackendConfig, out chan<- types.Chunk) {
	defer close(s.stopped)
	for _, p := range s.parts {
		select {
		case <-s.release:
		case <-ctx.Done():
			return
		}
		if !client.Send(ctx, out, types.Chunk{Text: p}) {
			return
		}
	}
}

// step lets the backend send n more parts
func (s *scriptedBackend) step(n int) {
	for i := 0; i < n; i++ {
		s.release <- struct{}{}
	}
}

// hangingBackend blocks until canceled
type hangingBackend struct{ stopped chan struct{} }

func (h *hangingBackend) Name() string { return "hanging" }

func (h *hangingBackend) Recognize(ctx context.Context, _ client.Image, _ types.BackendConfig, _ chan<- types.Chunk) {
	<-ctx.Done()
	close(h.stopped)
}

func newBridge(t *testing.T, opts Options) *Bridge {
	t.Helper()
	rt := NewRuntime(context.Background(), logutil.Discard())
	t.Cleanup(func() {
		if err := rt.Shutdown(5 * time.Second); err != nil {
			t.Error(err)
		}
	})
	return New(rt, opts, logutil.Discard())
}

// pollUntilDone polls like a render loop until the job finishes
func pollUntilDone(t *testing.T, b *Bridge, tr *Transcript) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !b.Poll(tr) {
		if time.Now().After(deadline) {
			t.Fatal("job did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s did not stop", what)
	}
}

func TestPollAppendsInOrder(t *testing.T) {
	b := newBridge(t, DefaultOptions())
	be := newScripted("Hel", "lo", " world")

	var tr Transcript
	if _, ok := b.TrySubmit(be, client.Image{}, types.BackendConfig{}); !ok {
		t.Fatal("first submit rejected")
	}
	tr.Begin(b.Placeholder())

	if b.Poll(&tr) {
		t.Fatal("job finished before sending anything")
	}
	if tr.String() != DefaultPlaceholder {
		t.Errorf("expected placeholder, got %q", tr.String())
	}

	be.step(3)
	pollUntilDone(t, b, &tr)

	if tr.String() != "Hello world" {
		t.Errorf("got %q", tr.String())
	}
	if b.Active() {
		t.Error("bridge still active after the channel closed")
	}
}

func TestAtMostOneJob(t *testing.T) {
	b := newBridge(t, DefaultOptions())
	first := newScripted("first")
	second := newScripted("second")
	second.step(1)

	job, ok := b.TrySubmit(first, client.Image{}, types.BackendConfig{})
	if !ok {
		t.Fatal("first submit rejected")
	}
	if _, ok := b.TrySubmit(second, client.Image{}, types.BackendConfig{}); ok {
		t.Fatal("second submit must be rejected while a job is active")
	}
	if b.Job() != job {
		t.Error("active job changed after a rejected submit")
	}

	var tr Transcript
	first.step(1)
	pollUntilDone(t, b, &tr)
	if tr.String() != "first" {
		t.Errorf("only the first job may feed the transcript, got %q", tr.String())
	}

	if _, ok := b.TrySubmit(second, client.Image{}, types.BackendConfig{}); !ok {
		t.Error("submit after completion should be accepted")
	}
}

func TestSubmitWithoutBackend(t *testing.T) {
	b := newBridge(t, DefaultOptions())
	if job, ok := b.TrySubmit(nil, client.Image{}, types.BackendConfig{}); ok || job != nil {
		t.Fatal("nil backend must be rejected")
	}
	if b.Active() {
		t.Error("rejected submit left a job behind")
	}
}

func TestPlaceholderClearedOnSilentFinish(t *testing.T) {
	b := newBridge(t, DefaultOptions())
	be := newScripted()

	var tr Transcript
	b.TrySubmit(be, client.Image{}, types.BackendConfig{})
	tr.Begin(b.Placeholder())
	pollUntilDone(t, b, &tr)

	if tr.String() != "" || tr.Pending() {
		t.Errorf("expected empty transcript, got %q", tr.String())
	}
}

func TestDiscardDropsLateChunks(t *testing.T) {
	b := newBridge(t, DefaultOptions())
	be := newScripted("stale")

	var tr Transcript
	b.TrySubmit(be, client.Image{}, types.BackendConfig{})
	b.Discard()
	if b.Active() {
		t.Fatal("Discard should free the slot")
	}

	be.step(1)
	waitClosed(t, be.stopped, "discarded backend")

	if b.Poll(&tr) || tr.String() != "" {
		t.Errorf("discarded job leaked %q", tr.String())
	}
}

func TestJobTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond
	b := newBridge(t, opts)
	be := &hangingBackend{stopped: make(chan struct{})}

	var tr Transcript
	b.TrySubmit(be, client.Image{}, types.BackendConfig{})
	tr.Begin(b.Placeholder())
	pollUntilDone(t, b, &tr)

	waitClosed(t, be.stopped, "hanging backend")
	if !strings.Contains(tr.String(), "timed out") {
		t.Errorf("expected a timeout message, got %q", tr.String())
	}
}

func TestShutdownCancelsJobs(t *testing.T) {
	rt := NewRuntime(context.Background(), logutil.Discard())
	b := New(rt, Options{}, logutil.Discard())
	be := &hangingBackend{stopped: make(chan struct{})}

	b.TrySubmit(be, client.Image{}, types.BackendConfig{})
	if err := rt.Shutdown(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	waitClosed(t, be.stopped, "backend")

	b.Discard()
	if _, ok := b.TrySubmit(newScripted(), client.Image{}, types.BackendConfig{}); ok {
		t.Error("submit after shutdown should be rejected")
	}
}

func TestTranscript(t *testing.T) {
	var tr Transcript
	tr.Begin("wait")
	if !tr.Pending() || tr.String() != "wait" || tr.Text() != "" {
		t.Fatalf("unexpected state %q", tr.String())
	}

	tr.Append(types.Chunk{Results: []types.OcrResult{{Text: "A"}}})
	if tr.Pending() || tr.String() != "" || len(tr.Results()) != 1 {
		t.Errorf("first chunk should clear the placeholder, got %q", tr.String())
	}

	tr.Set("replaced")
	if tr.String() != "replaced" || tr.Results() != nil {
		t.Errorf("Set should replace text and results")
	}
	tr.Reset()
	if tr.String() != "" {
		t.Errorf("Reset left %q", tr.String())
	}
}
