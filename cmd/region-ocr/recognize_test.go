package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	regionocr "github.com/menta2k/region-ocr"
	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/internal/logutil"
	"github.com/menta2k/region-ocr/pkg/bridge"
	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/frame"
	"github.com/menta2k/region-ocr/pkg/types"
)

func init() {
	logger = logutil.Discard()
}

func TestParseRect(t *testing.T) {
	r, err := parseRect("110, 60,10,10")
	if err != nil {
		t.Fatal(err)
	}
	want := types.Rect{Min: types.Point{X: 10, Y: 10}, Max: types.Point{X: 110, Y: 60}}
	if r.Normalized() != want {
		t.Errorf("got %+v", r.Normalized())
	}

	for _, bad := range []string{"", "1,2,3", "1,2,3,x", "1,2,3,4,5"} {
		if _, err := parseRect(bad); err == nil {
			t.Errorf("parseRect(%q) should fail", bad)
		}
	}
}

func TestLoadFrameValidatesInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := loadFrame(filepath.Join(dir, "missing.png"), -1); err == nil {
		t.Error("missing file should fail")
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadFrame(txt, -1); err == nil {
		t.Error("non-image extension should fail")
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := loadFrame(path, -1)
	if err != nil {
		t.Fatal(err)
	}
	if f.Width() != 8 || f.Height() != 4 {
		t.Errorf("unexpected frame size %dx%d", f.Width(), f.Height())
	}
}

func TestNewBackendFactory(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg := config.Default()

	for _, name := range []string{config.BackendTesseract, config.BackendOllama, config.BackendLlamaCpp, config.BackendPaddle} {
		b, err := newBackend(name, cfg, logger)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if b.Name() != name {
			t.Errorf("backend %s reports name %s", name, b.Name())
		}
	}

	if _, err := newBackend(config.BackendGemini, cfg, logger); err == nil {
		t.Error("gemini without an API key should fail")
	}
	cfg.Gemini.APIKey = "test-key"
	if _, err := newBackend(config.BackendGemini, cfg, logger); err != nil {
		t.Errorf("gemini with key: %v", err)
	}

	if _, err := newBackend("easyocr", cfg, logger); err == nil {
		t.Error("unknown backend should fail")
	}
}

// recognizerFunc lets a plain function stand in for a backend's work
type recognizerFunc func(ctx context.Context, out chan<- types.Chunk)

func (f recognizerFunc) Name() string { return "func" }

func (f recognizerFunc) Recognize(ctx context.Context, _ client.Image, _ types.BackendConfig, out chan<- types.Chunk) {
	f(ctx, out)
}

func testFrame(t *testing.T) *frame.Buffer {
	t.Helper()
	f, err := frame.FromImage(image.NewRGBA(image.Rect(0, 0, 100, 100)))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRenderLoopStreamsText(t *testing.T) {
	rt := bridge.NewRuntime(context.Background(), logger)
	defer rt.Shutdown(time.Second)

	backend := recognizerFunc(func(ctx context.Context, out chan<- types.Chunk) {
		for _, p := range []string{"one ", "two"} {
			client.Send(ctx, out, types.Chunk{Text: p})
			time.Sleep(5 * time.Millisecond)
		}
	})
	session, err := regionocr.NewSession(testFrame(t), regionocr.Options{
		Bridge:  bridge.New(rt, bridge.DefaultOptions(), logger),
		Backend: backend,
		Logger:  logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	session.PointerDown(types.Point{X: 0, Y: 0})
	session.PointerDrag(types.Point{X: 50, Y: 50})
	session.PointerUp(context.Background())

	var out bytes.Buffer
	if _, err := renderLoop(context.Background(), session, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "one two\n" {
		t.Errorf("streamed %q", out.String())
	}
}

func TestRenderLoopCanceled(t *testing.T) {
	rt := bridge.NewRuntime(context.Background(), logger)
	defer rt.Shutdown(time.Second)

	backend := recognizerFunc(func(ctx context.Context, _ chan<- types.Chunk) { <-ctx.Done() })
	session, err := regionocr.NewSession(testFrame(t), regionocr.Options{
		Bridge:  bridge.New(rt, bridge.Options{}, logger),
		Backend: backend,
		Logger:  logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	session.PointerDown(types.Point{X: 0, Y: 0})
	session.PointerDrag(types.Point{X: 50, Y: 50})
	session.PointerUp(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := renderLoop(ctx, session, nil); err == nil {
		t.Error("expected the context error")
	}
}

func TestWriteJSON(t *testing.T) {
	state := regionocr.RenderState{
		Selection: types.Rect{Max: types.Point{X: 10, Y: 10}},
		Lines: []types.RecognizedLine{{
			Words: []types.RecognizedWord{{Text: "a"}, {Text: "b"}},
			Box:   types.Box{W: 5, H: 5},
		}},
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, "tesseract", "a b", state); err != nil {
		t.Fatal(err)
	}
	var got jsonOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Backend != "tesseract" || got.Text != "a b" || len(got.Lines) != 1 || got.Lines[0].Text != "a b" {
		t.Errorf("unexpected output %s", buf.String())
	}
}

func TestNewServedEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Tesseract.Language = "deu"
	cfg.Tesseract.DPI = 999

	e, err := newServedEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if e.backend == nil || e.backend.Name() != "tesseract" {
		t.Fatal("expected a tesseract backend")
	}
	if e.config.Language != "deu" || e.config.DPI != 300 {
		t.Errorf("unexpected served config %+v", e.config)
	}
}
