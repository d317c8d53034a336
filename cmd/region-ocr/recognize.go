package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.design/x/clipboard"

	regionocr "github.com/menta2k/region-ocr"
	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/internal/utils"
	"github.com/menta2k/region-ocr/pkg/bridge"
	"github.com/menta2k/region-ocr/pkg/capture"
	"github.com/menta2k/region-ocr/pkg/cropper"
	"github.com/menta2k/region-ocr/pkg/frame"
	"github.com/menta2k/region-ocr/pkg/lines"
	"github.com/menta2k/region-ocr/pkg/processing"
	"github.com/menta2k/region-ocr/pkg/types"
)

// frameInterval paces the render loop
const frameInterval = 16 * time.Millisecond

var (
	recImage      string
	recDisplay    int
	recRect       string
	recBackend    string
	recPromptMode string
	recTranslate  string
	recFormat     string
	recCopy       bool
	recDebug      bool
	recDebugOut   string
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Recognize the text inside a region",
	Long: `Load an image (or capture the screen), select a region and print its text.

The selection is replayed through the same pointer state machine an
interactive overlay uses: press at the first corner, drag to the second,
release. Remote backends stream their output as it arrives.

Examples:
  region-ocr recognize --image shot.png --rect 10,10,410,120
  region-ocr recognize --display 0 --rect 0,0,800,200 --backend ollama
  region-ocr recognize --image shot.png --rect 0,0,300,80 --backend gemini --prompt-mode translate --translate-to German
  region-ocr recognize --image shot.png --rect 0,0,300,80 --debug --copy`,
	RunE: runRecognize,
}

func init() {
	f := recognizeCmd.Flags()
	f.StringVarP(&recImage, "image", "i", "", "input image (png/jpg/webp); captures the screen when empty")
	f.IntVar(&recDisplay, "display", -1, "display to capture when no image is given, -1 for all")
	f.StringVarP(&recRect, "rect", "r", "", "selection as x0,y0,x1,y1 in frame pixels (required)")
	f.StringVarP(&recBackend, "backend", "b", "", "backend override: "+strings.Join(config.Backends, "|"))
	f.StringVar(&recPromptMode, "prompt-mode", "", "prompt mode override: extract|translate")
	f.StringVar(&recTranslate, "translate-to", "", "target language for translate mode")
	f.StringVarP(&recFormat, "output", "o", "text", "output format: text or json")
	f.BoolVar(&recCopy, "copy", false, "copy the result text to the clipboard")
	f.BoolVar(&recDebug, "debug", false, "write a debug overlay with selection, word and line boxes")
	f.StringVar(&recDebugOut, "debug-out", "", "debug overlay path (default: <image>_debug.png)")
	_ = recognizeCmd.MarkFlagRequired("rect")
}

// parseRect reads "x0,y0,x1,y1"; the corners may be given in any order
func parseRect(s string) (types.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.Rect{}, fmt.Errorf("rect must be x0,y0,x1,y1, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return types.Rect{}, fmt.Errorf("rect coordinate %d: %w", i, err)
		}
		v[i] = f
	}
	return types.RectFromPoints(types.Point{X: v[0], Y: v[1]}, types.Point{X: v[2], Y: v[3]}), nil
}

func loadFrame(path string, display int) (*frame.Buffer, error) {
	if path != "" {
		if !utils.FileExists(path) {
			return nil, fmt.Errorf("image not found: %s", path)
		}
		if !utils.IsImageFile(path) {
			return nil, fmt.Errorf("unsupported image type: %s", path)
		}
		return frame.Load(path)
	}
	if display >= 0 {
		return capture.Display(display)
	}
	return capture.Screen()
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := *cfgManager.Get()
	if recBackend != "" {
		cfg.Backend = recBackend
	}
	if recPromptMode != "" {
		cfg.PromptMode = recPromptMode
	}
	if recTranslate != "" {
		cfg.TranslateTo = recTranslate
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if recFormat != "text" && recFormat != "json" {
		return fmt.Errorf("output must be text or json, got %q", recFormat)
	}

	rect, err := parseRect(recRect)
	if err != nil {
		return err
	}
	f, err := loadFrame(recImage, recDisplay)
	if err != nil {
		return err
	}
	logger.Debug("frame loaded", "width", f.Width(), "height", f.Height())

	cropFormat, _ := cropper.ParseFormat(cfg.CropFormat)
	opts := regionocr.Options{
		Aggregator:   lines.NewWithConfig(cfg.Lines),
		Extractor:    cropper.NewWithConfig(cropper.CropConfig{Format: cropFormat}),
		Config:       cfg.BackendConfig(cfg.Backend),
		HandleRadius: cfg.HandleRadius,
		Logger:       logger,
	}

	rt := bridge.NewRuntime(ctx, logger)
	defer func() {
		if err := rt.Shutdown(5 * time.Second); err != nil {
			logger.Warn("runtime shutdown", "error", err)
		}
	}()

	if cfg.Backend == config.BackendTesseract {
		if opts.Pipeline, err = newPipeline(&cfg, logger); err != nil {
			return err
		}
	} else {
		backend, err := newBackend(cfg.Backend, &cfg, logger)
		if err != nil {
			return err
		}
		opts.Backend = backend
		opts.Bridge = bridge.New(rt, bridge.Options{Timeout: cfg.JobTimeout}, logger)
	}

	session, err := regionocr.NewSession(f, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	session.PointerDown(rect.Min)
	session.PointerDrag(rect.Max)
	session.PointerUp(ctx)
	if session.Crop() == nil {
		return fmt.Errorf("selection %s has no area inside the %dx%d frame", recRect, f.Width(), f.Height())
	}

	var stream io.Writer
	if recFormat == "text" {
		stream = cmd.OutOrStdout()
	}
	state, err := renderLoop(ctx, session, stream)
	if err != nil {
		return err
	}

	text := session.Text()
	if recFormat == "json" {
		if err := writeJSON(cmd.OutOrStdout(), cfg.Backend, text, state); err != nil {
			return err
		}
	}

	if recCopy {
		if err := copyToClipboard(text); err != nil {
			logger.Warn("clipboard unavailable", "error", err)
		}
	}
	if recDebug {
		if err := writeDebugOverlay(f, state); err != nil {
			return err
		}
	}
	return nil
}

// renderLoop ticks the session until no job is running, streaming newly
// arrived text to w when it is not nil.
func renderLoop(ctx context.Context, session *regionocr.Session, w io.Writer) (regionocr.RenderState, error) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	printed := 0
	for {
		state := session.Tick()
		if w != nil {
			if text := session.Text(); len(text) > printed {
				fmt.Fprint(w, text[printed:])
				printed = len(text)
			}
		}
		if !state.Working {
			if w != nil && printed > 0 {
				fmt.Fprintln(w)
			}
			return state, nil
		}

		select {
		case <-ctx.Done():
			session.Close()
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

type jsonLine struct {
	Text string    `json:"text"`
	Box  types.Box `json:"box"`
}

type jsonOutput struct {
	Backend   string                 `json:"backend"`
	Selection types.Rect             `json:"selection"`
	Text      string                 `json:"text"`
	Words     []types.RecognizedWord `json:"words,omitempty"`
	Lines     []jsonLine             `json:"lines,omitempty"`
	Results   []types.OcrResult      `json:"results,omitempty"`
}

func writeJSON(w io.Writer, backend, text string, state regionocr.RenderState) error {
	out := jsonOutput{
		Backend:   backend,
		Selection: state.Selection,
		Text:      text,
		Words:     state.Words,
		Results:   state.Results,
	}
	for _, l := range state.Lines {
		out.Lines = append(out.Lines, jsonLine{Text: l.Text(), Box: l.Box})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func copyToClipboard(text string) error {
	if text == "" {
		return nil
	}
	if err := clipboard.Init(); err != nil {
		return err
	}
	// the returned channel fires when another program overwrites it
	clipboard.Write(clipboard.FmtText, []byte(text))
	logger.Info("result copied to clipboard", "chars", len(text))
	return nil
}

func writeDebugOverlay(f *frame.Buffer, state regionocr.RenderState) error {
	path := recDebugOut
	if path == "" {
		path = utils.OutputFilename(recImage, "", "_debug", "png")
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	processor := processing.NewProcessor()
	overlay := processor.CreateDebugOverlay(f.Image(), state.Selection, state.Words, state.Lines)
	format := utils.GetFileExtension(path)
	if err := processor.SaveImage(overlay, path, format, 92, true); err != nil {
		return fmt.Errorf("failed to save debug overlay: %w", err)
	}
	logger.Info("debug overlay written", "path", path)
	return nil
}
