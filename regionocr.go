// Package regionocr extracts text from a rectangular region of a captured
// still image.
//
// A Session owns the frame, the selection and everything recognized from
// it. It is driven by a single-threaded render loop: pointer events mutate
// the selection, releasing the pointer crops the region and starts
// recognition, and Tick is called once per frame to collect whatever
// remote backends have produced so far.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		regionocr "github.com/menta2k/region-ocr"
//		"github.com/menta2k/region-ocr/pkg/frame"
//		"github.com/menta2k/region-ocr/pkg/tesseract"
//		"github.com/menta2k/region-ocr/pkg/types"
//	)
//
//	func main() {
//		f, err := frame.Load("screenshot.png")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		pipeline := tesseract.NewPipeline(tesseract.NewCLIEngine("", nil), nil)
//		session, err := regionocr.NewSession(f, regionocr.Options{Pipeline: pipeline})
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer session.Close()
//
//		ctx := context.Background()
//		session.PointerDown(types.Point{X: 10, Y: 10})
//		session.PointerDrag(types.Point{X: 400, Y: 120})
//		session.PointerUp(ctx)
//
//		fmt.Println(session.Tick().ResultText)
//	}
//
// The package ties together these components:
//
// 1. Selection (pkg/selection): the pointer-driven rectangle state machine
// 2. Cropper (pkg/cropper): cuts and encodes the selected pixels
// 3. Tesseract (pkg/tesseract): the synchronous local OCR pipeline
// 4. Lines (pkg/lines): groups word boxes into reading-order lines
// 5. Bridge (pkg/bridge): runs one remote backend job off the render loop
//
// Remote backends (pkg/ollama, pkg/gemini, pkg/llamacpp, pkg/paddle) all
// implement client.Backend and are interchangeable.
package regionocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/menta2k/region-ocr/pkg/bridge"
	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/cropper"
	"github.com/menta2k/region-ocr/pkg/frame"
	"github.com/menta2k/region-ocr/pkg/lines"
	"github.com/menta2k/region-ocr/pkg/selection"
	"github.com/menta2k/region-ocr/pkg/tesseract"
	"github.com/menta2k/region-ocr/pkg/types"
)

// Version of the region-ocr library
const Version = "1.0.0"

var (
	// ErrNoSelection is returned when recognition is requested without a crop
	ErrNoSelection = errors.New("no region selected")
	// ErrNoEngine is returned when the local pipeline is not configured
	ErrNoEngine = errors.New("local engine not configured")
	// ErrNoBridge is returned when a remote backend is used without a bridge
	ErrNoBridge = errors.New("remote backends need a bridge")
)

// Cursor hints which pointer shape the UI should show
type Cursor int

const (
	CursorCrosshair Cursor = iota
	CursorResize
	CursorText
)

func (c Cursor) String() string {
	switch c {
	case CursorResize:
		return "resize"
	case CursorText:
		return "text"
	default:
		return "crosshair"
	}
}

// Options wires a Session to its collaborators. Only Frame-independent
// pieces live here; nil fields fall back to defaults or disable a path.
type Options struct {
	// Pipeline runs the local engine; nil disables local recognition
	Pipeline *tesseract.Pipeline
	// Aggregator groups local words into lines
	Aggregator *lines.Aggregator
	// Extractor cuts and encodes crops
	Extractor *cropper.Extractor
	// Bridge carries remote jobs; nil allows only local recognition
	Bridge *bridge.Bridge
	// Backend, when set, is submitted on every finalized selection instead
	// of running the local pipeline
	Backend client.Backend
	// Config is the snapshot handed to each recognition
	Config types.BackendConfig
	// HandleRadius overrides the corner grab radius
	HandleRadius float64
	Logger       *slog.Logger
}

// RenderState is everything a frame needs to draw. It is rebuilt on every
// Tick and never mutated by the UI.
type RenderState struct {
	Selection    types.Rect
	HasSelection bool
	DragMode     selection.DragMode
	Handles      [4]types.Point
	HandleRadius float64

	// Words and Lines are in frame coordinates
	Words   []types.RecognizedWord
	Lines   []types.RecognizedLine
	Results []types.OcrResult

	ResultText  string
	Working     bool
	NeedsRedraw bool
	CursorHint  Cursor
	HoverWord   int // index into Words, -1 when none
}

// Session is the state of one capture. All methods must be called from the
// render loop's goroutine.
type Session struct {
	frame      *frame.Buffer
	controller *selection.Controller
	extractor  *cropper.Extractor
	pipeline   *tesseract.Pipeline
	aggregator *lines.Aggregator
	bridge     *bridge.Bridge
	backend    client.Backend
	config     types.BackendConfig
	logger     *slog.Logger

	crop       *cropper.Crop
	words      []types.RecognizedWord
	lines      []types.RecognizedLine
	transcript bridge.Transcript
	// jobOrigin is the crop origin of the job feeding the transcript; its
	// results stay anchored there even if the selection is resized meanwhile
	jobOrigin image.Point

	hover    types.Point
	hovering bool
	dirty    bool
}

// NewSession creates a session over a read-only frame
func NewSession(f *frame.Buffer, opts Options) (*Session, error) {
	if f == nil {
		return nil, fmt.Errorf("frame is required")
	}
	if opts.Backend != nil && opts.Bridge == nil {
		return nil, ErrNoBridge
	}
	if opts.Aggregator == nil {
		opts.Aggregator = lines.New()
	}
	if opts.Extractor == nil {
		opts.Extractor = cropper.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	controller := selection.NewController()
	if opts.HandleRadius > 0 {
		controller = selection.NewControllerWithRadius(opts.HandleRadius)
	}

	return &Session{
		frame:      f,
		controller: controller,
		extractor:  opts.Extractor,
		pipeline:   opts.Pipeline,
		aggregator: opts.Aggregator,
		bridge:     opts.Bridge,
		backend:    opts.Backend,
		config:     opts.Config.Clamped(),
		logger:     opts.Logger,
		dirty:      true,
	}, nil
}

// PointerDown starts a new selection or grabs a corner of the current one.
// A new selection discards every result derived from the previous one,
// including a job still in flight.
func (s *Session) PointerDown(pos types.Point) {
	s.dirty = true
	if !s.controller.PointerDown(pos) {
		return
	}
	s.crop = nil
	s.words = nil
	s.lines = nil
	s.transcript.Reset()
	if s.bridge != nil {
		s.bridge.Discard()
	}
}

// PointerDrag updates the selection while a drag is active
func (s *Session) PointerDrag(pos types.Point) {
	s.controller.PointerDrag(pos)
	s.hover, s.hovering = pos, true
	s.dirty = true
}

// PointerMove tracks the pointer for hover feedback
func (s *Session) PointerMove(pos types.Point) {
	if s.hovering && s.hover == pos {
		return
	}
	s.hover, s.hovering = pos, true
	s.dirty = true
}

// PointerLeave drops hover feedback
func (s *Session) PointerLeave() {
	s.hovering = false
	s.dirty = true
}

// PointerUp finalizes the selection, crops it and starts recognition with
// the configured backend, or the local pipeline when none is set.
func (s *Session) PointerUp(ctx context.Context) {
	rect, ok := s.controller.PointerUp()
	s.dirty = true
	if !ok {
		return
	}

	crop, ok := s.extractor.Extract(s.frame, rect)
	if !ok {
		s.logger.Debug("selection has no area", "rect", fmt.Sprintf("%+v", rect))
		s.crop = nil
		return
	}
	s.crop = crop

	if s.backend != nil {
		s.RecognizeWith(s.backend)
		return
	}
	if s.pipeline != nil {
		_ = s.RecognizeLocal(ctx)
	}
}

// RecognizeLocal runs the local pipeline on the current crop and blocks
// until it finishes. Engine failures are logged, clear the words and add
// nothing to the result text.
func (s *Session) RecognizeLocal(ctx context.Context) error {
	if s.crop == nil {
		return ErrNoSelection
	}
	if s.pipeline == nil {
		return ErrNoEngine
	}
	s.dirty = true

	words, err := s.pipeline.Recognize(ctx, s.crop.Image, s.config)
	if err != nil {
		s.logger.Error("local recognition failed", "error", err)
		s.words = nil
		s.lines = nil
		return err
	}

	s.words = words
	s.lines = s.aggregator.Group(words)
	s.transcript.Set(tesseract.JoinLines(s.lines))
	s.logger.Info("local recognition finished", "words", len(s.words), "lines", len(s.lines))
	return nil
}

// RecognizeWith submits the current crop to backend through the bridge.
// It returns false when nothing was started: no crop, the encoding failed,
// or a job is already running.
func (s *Session) RecognizeWith(backend client.Backend) bool {
	if s.crop == nil || backend == nil {
		return false
	}
	if s.bridge == nil {
		s.logger.Warn("remote backend requested without a bridge", "backend", backend.Name())
		return false
	}
	s.dirty = true

	data, err := s.extractor.Encode(s.crop)
	if err != nil {
		s.logger.Error("crop encoding failed", "backend", backend.Name(), "error", err)
		s.transcript.Set(client.ErrorChunk(backend.Name(), err).Text)
		return false
	}

	img := client.Image{Data: data, MimeType: s.extractor.Format().MimeType()}
	if _, ok := s.bridge.TrySubmit(backend, img, s.config); !ok {
		return false
	}
	s.transcript.Begin(s.bridge.Placeholder())
	s.jobOrigin = s.crop.Origin
	return true
}

// SetBackend changes the backend used on the next finalized selection;
// nil selects the local pipeline.
func (s *Session) SetBackend(backend client.Backend) { s.backend = backend }

// SetConfig replaces the tunables used by the next recognition. A job in
// flight keeps the snapshot it was started with.
func (s *Session) SetConfig(cfg types.BackendConfig) { s.config = cfg.Clamped() }

// Config returns the current tunables
func (s *Session) Config() types.BackendConfig { return s.config }

// Tick polls the bridge once and returns the state to draw
func (s *Session) Tick() RenderState {
	finished := false
	working := false
	if s.bridge != nil {
		finished = s.bridge.Poll(&s.transcript)
		working = s.bridge.Active()
	}

	state := RenderState{
		DragMode:     s.controller.Mode(),
		HandleRadius: s.controller.HandleRadius(),
		ResultText:   s.transcript.String(),
		Working:      working,
		NeedsRedraw:  s.dirty || working || finished,
		CursorHint:   CursorCrosshair,
		HoverWord:    -1,
	}
	s.dirty = false

	if rect, ok := s.controller.Selection(); ok {
		state.Selection = rect
		state.HasSelection = true
		for i, c := range types.Corners {
			state.Handles[i] = rect.Corner(c)
		}
	}

	if s.crop != nil {
		dx, dy := float64(s.crop.Origin.X), float64(s.crop.Origin.Y)
		state.Words = make([]types.RecognizedWord, len(s.words))
		for i, w := range s.words {
			w.Box = w.Box.Translate(dx, dy)
			state.Words[i] = w
		}
		state.Lines = make([]types.RecognizedLine, len(s.lines))
		for i, l := range s.lines {
			moved := types.RecognizedLine{Box: l.Box.Translate(dx, dy), Words: make([]types.RecognizedWord, len(l.Words))}
			for j, w := range l.Words {
				w.Box = w.Box.Translate(dx, dy)
				moved.Words[j] = w
			}
			state.Lines[i] = moved
		}
	}
	state.Results = translateResults(s.transcript.Results(), float64(s.jobOrigin.X), float64(s.jobOrigin.Y))

	switch {
	case state.DragMode.Kind == selection.ResizingCorner:
		state.CursorHint = CursorResize
	case state.DragMode.Kind != selection.Idle:
	case s.hovering:
		if _, ok := s.controller.HandleAt(s.hover); ok {
			state.CursorHint = CursorResize
		} else if i, ok := s.wordIndexAt(s.hover); ok {
			state.CursorHint = CursorText
			state.HoverWord = i
		}
	}
	return state
}

func translateResults(results []types.OcrResult, dx, dy float64) []types.OcrResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]types.OcrResult, len(results))
	for i, r := range results {
		poly := make([][2]float64, len(r.Polygon))
		for j, p := range r.Polygon {
			poly[j] = [2]float64{p[0] + dx, p[1] + dy}
		}
		out[i] = types.OcrResult{Text: r.Text, Polygon: poly}
	}
	return out
}

// WordAt returns the recognized word under a frame-space point
func (s *Session) WordAt(p types.Point) (types.RecognizedWord, bool) {
	i, ok := s.wordIndexAt(p)
	if !ok {
		return types.RecognizedWord{}, false
	}
	return s.words[i], true
}

func (s *Session) wordIndexAt(p types.Point) (int, bool) {
	if s.crop == nil {
		return -1, false
	}
	local := types.Point{X: p.X - float64(s.crop.Origin.X), Y: p.Y - float64(s.crop.Origin.Y)}
	for i, w := range s.words {
		if w.Box.Contains(local) {
			return i, true
		}
	}
	return -1, false
}

// Crop returns the current crop, or nil
func (s *Session) Crop() *cropper.Crop { return s.crop }

// Words returns the recognized words in crop-local coordinates
func (s *Session) Words() []types.RecognizedWord { return s.words }

// Lines returns the grouped lines in crop-local coordinates
func (s *Session) Lines() []types.RecognizedLine { return s.lines }

// Text returns the accumulated result text without any placeholder
func (s *Session) Text() string { return s.transcript.Text() }

// Frame returns the session's frame
func (s *Session) Frame() *frame.Buffer { return s.frame }

// Close drops any in-flight job. The bridge's runtime is owned by the
// caller and must be shut down separately.
func (s *Session) Close() {
	if s.bridge != nil {
		s.bridge.Discard()
	}
}
