package bridge

import "github.com/menta2k/region-ocr/pkg/types"

// DefaultPlaceholder is shown while a job has not produced anything yet
const DefaultPlaceholder = "Working…"

// Transcript accumulates the text of the current job in arrival order.
// It is owned by the render loop and never touched by backend goroutines.
type Transcript struct {
	text        []byte
	results     []types.OcrResult
	placeholder string
}

// Begin clears the transcript and shows placeholder until the first chunk
func (t *Transcript) Begin(placeholder string) {
	t.Reset()
	t.placeholder = placeholder
}

// Append adds a chunk, replacing the placeholder on the first one
func (t *Transcript) Append(c types.Chunk) {
	t.placeholder = ""
	t.text = append(t.text, c.Text...)
	t.results = append(t.results, c.Results...)
}

// Set replaces the whole text
func (t *Transcript) Set(text string) {
	t.placeholder = ""
	t.text = append(t.text[:0], text...)
	t.results = nil
}

// Reset empties the transcript
func (t *Transcript) Reset() {
	t.placeholder = ""
	t.text = t.text[:0]
	t.results = nil
}

// Pending reports whether the placeholder is still showing
func (t *Transcript) Pending() bool { return t.placeholder != "" }

// String returns the text to display
func (t *Transcript) String() string {
	if t.placeholder != "" {
		return t.placeholder
	}
	return string(t.text)
}

// Text returns only the received text, without the placeholder
func (t *Transcript) Text() string { return string(t.text) }

// Results returns the structured results received so far
func (t *Transcript) Results() []types.OcrResult { return t.results }
