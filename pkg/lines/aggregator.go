package lines

import (
	"sort"

	"github.com/menta2k/region-ocr/pkg/types"
)

// Config holds the grouping thresholds. Both were tuned on screenshot text
// at 1x scale; they are compared against crop-local pixel distances.
type Config struct {
	// MaxVerticalGap is the exclusive bound on |word.top - last.bottom|
	MaxVerticalGap float64 `json:"max_vertical_gap" yaml:"max_vertical_gap" mapstructure:"max_vertical_gap"`
	// MinHorizontalGap and MaxHorizontalGap bound word.left - last.right (inclusive)
	MinHorizontalGap float64 `json:"min_horizontal_gap" yaml:"min_horizontal_gap" mapstructure:"min_horizontal_gap"`
	MaxHorizontalGap float64 `json:"max_horizontal_gap" yaml:"max_horizontal_gap" mapstructure:"max_horizontal_gap"`
}

// DefaultConfig returns the 50 unit thresholds
func DefaultConfig() Config {
	return Config{
		MaxVerticalGap:   50,
		MinHorizontalGap: -50,
		MaxHorizontalGap: 50,
	}
}

// Aggregator groups words into reading-order lines
type Aggregator struct {
	config Config
}

// New creates an aggregator with the default thresholds
func New() *Aggregator {
	return &Aggregator{config: DefaultConfig()}
}

// NewWithConfig creates an aggregator with custom thresholds
func NewWithConfig(config Config) *Aggregator {
	if config.MinHorizontalGap > config.MaxHorizontalGap {
		config.MinHorizontalGap, config.MaxHorizontalGap = config.MaxHorizontalGap, config.MinHorizontalGap
	}
	return &Aggregator{config: config}
}

// Config returns the active thresholds
func (a *Aggregator) Config() Config { return a.config }

// Group sorts words top-to-bottom then left-to-right and greedily chains
// each word onto the current line when it sits close to the line's last
// word. The input slice is not modified.
func (a *Aggregator) Group(words []types.RecognizedWord) []types.RecognizedLine {
	if len(words) == 0 {
		return nil
	}

	sorted := make([]types.RecognizedWord, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Box.Y != sorted[j].Box.Y {
			return sorted[i].Box.Y < sorted[j].Box.Y
		}
		return sorted[i].Box.X < sorted[j].Box.X
	})

	var result []types.RecognizedLine
	current := []types.RecognizedWord{sorted[0]}
	for _, w := range sorted[1:] {
		if a.joins(current[len(current)-1], w) {
			current = append(current, w)
			continue
		}
		result = append(result, newLine(current))
		current = []types.RecognizedWord{w}
	}
	return append(result, newLine(current))
}

func (a *Aggregator) joins(last, w types.RecognizedWord) bool {
	dy := w.Box.Y - last.Box.Bottom()
	if dy < 0 {
		dy = -dy
	}
	dx := w.Box.X - last.Box.Right()
	return dy < a.config.MaxVerticalGap &&
		dx >= a.config.MinHorizontalGap && dx <= a.config.MaxHorizontalGap
}

func newLine(words []types.RecognizedWord) types.RecognizedLine {
	box := words[0].Box
	for _, w := range words[1:] {
		box = box.Union(w.Box)
	}
	return types.RecognizedLine{Words: words, Box: box}
}
