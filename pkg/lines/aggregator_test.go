package lines

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/menta2k/region-ocr/pkg/types"
)

func word(text string, x, y, w, h float64) types.RecognizedWord {
	return types.RecognizedWord{Text: text, Confidence: 90, Box: types.Box{X: x, Y: y, W: w, H: h}}
}

func texts(lines []types.RecognizedLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text()
	}
	return out
}

func TestGroupSingleWord(t *testing.T) {
	got := New().Group([]types.RecognizedWord{word("Hello", 20, 5, 40, 10)})
	if len(got) != 1 || len(got[0].Words) != 1 {
		t.Fatalf("expected one line with one word, got %+v", got)
	}
	if got[0].Box != (types.Box{X: 20, Y: 5, W: 40, H: 10}) {
		t.Errorf("unexpected line box %+v", got[0].Box)
	}
}

func TestGroupEmpty(t *testing.T) {
	if got := New().Group(nil); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestGroupChainsAdjacentWords(t *testing.T) {
	words := []types.RecognizedWord{
		word("world", 70, 12, 50, 14),
		word("Hello", 10, 10, 50, 14),
	}
	got := New().Group(words)
	if want := []string{"Hello world"}; !reflect.DeepEqual(texts(got), want) {
		t.Fatalf("got %v, want %v", texts(got), want)
	}
	want := types.Box{X: 10, Y: 10, W: 110, H: 16}
	if got[0].Box != want {
		t.Errorf("line box %+v, want union %+v", got[0].Box, want)
	}
}

func TestGroupSplitsColumns(t *testing.T) {
	words := []types.RecognizedWord{
		word("left", 0, 0, 40, 10),
		word("right", 200, 0, 40, 10),
	}
	got := New().Group(words)
	if len(got) != 2 {
		t.Fatalf("expected columns to split into 2 lines, got %v", texts(got))
	}
}

func TestGroupThresholdBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		next  types.RecognizedWord
		lines int
	}{
		{"gap exactly +50 joins", word("b", 90, 0, 10, 10), 1},
		{"gap above +50 splits", word("b", 90.5, 0, 10, 10), 2},
		{"slight overlap joins", word("b", 5, 0, 10, 10), 1},
		{"vertical gap 50 splits", word("b", 40, 60, 10, 10), 2},
		{"vertical gap below 50 joins", word("b", 40, 59, 10, 10), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := word("a", 0, 0, 40, 10)
			got := New().Group([]types.RecognizedWord{a, tt.next})
			if len(got) != tt.lines {
				t.Errorf("got %d lines, want %d", len(got), tt.lines)
			}
		})
	}
}

func TestGroupIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var words []types.RecognizedWord
	for i := 0; i < 60; i++ {
		words = append(words, word(string(rune('a'+i%26)), float64(i*7%400), float64(rng.Intn(300)), 20+float64(rng.Intn(30)), 12))
	}

	agg := New()
	first := agg.Group(words)
	for run := 0; run < 5; run++ {
		shuffled := make([]types.RecognizedWord, len(words))
		copy(shuffled, words)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		if got := agg.Group(words); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: grouping changed between identical inputs", run)
		}
		if got := agg.Group(shuffled); len(got) != len(first) {
			t.Fatalf("run %d: shuffled input produced %d lines, want %d", run, len(got), len(first))
		}
	}

	for _, l := range first {
		box := l.Words[0].Box
		for _, w := range l.Words[1:] {
			box = box.Union(w.Box)
		}
		if box != l.Box {
			t.Errorf("line %q box %+v is not the union %+v", l.Text(), l.Box, box)
		}
	}
}

func TestNewWithConfigOrdersBand(t *testing.T) {
	a := NewWithConfig(Config{MaxVerticalGap: 10, MinHorizontalGap: 20, MaxHorizontalGap: -20})
	if a.Config().MinHorizontalGap != -20 || a.Config().MaxHorizontalGap != 20 {
		t.Errorf("expected swapped band, got %+v", a.Config())
	}
}
