package tesseract

import (
	"strconv"
	"strings"

	"github.com/menta2k/region-ocr/pkg/types"
)

// MinConfidence is the exclusive lower bound for accepting a word
const MinConfidence = 50.0

// TSV layout: level page_num block_num par_num line_num word_num left top width height conf text
const (
	tsvColumns = 12
	colLeft    = 6
	colTop     = 7
	colWidth   = 8
	colHeight  = 9
	colConf    = 10
	colText    = 11
)

// ParseTSV extracts the accepted words from the engine's tabular output.
// Rows that do not have exactly 12 columns or whose geometry or confidence
// does not parse are skipped, which also drops the header row.
func ParseTSV(tsv string) []types.RecognizedWord {
	var words []types.RecognizedWord
	for _, line := range strings.Split(tsv, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		word, ok := parseRow(line)
		if !ok {
			continue
		}
		words = append(words, word)
	}
	return words
}

func parseRow(line string) (types.RecognizedWord, bool) {
	cols := strings.Split(line, "\t")
	if len(cols) != tsvColumns {
		return types.RecognizedWord{}, false
	}

	var geom [4]float64
	for i := range geom {
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[colLeft+i]), 64)
		if err != nil {
			return types.RecognizedWord{}, false
		}
		geom[i] = v
	}
	conf, err := strconv.ParseFloat(strings.TrimSpace(cols[colConf]), 64)
	if err != nil {
		return types.RecognizedWord{}, false
	}

	text := strings.TrimSpace(cols[colText])
	if conf <= MinConfidence || text == "" {
		return types.RecognizedWord{}, false
	}

	return types.RecognizedWord{
		Text:       text,
		Confidence: conf,
		Box:        types.Box{X: geom[0], Y: geom[1], W: geom[2], H: geom[3]},
	}, true
}
