package prompts

import (
	"fmt"
	"strings"
)

// Mode selects what the vision backends are asked to do with the crop
type Mode string

const (
	ModeExtract   Mode = "extract"
	ModeTranslate Mode = "translate"
)

// DefaultTranslateTarget is used when translate mode has no language set
const DefaultTranslateTarget = "Spanish"

// Extract asks for the visible text verbatim
const Extract = `Extract any visible text in this image. Reply only with the extracted text.`

// translate is filled with the target language
const translate = `Translate the text in this image into %s. Reply only with the translation.`

// ParseMode validates a configured mode, defaulting to extract
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeExtract:
		return ModeExtract, nil
	case ModeTranslate:
		return ModeTranslate, nil
	}
	return "", fmt.Errorf("unknown prompt mode %q (use extract or translate)", s)
}

// Translate builds the translation prompt for the target language
func Translate(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		target = DefaultTranslateTarget
	}
	return fmt.Sprintf(translate, target)
}

// Resolve returns the prompt for a mode. A non-empty custom prompt wins.
func Resolve(mode Mode, target, custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	if mode == ModeTranslate {
		return Translate(target)
	}
	return Extract
}

// OrDefault returns p, or the extract prompt when p is blank. Vision
// backends always send an instruction with the image.
func OrDefault(p string) string {
	if strings.TrimSpace(p) == "" {
		return Extract
	}
	return p
}
