package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// keyComments annotates the top-level keys of the generated file
var keyComments = map[string]string{
	"backend":       "tesseract | ollama | gemini | paddle | llamacpp",
	"prompt_mode":   "extract | translate (vision backends only)",
	"translate_to":  "target language for translate mode",
	"prompt":        "custom instruction, overrides prompt_mode when set",
	"job_timeout":   "per-job deadline for remote backends, 0 disables it",
	"handle_radius": "pixels around a corner that grab it for resizing",
	"crop_format":   "png | webp, lossless encoding sent to remote backends",
	"tesseract":     "local engine: engine is cli or gosseract; psm 0-13, oem 0-3, dpi 50-300",
	"lines":         "word-to-line grouping thresholds in crop pixels",
	"gemini":        "api_key may also come from api_key_file or GEMINI_API_KEY",
}

// Marshal renders cfg as commented YAML that NewManager reads back
func Marshal(cfg *Config) ([]byte, error) {
	doc, err := document(cfg)
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := Marshal(Default())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := []byte(`# region-ocr configuration
# Every key can be overridden with REGION_OCR_<KEY>, e.g. REGION_OCR_TESSERACT_LANGUAGE=deu

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}

func document(cfg *Config) (*yaml.Node, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	// durations encode as nanoseconds; write them the way viper parses them
	durations := map[string]string{
		"job_timeout": cfg.JobTimeout.String(),
		"timeout":     cfg.Gemini.Timeout.String(),
	}
	annotate(&root, durations, true)
	return &root, nil
}

func annotate(n *yaml.Node, durations map[string]string, top bool) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if top {
			if c, ok := keyComments[key.Value]; ok {
				key.HeadComment = c
			}
		}
		if d, ok := durations[key.Value]; ok && val.Kind == yaml.ScalarNode {
			val.Tag = "!!str"
			val.Value = d
		}
		annotate(val, durations, false)
	}
}
