package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/region-ocr/pkg/cropper"
	"github.com/menta2k/region-ocr/pkg/lines"
	"github.com/menta2k/region-ocr/pkg/processing"
	"github.com/menta2k/region-ocr/pkg/prompts"
	"github.com/menta2k/region-ocr/pkg/types"
)

// Backend names accepted by the backend setting
const (
	BackendTesseract = "tesseract"
	BackendOllama    = "ollama"
	BackendGemini    = "gemini"
	BackendPaddle    = "paddle"
	BackendLlamaCpp  = "llamacpp"
)

// Backends lists every supported backend
var Backends = []string{BackendTesseract, BackendOllama, BackendGemini, BackendPaddle, BackendLlamaCpp}

// Config holds the application configuration
type Config struct {
	Backend      string        `mapstructure:"backend" yaml:"backend"`
	PromptMode   string        `mapstructure:"prompt_mode" yaml:"prompt_mode"`
	TranslateTo  string        `mapstructure:"translate_to" yaml:"translate_to"`
	Prompt       string        `mapstructure:"prompt" yaml:"prompt"`
	JobTimeout   time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
	HandleRadius float64       `mapstructure:"handle_radius" yaml:"handle_radius"`
	CropFormat   string        `mapstructure:"crop_format" yaml:"crop_format"`

	Tesseract  TesseractConfig  `mapstructure:"tesseract" yaml:"tesseract"`
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess"`
	Lines      lines.Config     `mapstructure:"lines" yaml:"lines"`
	Ollama     OllamaConfig     `mapstructure:"ollama" yaml:"ollama"`
	Gemini     GeminiConfig     `mapstructure:"gemini" yaml:"gemini"`
	LlamaCpp   LlamaCppConfig   `mapstructure:"llamacpp" yaml:"llamacpp"`
	Paddle     PaddleConfig     `mapstructure:"paddle" yaml:"paddle"`
}

// TesseractConfig holds the local engine options
type TesseractConfig struct {
	// Engine is "cli" (tesseract executable) or "gosseract" (libtesseract)
	Engine      string `mapstructure:"engine" yaml:"engine"`
	Path        string `mapstructure:"path" yaml:"path"`
	Language    string `mapstructure:"language" yaml:"language"`
	PageSegMode int    `mapstructure:"psm" yaml:"psm"`
	EngineMode  int    `mapstructure:"oem" yaml:"oem"`
	DPI         int    `mapstructure:"dpi" yaml:"dpi"`
}

// PreprocessConfig holds the preprocessing stages for the local engine
type PreprocessConfig struct {
	Contrast  float64 `mapstructure:"contrast" yaml:"contrast"`
	BlurSigma float64 `mapstructure:"blur_sigma" yaml:"blur_sigma"`
	Threshold int     `mapstructure:"threshold" yaml:"threshold"`
	Scale     int     `mapstructure:"scale" yaml:"scale"`
}

type OllamaConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Model string `mapstructure:"model" yaml:"model"`
}

type GeminiConfig struct {
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	APIKeyFile string        `mapstructure:"api_key_file" yaml:"api_key_file"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Model      string        `mapstructure:"model" yaml:"model"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LlamaCppConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Model  string `mapstructure:"model" yaml:"model"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

type PaddleConfig struct {
	Socket string `mapstructure:"socket" yaml:"socket"`
}

// Default returns a configuration with default values
func Default() *Config {
	bc := types.DefaultBackendConfig()
	pp := processing.DefaultPreprocessConfig()
	return &Config{
		Backend:      BackendTesseract,
		PromptMode:   string(prompts.ModeExtract),
		TranslateTo:  prompts.DefaultTranslateTarget,
		JobTimeout:   120 * time.Second,
		HandleRadius: 8,
		CropFormat:   string(cropper.FormatPNG),
		Tesseract: TesseractConfig{
			Engine:      "cli",
			Language:    bc.Language,
			PageSegMode: bc.PageSegMode,
			EngineMode:  bc.EngineMode,
			DPI:         bc.DPI,
		},
		Preprocess: PreprocessConfig{
			Contrast:  pp.Contrast,
			BlurSigma: pp.BlurSigma,
			Threshold: int(pp.Threshold),
			Scale:     pp.Scale,
		},
		Lines: lines.DefaultConfig(),
		Ollama: OllamaConfig{
			URL:   "http://localhost:11434",
			Model: "gemma3:4b",
		},
		Gemini: GeminiConfig{
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			Model:      "gemini-2.5-flash-lite",
			MaxRetries: 2,
			Timeout:    60 * time.Second,
		},
		LlamaCpp: LlamaCppConfig{
			URL: "http://localhost:8080",
		},
		Paddle: PaddleConfig{
			Socket: "/tmp/paddle_socket_unix",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !isBackend(c.Backend) {
		return fmt.Errorf("backend must be one of %s, got %q", strings.Join(Backends, ", "), c.Backend)
	}
	if _, err := prompts.ParseMode(c.PromptMode); err != nil {
		return fmt.Errorf("prompt_mode: %w", err)
	}
	if _, err := cropper.ParseFormat(c.CropFormat); err != nil {
		return fmt.Errorf("crop_format: %w", err)
	}
	if c.JobTimeout < 0 {
		return fmt.Errorf("job_timeout must not be negative")
	}
	if c.HandleRadius <= 0 {
		return fmt.Errorf("handle_radius must be positive")
	}
	if c.Tesseract.Engine != "cli" && c.Tesseract.Engine != "gosseract" {
		return fmt.Errorf("tesseract.engine must be cli or gosseract, got %q", c.Tesseract.Engine)
	}
	if c.Preprocess.Threshold < 0 || c.Preprocess.Threshold > 255 {
		return fmt.Errorf("preprocess.threshold must be between 0 and 255")
	}
	if c.Preprocess.Scale < 1 {
		return fmt.Errorf("preprocess.scale must be at least 1")
	}
	if c.Lines.MaxVerticalGap <= 0 {
		return fmt.Errorf("lines.max_vertical_gap must be positive")
	}
	if c.Lines.MinHorizontalGap > c.Lines.MaxHorizontalGap {
		return fmt.Errorf("lines.min_horizontal_gap must not exceed lines.max_horizontal_gap")
	}
	return nil
}

// Clamp forces the local engine tunables into their accepted ranges
func (c *Config) Clamp() {
	bc := types.BackendConfig{
		PageSegMode: c.Tesseract.PageSegMode,
		EngineMode:  c.Tesseract.EngineMode,
		DPI:         c.Tesseract.DPI,
	}.Clamped()
	c.Tesseract.PageSegMode = bc.PageSegMode
	c.Tesseract.EngineMode = bc.EngineMode
	c.Tesseract.DPI = bc.DPI
}

func isBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}

// ResolvedPrompt returns the instruction sent to vision backends: the custom
// prompt when set, otherwise the one for the configured mode.
func (c *Config) ResolvedPrompt() string {
	mode, err := prompts.ParseMode(c.PromptMode)
	if err != nil {
		mode = prompts.ModeExtract
	}
	return prompts.Resolve(mode, c.TranslateTo, c.Prompt)
}

// BackendConfig snapshots the tunables for one submission to backend
func (c *Config) BackendConfig(backend string) types.BackendConfig {
	bc := types.BackendConfig{
		Prompt:      c.ResolvedPrompt(),
		Language:    c.Tesseract.Language,
		PageSegMode: c.Tesseract.PageSegMode,
		EngineMode:  c.Tesseract.EngineMode,
		DPI:         c.Tesseract.DPI,
	}
	switch backend {
	case BackendOllama:
		bc.Model = c.Ollama.Model
	case BackendGemini:
		bc.Model = c.Gemini.Model
	case BackendLlamaCpp:
		bc.Model = c.LlamaCpp.Model
	}
	return bc.Clamped()
}

// ProcessingConfig converts the preprocess section for the processor
func (c *Config) ProcessingConfig() processing.PreprocessConfig {
	return processing.PreprocessConfig{
		Contrast:  c.Preprocess.Contrast,
		BlurSigma: c.Preprocess.BlurSigma,
		Threshold: uint8(c.Preprocess.Threshold),
		Scale:     c.Preprocess.Scale,
	}
}

// GeminiAPIKey returns the configured key, then the key file, then GEMINI_API_KEY
func (c *Config) GeminiAPIKey() string {
	if k := strings.TrimSpace(c.Gemini.APIKey); k != "" {
		return k
	}
	if c.Gemini.APIKeyFile != "" {
		if data, err := os.ReadFile(c.Gemini.APIKeyFile); err == nil {
			if k := strings.TrimSpace(string(data)); k != "" {
				return k
			}
		}
	}
	return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./region-ocr.yaml"
	}
	return filepath.Join(home, ".config", "region-ocr", "config.yaml")
}

// searchPaths lists the config files tried when none is given, in order
func searchPaths() []string {
	return []string{"region-ocr.yaml", GetConfigPath()}
}
