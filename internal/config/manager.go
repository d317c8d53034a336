package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. REGION_OCR_BACKEND
const EnvPrefix = "REGION_OCR"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v      *viper.Viper
	logger *slog.Logger

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads .env files, the config file and environment overrides.
// An empty cfgFile searches ./region-ocr.yaml then the user config dir; a
// missing file is not an error.
func NewManager(cfgFile string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loadDotenv(cfgFile, logger)

	m := &Manager{v: viper.New(), logger: logger}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

// Load is NewManager without hot reload
func Load(cfgFile string) (*Config, error) {
	m, err := NewManager(cfgFile, nil)
	if err != nil {
		return nil, err
	}
	return m.Get(), nil
}

func (m *Manager) initViper(cfgFile string) error {
	setDefaults(m.v, Default())

	m.v.SetEnvPrefix(EnvPrefix)
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	if cfgFile == "" {
		for _, p := range searchPaths() {
			if _, err := os.Stat(p); err == nil {
				cfgFile = p
				break
			}
		}
	}
	if cfgFile == "" {
		m.logger.Debug("no config file found, using defaults")
		return nil
	}

	m.v.SetConfigFile(cfgFile)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	m.logger.Debug("config loaded", "file", m.v.ConfigFileUsed())
	return nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("prompt_mode", d.PromptMode)
	v.SetDefault("translate_to", d.TranslateTo)
	v.SetDefault("prompt", d.Prompt)
	v.SetDefault("job_timeout", d.JobTimeout)
	v.SetDefault("handle_radius", d.HandleRadius)
	v.SetDefault("crop_format", d.CropFormat)

	v.SetDefault("tesseract.engine", d.Tesseract.Engine)
	v.SetDefault("tesseract.path", d.Tesseract.Path)
	v.SetDefault("tesseract.language", d.Tesseract.Language)
	v.SetDefault("tesseract.psm", d.Tesseract.PageSegMode)
	v.SetDefault("tesseract.oem", d.Tesseract.EngineMode)
	v.SetDefault("tesseract.dpi", d.Tesseract.DPI)

	v.SetDefault("preprocess.contrast", d.Preprocess.Contrast)
	v.SetDefault("preprocess.blur_sigma", d.Preprocess.BlurSigma)
	v.SetDefault("preprocess.threshold", d.Preprocess.Threshold)
	v.SetDefault("preprocess.scale", d.Preprocess.Scale)

	v.SetDefault("lines.max_vertical_gap", d.Lines.MaxVerticalGap)
	v.SetDefault("lines.min_horizontal_gap", d.Lines.MinHorizontalGap)
	v.SetDefault("lines.max_horizontal_gap", d.Lines.MaxHorizontalGap)

	v.SetDefault("ollama.url", d.Ollama.URL)
	v.SetDefault("ollama.model", d.Ollama.Model)

	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("gemini.api_key_file", d.Gemini.APIKeyFile)
	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.max_retries", d.Gemini.MaxRetries)
	v.SetDefault("gemini.timeout", d.Gemini.Timeout)

	v.SetDefault("llamacpp.url", d.LlamaCpp.URL)
	v.SetDefault("llamacpp.model", d.LlamaCpp.Model)
	v.SetDefault("llamacpp.api_key", d.LlamaCpp.APIKey)

	v.SetDefault("paddle.socket", d.Paddle.Socket)
}

// load parses the current viper state into a validated Config
func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ConfigFile returns the file in use, or "" when running on defaults
func (m *Manager) ConfigFile() string { return m.v.ConfigFileUsed() }

// OnChange registers a callback for config changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. Invalid edits are
// logged and the previous configuration stays active.
func (m *Manager) WatchConfig() {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			m.logger.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}

		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		m.logger.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

// loadDotenv reads .env next to the config file and in the working
// directory. Variables already set in the environment win.
func loadDotenv(cfgFile string, logger *slog.Logger) {
	candidates := []string{".env"}
	if cfgFile != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(cfgFile), ".env"))
	}
	candidates = append(candidates, filepath.Join(filepath.Dir(GetConfigPath()), ".env"))

	seen := map[string]bool{}
	for _, p := range candidates {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if err := godotenv.Load(abs); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Warn("failed to load .env", "path", abs, "error", err)
			}
			continue
		}
		logger.Debug("loaded .env", "path", abs)
	}
}
