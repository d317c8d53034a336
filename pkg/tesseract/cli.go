package tesseract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/menta2k/region-ocr/pkg/types"
)

// DefaultBinary is looked up on PATH when no explicit path is configured
const DefaultBinary = "tesseract"

// CLIEngine runs the tesseract executable, feeding the image on stdin
type CLIEngine struct {
	path   string
	logger *slog.Logger
}

// NewCLIEngine creates an engine for the given executable. An empty path
// resolves "tesseract" on PATH.
func NewCLIEngine(path string, logger *slog.Logger) *CLIEngine {
	if path == "" {
		if p, err := exec.LookPath(DefaultBinary); err == nil {
			path = p
		} else {
			path = DefaultBinary
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIEngine{path: path, logger: logger}
}

// Args builds the command line for one recognition
func Args(cfg types.BackendConfig) []string {
	cfg = cfg.Clamped()
	lang := cfg.Language
	if lang == "" {
		lang = types.DefaultBackendConfig().Language
	}
	return []string{
		"stdin", "stdout",
		"-l", lang,
		"--psm", strconv.Itoa(cfg.PageSegMode),
		"--oem", strconv.Itoa(cfg.EngineMode),
		"--dpi", strconv.Itoa(cfg.DPI),
		"tsv",
	}
}

func (e *CLIEngine) TSV(ctx context.Context, png []byte, cfg types.BackendConfig) (string, error) {
	args := Args(cfg)
	e.logger.Debug("running tesseract", "path", e.path, "args", strings.Join(args, " "), "bytes", len(png))

	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Stdin = bytes.NewReader(png)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %v: %s", ErrEngine, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Languages lists the language packs installed for this engine
func (e *CLIEngine) Languages(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, e.path, "--list-langs").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: list languages: %v", ErrEngine, err)
	}
	return parseLanguageList(string(out)), nil
}

// Languages lists the languages of the tesseract found on PATH
func Languages(ctx context.Context) ([]string, error) {
	return NewCLIEngine("", nil).Languages(ctx)
}

// parseLanguageList drops the "List of available languages" banner
func parseLanguageList(out string) []string {
	var langs []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "List of") || strings.Contains(line, " ") {
			continue
		}
		langs = append(langs, line)
	}
	return langs
}
