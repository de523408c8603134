package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// waitDelay bounds how long a killed engine may hold its output pipes open.
const waitDelay = 2 * time.Second

// lookPath is the exec.LookPath implementation used to find the engine.
// Tests replace it to simulate a missing binary.
var lookPath = exec.LookPath

// searchPaths lists the usual install locations probed when the binary is
// not on PATH.
func searchPaths(goos string) []string {
	switch goos {
	case "windows":
		return []string{
			`C:\Program Files\Tesseract-OCR\tesseract.exe`,
			`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
			filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", "Tesseract-OCR", "tesseract.exe"),
		}
	case "darwin":
		return []string{
			"/opt/homebrew/bin/tesseract",
			"/usr/local/bin/tesseract",
			"/opt/local/bin/tesseract",
		}
	default:
		return []string{
			"/usr/bin/tesseract",
			"/usr/local/bin/tesseract",
			"/opt/tesseract/bin/tesseract",
			"/snap/bin/tesseract",
		}
	}
}

// Tesseract runs the tesseract command-line program.
//
// Each recognition writes the raster to a private temp directory, runs
//
//	tesseract <input.png> <outbase> -l <lang> --psm <n> --oem <n> txt tsv
//
// and reads the text and word table back. The process is started with the
// caller's context and killed when it ends.
type Tesseract struct {
	binary         string
	tessdataPrefix string
	logger         zerolog.Logger
}

// NewTesseract returns a command-line engine.
//
// Parameters:
//   - binary: Program name or path. Empty means "tesseract" on PATH, then the
//     platform's usual install locations.
//   - tessdataPrefix: Directory holding *.traineddata files, passed as
//     --tessdata-dir. Empty uses the engine's default.
//   - logger: Receives debug output for each invocation.
func NewTesseract(binary, tessdataPrefix string, logger zerolog.Logger) *Tesseract {
	return &Tesseract{
		binary:         binary,
		tessdataPrefix: tessdataPrefix,
		logger:         logger.With().Str("engine", "tesseract").Logger(),
	}
}

// Name implements Engine.
func (t *Tesseract) Name() string { return "tesseract" }

// resolve finds the engine binary.
func (t *Tesseract) resolve() (string, error) {
	if t.binary != "" && strings.ContainsAny(t.binary, `/\`) {
		if _, err := os.Stat(t.binary); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrEngineNotFound, t.binary, err)
		}
		return t.binary, nil
	}

	name := t.binary
	if name == "" {
		name = "tesseract"
	}
	if path, err := lookPath(name); err == nil {
		return path, nil
	}
	if t.binary != "" {
		return "", fmt.Errorf("%w: %s is not on PATH", ErrEngineNotFound, name)
	}

	for _, candidate := range searchPaths(runtime.GOOS) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: tesseract is not on PATH or in the usual install locations", ErrEngineNotFound)
}

// baseArgs returns options shared by every invocation.
func (t *Tesseract) baseArgs() []string {
	if t.tessdataPrefix == "" {
		return nil
	}
	return []string{"--tessdata-dir", t.tessdataPrefix}
}

// Probe implements Engine by running `tesseract --version`.
func (t *Tesseract) Probe(ctx context.Context) (*EngineInfo, error) {
	info := &EngineInfo{Name: t.Name(), Backend: "command line"}

	path, err := t.resolve()
	if err != nil {
		info.Error = err.Error()
		return info, err
	}
	info.Path = path

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		err = fmt.Errorf("%w: %s --version: %v", ErrEngineNotFound, path, err)
		info.Error = err.Error()
		return info, err
	}

	info.Available = true
	info.Version = parseVersion(string(out))
	return info, nil
}

// parseVersion returns the version from the first line of --version output,
// e.g. "5.3.0" from "tesseract 5.3.0".
func parseVersion(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	line = strings.TrimSpace(line)
	if v, ok := strings.CutPrefix(line, "tesseract "); ok {
		return strings.TrimPrefix(strings.TrimSpace(v), "v")
	}
	return line
}

// Languages implements Engine by running `tesseract --list-langs`.
func (t *Tesseract) Languages(ctx context.Context) ([]string, error) {
	path, err := t.resolve()
	if err != nil {
		return nil, err
	}

	args := append(t.baseArgs(), "--list-langs")
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	return parseLanguageList(string(out)), nil
}

// Recognize implements Engine.
func (t *Tesseract) Recognize(ctx context.Context, req Request) (*Result, error) {
	if req.Raster == nil {
		return nil, fmt.Errorf("%w: no raster", ErrRecognitionFailed)
	}
	path, err := t.resolve()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "ocrdesk-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.png")
	f, err := os.Create(input)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp image: %w", err)
	}
	if err := req.Raster.EncodePNG(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp image: %w", err)
	}

	outbase := filepath.Join(dir, "out")
	args := []string{input, outbase}
	args = append(args, t.baseArgs()...)
	args = append(args,
		"-l", req.Language,
		"--psm", fmt.Sprint(int(req.PSM)),
		"--oem", fmt.Sprint(int(req.OEM)),
		"txt", "tsv",
	)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	t.logger.Debug().
		Str("binary", path).
		Str("language", req.Language).
		Int("psm", int(req.PSM)).
		Int("oem", int(req.OEM)).
		Str("raster", req.Raster.String()).
		Msg("Running tesseract")

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		return nil, classifyRunError(ctx, runErr, stderr.String(), req.Language)
	}

	text, err := os.ReadFile(outbase + ".txt")
	if err != nil {
		return nil, fmt.Errorf("%w: no text output: %v", ErrRecognitionFailed, err)
	}

	result := &Result{
		Text:       cleanText(string(text)),
		Page:       req.Raster.Page,
		Confidence: -1,
		Language:   req.Language,
		PSM:        req.PSM,
		OEM:        req.OEM,
		Engine:     t.Name(),
		Duration:   elapsed,
	}

	if tsv, err := os.Open(outbase + ".tsv"); err == nil {
		words, err := parseTSV(tsv)
		tsv.Close()
		if err != nil {
			t.logger.Warn().Err(err).Msg("Failed to parse word table")
		} else {
			result.Words = words
			result.Confidence = meanConfidence(words)
		}
	}

	t.logger.Debug().
		Dur("elapsed", elapsed).
		Int("chars", len(result.Text)).
		Float64("confidence", result.Confidence).
		Msg("Tesseract finished")

	return result, nil
}

// classifyRunError maps a failed engine run onto the package's sentinels.
func classifyRunError(ctx context.Context, runErr error, stderr, language string) error {
	msg := strings.TrimSpace(stderr)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: engine abandoned: %v", ErrRecognitionFailed, ctxErr)
	}
	if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrEngineNotFound, runErr)
	}
	if strings.Contains(msg, "Failed loading language") ||
		strings.Contains(msg, "Error opening data file") {
		return fmt.Errorf("%w: %s: %s", ErrUnsupportedLanguage, language, firstLine(msg))
	}
	if msg == "" {
		return fmt.Errorf("%w: %v", ErrRecognitionFailed, runErr)
	}
	return fmt.Errorf("%w: %v: %s", ErrRecognitionFailed, runErr, firstLine(msg))
}

// cleanText drops the form feed Tesseract appends after each page and
// trailing whitespace.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\f", "")
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\r' || r == '\t'
	})
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
