package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/ocrdesk/internal/config"
	"github.com/ironsheep/ocrdesk/internal/document"
	"github.com/ironsheep/ocrdesk/internal/export"
	"github.com/ironsheep/ocrdesk/internal/ocr"
	"github.com/ironsheep/ocrdesk/internal/pipeline"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

type fakeEngine struct {
	probeErr error

	mu       sync.Mutex
	requests []ocr.Request
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Probe(context.Context) (*ocr.EngineInfo, error) {
	if e.probeErr != nil {
		return &ocr.EngineInfo{Name: "fake", Error: e.probeErr.Error()}, e.probeErr
	}
	return &ocr.EngineInfo{Available: true, Name: "fake", Version: "1.0"}, nil
}

func (e *fakeEngine) Languages(context.Context) ([]string, error) {
	return []string{"deu", "eng"}, nil
}

func (e *fakeEngine) Recognize(_ context.Context, req ocr.Request) (*ocr.Result, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	return &ocr.Result{
		Text:       fmt.Sprintf("hello %dx%d", req.Raster.Width, req.Raster.Height),
		Confidence: 75,
		Language:   req.Language,
		Words:      []ocr.Word{{Text: "hello", Confidence: 75}},
	}, nil
}

func (e *fakeEngine) last(t *testing.T) ocr.Request {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	require.NotEmpty(t, e.requests)
	return e.requests[len(e.requests)-1]
}

type fakeRenderer struct{}

func (fakeRenderer) Name() string                { return "fake" }
func (fakeRenderer) Check(context.Context) error { return nil }
func (fakeRenderer) RenderPage(context.Context, string, int, document.RenderOptions) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 30, 10)), nil
}

type fakeClipboard struct {
	image []byte
	text  string
}

func (c *fakeClipboard) ReadImage(context.Context) ([]byte, error) { return c.image, nil }

func (c *fakeClipboard) WriteText(text string) error {
	c.text = text
	return nil
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testEnv runs commands from an empty working directory holding an optional
// ocrdesk.yaml, against fake services.
type testEnv struct {
	dir       string
	engine    *fakeEngine
	clipboard *fakeClipboard
	builds    int
}

func newTestEnv(t *testing.T, configYAML string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	if configYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ocrdesk.yaml"), []byte(configYAML), 0o644))
	}
	return &testEnv{
		dir:       dir,
		engine:    &fakeEngine{},
		clipboard: &fakeClipboard{image: pngBytes(t, 12, 8)},
	}
}

func (e *testEnv) build(cfg *config.Config, logger zerolog.Logger) (*Services, error) {
	e.builds++
	p := pipeline.New(ocr.NewInvoker(e.engine, ocr.WithAutoDetect(cfg.OCR.AutoDetect)),
		pipeline.WithImporter(document.NewImporter(fakeRenderer{})),
		pipeline.WithClipboard(e.clipboard, time.Second),
		pipeline.WithClock(func() time.Time { return fixedNow }),
		pipeline.WithLogger(logger),
	)
	return &Services{
		Pipeline:   p,
		Dispatcher: export.NewDefaultDispatcher(export.Options{PDFFont: cfg.Export.PDFFont}, export.WithClock(func() time.Time { return fixedNow })),
		Renderer:   fakeRenderer{},
		Clipboard:  e.clipboard,
	}, nil
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), NewApp(WithBuilder(e.build)), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (e *testEnv) writeImage(t *testing.T, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, pngBytes(t, width, height), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, "ocr:\n  psm: 99\n")
	res := env.run(t, "", "version")
	assert.Equal(t, ExitOK, res.code, "version runs even with a broken config")
	assert.Equal(t, "ocrdesk dev\nCommit: unknown\nBuild Date: unknown\n", res.stdout)
	assert.Zero(t, env.builds)
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t, "ocr:\n  psm: 99\n")
	res := env.run(t, "", "languages")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "ocr.psm")
}

func TestInvalidOutputFormat(t *testing.T) {
	env := newTestEnv(t, "")
	res := env.run(t, "", "languages", "-o", "xml")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "invalid output format")
}

func TestExtract_Report(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.writeImage(t, "scan.png", 40, 20)

	res := env.run(t, "", "extract", path)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "=== IMAGE OCR RESULTS ===")
	assert.Contains(t, res.stdout, "File: scan.png")
	assert.Contains(t, res.stdout, "\nhello 40x20\n")

	req := env.engine.last(t)
	assert.Equal(t, "eng", req.Language)
	assert.Equal(t, ocr.DefaultPageSegMode, req.PSM)
}

func TestExtract_TextOnly(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.writeImage(t, "scan.png", 40, 20)

	res := env.run(t, "", "extract", path, "--text")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "hello 40x20\n", res.stdout)
}

func TestExtract_SettingsFromConfigAndFlags(t *testing.T) {
	env := newTestEnv(t, "ocr:\n  language: deu\n  psm: 4\n")
	path := env.writeImage(t, "scan.png", 40, 20)

	res := env.run(t, "", "extract", path)
	require.Equal(t, ExitOK, res.code, res.stderr)
	req := env.engine.last(t)
	assert.Equal(t, "deu", req.Language)
	assert.Equal(t, ocr.PageSegMode(4), req.PSM)

	res = env.run(t, "", "extract", path, "--lang", "eng", "--psm", "6", "--oem", "1", "--region", "top-half", "--text")
	require.Equal(t, ExitOK, res.code, res.stderr)
	req = env.engine.last(t)
	assert.Equal(t, "eng", req.Language)
	assert.Equal(t, ocr.PageSegMode(6), req.PSM)
	assert.Equal(t, ocr.EngineMode(1), req.OEM)
	assert.Equal(t, "hello 40x10\n", res.stdout)
}

func TestExtract_JSON(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.writeImage(t, "scan.png", 40, 20)

	res := env.run(t, "", "extract", path, "-o", "json", "--quicksave")
	require.Equal(t, ExitOK, res.code, res.stderr)

	var report pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report), "status lines must not corrupt JSON")
	assert.Equal(t, pipeline.KindImage, report.Kind)
	require.Len(t, report.Pages, 1)
	assert.Equal(t, "hello 40x20", report.Pages[0].Text)
}

func TestExtract_Document(t *testing.T) {
	env := newTestEnv(t, "")
	res := env.run(t, "", "extract", filepath.Join(env.dir, "missing.pdf"))
	assert.Equal(t, ExitInput, res.code)

	corrupt := filepath.Join(env.dir, "corrupt.pdf")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a pdf"), 0o644))
	res = env.run(t, "", "extract", corrupt)
	assert.Equal(t, ExitDocument, res.code)
	assert.Contains(t, res.stderr, "Error:")
}

func TestExtract_Deliver(t *testing.T) {
	env := newTestEnv(t, "export:\n  dir: saved\n  default_format: rtf\n")
	require.NoError(t, os.Mkdir(filepath.Join(env.dir, "saved"), 0o755))
	path := env.writeImage(t, "scan.png", 40, 20)

	res := env.run(t, "", "extract", path, "--text", "--export", "out.html", "--quicksave", "--copy")
	require.Equal(t, ExitOK, res.code, res.stderr)

	html, err := os.ReadFile(filepath.Join(env.dir, "out.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "hello 40x20")

	saved := filepath.Join("saved", "ocr_results_20240102_030405.txt")
	data, err := os.ReadFile(filepath.Join(env.dir, saved))
	require.NoError(t, err)
	assert.Equal(t, "hello 40x20", string(data))

	assert.Equal(t, "hello 40x20", env.clipboard.text)
	assert.Contains(t, res.stdout, "Exported to out.html\n")
	assert.Contains(t, res.stdout, "Saved to "+saved+"\n")
	assert.Contains(t, res.stdout, "Copied 11 characters to the clipboard\n")

	// No extension: export.default_format applies.
	res = env.run(t, "", "extract", path, "--export", "noext", "-q")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Empty(t, res.stdout)
	rtf, err := os.ReadFile(filepath.Join(env.dir, "noext"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(rtf), `{\rtf1`))
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(env *testEnv) []string
		want int
	}{
		{"unsupported", func(env *testEnv) []string { return []string{"extract", "photo.webp"} }, ExitInput},
		{"no args", func(env *testEnv) []string { return []string{"extract"} }, ExitError},
		{"bad language", func(env *testEnv) []string {
			return []string{"extract", env.writeImage(t, "a.png", 4, 4), "--lang", "xyz"}
		}, ExitEngine},
		{"bad export format", func(env *testEnv) []string {
			return []string{"extract", env.writeImage(t, "a.png", 4, 4), "--export", "a.txt", "--format", "odt"}
		}, ExitExport},
		{"unwritable export", func(env *testEnv) []string {
			return []string{"extract", env.writeImage(t, "a.png", 4, 4), "--export", filepath.Join("nodir", "a.txt")}
		}, ExitExport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			res := env.run(t, "", tt.args(env)...)
			assert.Equal(t, tt.want, res.code, res.stderr)
		})
	}
}

func TestExtract_EngineMissing(t *testing.T) {
	env := newTestEnv(t, "")
	env.engine.probeErr = fmt.Errorf("%w: tesseract is not on PATH", ocr.ErrEngineNotFound)
	path := env.writeImage(t, "scan.png", 4, 4)

	res := env.run(t, "", "extract", path)
	assert.Equal(t, ExitEngine, res.code)
	assert.Contains(t, res.stderr, "OCR engine not found")
}

func TestClipboard(t *testing.T) {
	env := newTestEnv(t, "")
	res := env.run(t, "", "clipboard", "--text")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "hello 12x8\n", res.stdout)

	env.clipboard.image = nil
	res = env.run(t, "", "clipboard")
	assert.Equal(t, ExitInput, res.code)
}

func TestExportCommand(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "line one\nline two", "export", "-", "notes.docx", "--title", "Notes")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "Exported to notes.docx\n", res.stdout)
	info, err := os.Stat(filepath.Join(env.dir, "notes.docx"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "in.txt"), []byte("from file"), 0o644))
	res = env.run(t, "", "export", "in.txt", "out.txt", "-o", "json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.JSONEq(t, `{"path":"out.txt"}`, res.stdout)
	data, err := os.ReadFile(filepath.Join(env.dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from file", string(data))

	res = env.run(t, "x", "export", "-", "out.odt")
	assert.Equal(t, ExitExport, res.code)

	res = env.run(t, "", "export", "missing.txt", "out.txt")
	assert.Equal(t, ExitInput, res.code)
}

func TestQuickSaveCommand(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "quick text", "quicksave")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "Saved to ocr_results_20240102_030405.txt\n", res.stdout)

	res = env.run(t, "again", "quicksave", "--dir", ".", "-o", "yaml")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "path: ocr_results_20240102_030405_1.txt\n", res.stdout)

	data, err := os.ReadFile(filepath.Join(env.dir, "ocr_results_20240102_030405.txt"))
	require.NoError(t, err)
	assert.Equal(t, "quick text", string(data))
}

func TestLanguagesCommand(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "", "languages")
	require.Equal(t, ExitOK, res.code, res.stderr)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "CODE")
	assert.Contains(t, lines[1], "deu")
	assert.Contains(t, lines[1], "German")

	res = env.run(t, "", "languages", "-o", "json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.JSONEq(t, `[{"Code":"deu","Name":"German"},{"Code":"eng","Name":"English"}]`, res.stdout)
}

func TestDiagnosticsCommand(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "", "diagnostics")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "=== SYSTEM INFORMATION ===")
	assert.Contains(t, res.stdout, "=== OCR ENGINE ===\nfake 1.0")
	assert.Contains(t, res.stdout, "  - deu (German)")

	res = env.run(t, "", "doctor", "-o", "json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, true, report["engine"].(map[string]interface{})["available"])
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t, "ocr:\n  language: fra\ndocument:\n  password: secret\n")

	res := env.run(t, "", "config", "show")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "language: fra")
	assert.Contains(t, res.stdout, "timeout: 2m0s")
	assert.NotContains(t, res.stdout, "secret")

	res = env.run(t, "", "config", "show", "-o", "json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.NotContains(t, res.stdout, "secret")
	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &cfg))
	assert.Equal(t, "fra", cfg["ocr"].(map[string]interface{})["language"])
	assert.Zero(t, env.builds, "config show needs no engine")
}

func TestServeCommand(t *testing.T) {
	env := newTestEnv(t, "")
	in := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"list_languages"}}` + "\n"

	res := env.run(t, in, "serve")
	require.Equal(t, ExitOK, res.code, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2, "stdout carries only protocol messages")
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, lines[0])
	assert.Contains(t, lines[1], "German")
	assert.Contains(t, res.stderr, "MCP server ready")
}
