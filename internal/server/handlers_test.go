package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/ocrdesk/internal/imaging"
	"github.com/ironsheep/ocrdesk/internal/ocr"
	"github.com/ironsheep/ocrdesk/internal/pipeline"
)

func TestToolsCall_InvalidParams(t *testing.T) {
	s, _ := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`"bad"`),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestToolsCall_UnknownTool(t *testing.T) {
	s, _ := newTestServer(t)
	_, mcpErr := callTool(t, s, "image_load", map[string]string{"path": "/x.png"})
	require.NotNil(t, mcpErr)
	assert.Equal(t, -32000, mcpErr.Code)
	assert.Equal(t, "unknown tool: image_load", mcpErr.Data)
}

func TestOCRFile(t *testing.T) {
	s, engine := newTestServer(t)
	path := writePNG(t, 40, 20)

	result, mcpErr := callTool(t, s, "ocr_file", map[string]interface{}{
		"path":     path,
		"language": "deu",
		"psm":      6,
		"oem":      1,
	})
	require.Nil(t, mcpErr)

	assert.Equal(t, "hello 40x20", result["text"])
	assert.Equal(t, "image", result["kind"])
	assert.Equal(t, float64(1), result["pages"])
	assert.Equal(t, float64(88), result["confidence"])
	assert.Equal(t, "deu", result["used_language"])
	assert.NotContains(t, result, "failed_pages")
	assert.Contains(t, result["report"], "=== IMAGE OCR RESULTS ===")
	assert.Contains(t, result["report"], "PSM: 6: ")

	req := engine.last(t)
	assert.Equal(t, "deu", req.Language)
	assert.Equal(t, ocr.PageSegMode(6), req.PSM)
	assert.Equal(t, ocr.EngineMode(1), req.OEM)
}

func TestOCRFile_Defaults(t *testing.T) {
	defaults := pipeline.DefaultSettings()
	defaults.PSM = ocr.PageSegMode(4)
	defaults.Region = "left-half"
	s, engine := newTestServer(t, WithDefaults(defaults))

	result, mcpErr := callTool(t, s, "ocr_file", map[string]interface{}{"path": writePNG(t, 40, 20)})
	require.Nil(t, mcpErr)
	assert.Equal(t, "hello 20x20", result["text"])

	req := engine.last(t)
	assert.Equal(t, "eng", req.Language)
	assert.Equal(t, ocr.PageSegMode(4), req.PSM)
}

func TestOCRFile_Document(t *testing.T) {
	s, _ := newTestServer(t)
	path := filepath.Join(t.TempDir(), "scan.pdf")
	writePDF(t, path, 2)

	result, mcpErr := callTool(t, s, "ocr_file", map[string]interface{}{"path": path})
	require.Nil(t, mcpErr)
	assert.Equal(t, "document", result["kind"])
	assert.Equal(t, float64(2), result["pages"])
	assert.Equal(t, "hello 30x10\n\nhello 30x10", result["text"])
}

func TestOCRFile_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing path", map[string]interface{}{}, "path is required"},
		{"unsupported", map[string]interface{}{"path": "/tmp/file.webp"}, imaging.ErrUnsupportedFormat.Error()},
		{"bad psm", map[string]interface{}{"path": writePNG(t, 4, 4), "psm": 20}, "20"},
		{"bad language", map[string]interface{}{"path": writePNG(t, 4, 4), "language": "klingon"}, ocr.ErrUnsupportedLanguage.Error()},
		{"bad region", map[string]interface{}{"path": writePNG(t, 4, 4), "region": "middle"}, "region"},
		{"wrong type", map[string]interface{}{"path": 42}, "invalid arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mcpErr := callTool(t, s, "ocr_file", tt.args)
			require.NotNil(t, mcpErr)
			assert.Equal(t, -32000, mcpErr.Code)
			assert.Contains(t, mcpErr.Data, tt.want)
		})
	}
}

func TestOCRClipboard(t *testing.T) {
	s, _ := newTestServer(t)

	result, mcpErr := callTool(t, s, "ocr_clipboard", nil)
	require.Nil(t, mcpErr)
	assert.Equal(t, "clipboard", result["kind"])
	assert.Equal(t, "hello 12x8", result["text"])
	assert.Contains(t, result["report"], "=== CLIPBOARD OCR RESULTS ===")
}

func TestDetectTextRegions(t *testing.T) {
	s, engine := newTestServer(t)

	img := image.NewGray(image.Rect(0, 0, 400, 200))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	for x := 50; x+3 <= 350; x += 8 {
		draw.Draw(img, image.Rect(x, 80, x+3, 92), &image.Uniform{color.Black}, image.Point{}, draw.Src)
	}
	path := filepath.Join(t.TempDir(), "line.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	result, mcpErr := callTool(t, s, "detect_text_regions", map[string]string{"path": path})
	require.Nil(t, mcpErr)
	assert.Equal(t, float64(400), result["width"])
	assert.Equal(t, float64(200), result["height"])
	assert.GreaterOrEqual(t, result["count"], float64(1))
	assert.NotEmpty(t, result["regions"])

	result, mcpErr = callTool(t, s, "detect_text_regions", map[string]interface{}{
		"path":           writePNG(t, 300, 100),
		"min_confidence": 0.5,
	})
	require.Nil(t, mcpErr)
	assert.Equal(t, float64(0), result["count"])
	assert.Equal(t, []interface{}{}, result["regions"])

	_, mcpErr = callTool(t, s, "detect_text_regions", map[string]string{})
	require.NotNil(t, mcpErr)
	assert.Equal(t, "path is required", mcpErr.Data)

	assert.Empty(t, engine.requests, "detection does not run recognition")
}

func TestExportText(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "out.html")
	result, mcpErr := callTool(t, s, "export_text", map[string]interface{}{
		"text": "a < b", "path": path, "title": "Scan",
	})
	require.Nil(t, mcpErr)
	assert.Equal(t, path, result["path"])
	assert.Equal(t, "html", result["format"])
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "a &lt; b")
	assert.Contains(t, string(data), "<title>Scan</title>")

	path = filepath.Join(dir, "notes.dat")
	result, mcpErr = callTool(t, s, "export_text", map[string]interface{}{
		"text": "hi", "path": path, "format": "RTF",
	})
	require.Nil(t, mcpErr)
	assert.Equal(t, "rtf", result["format"])
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > 6 && string(data[:6]) == `{\rtf1`)
}

func TestExportText_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing path", map[string]interface{}{"text": "x"}, "path is required"},
		{"unknown format", map[string]interface{}{"text": "x", "path": filepath.Join(dir, "a.txt"), "format": "odt"}, "export format unavailable"},
		{"unknown extension", map[string]interface{}{"text": "x", "path": filepath.Join(dir, "a.odt")}, "export format unavailable"},
		{"missing directory", map[string]interface{}{"text": "x", "path": filepath.Join(dir, "no", "a.txt")}, "export write failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mcpErr := callTool(t, s, "export_text", tt.args)
			require.NotNil(t, mcpErr)
			assert.Contains(t, mcpErr.Data, tt.want)
		})
	}
}

func TestQuickSave(t *testing.T) {
	dir := t.TempDir()
	s, _ := newTestServer(t, WithExportDir(dir))

	result, mcpErr := callTool(t, s, "quick_save", map[string]interface{}{"text": "saved text"})
	require.Nil(t, mcpErr)
	want := filepath.Join(dir, "ocr_results_20240102_030405.txt")
	assert.Equal(t, want, result["path"])
	assert.Equal(t, "txt", result["format"])
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "saved text", string(data))

	other := t.TempDir()
	result, mcpErr = callTool(t, s, "quick_save", map[string]interface{}{"text": "x", "dir": other})
	require.Nil(t, mcpErr)
	assert.Equal(t, filepath.Join(other, "ocr_results_20240102_030405.txt"), result["path"])
}

func TestListLanguages(t *testing.T) {
	s, _ := newTestServer(t)
	result, mcpErr := callTool(t, s, "list_languages", nil)
	require.Nil(t, mcpErr)

	assert.Equal(t, false, result["fallback"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"code": "deu", "name": "German"},
		map[string]interface{}{"code": "eng", "name": "English"},
	}, result["languages"])
}

func TestDiagnostics(t *testing.T) {
	s, _ := newTestServer(t)
	result, mcpErr := callTool(t, s, "diagnostics", map[string]interface{}{})
	require.Nil(t, mcpErr)

	engine := result["engine"].(map[string]interface{})
	assert.Equal(t, true, engine["available"])
	assert.Equal(t, "fake", engine["name"])

	renderer := result["renderer"].(map[string]interface{})
	assert.Equal(t, true, renderer["available"])

	assert.Len(t, result["formats"], 6)
}

func TestSettingsArgs_Apply(t *testing.T) {
	base := pipeline.DefaultSettings()
	six, no, yes := 6, false, true

	assert.Equal(t, base, settingsArgs{}.apply(base))

	got := settingsArgs{
		Language:          "fra",
		PSM:               &six,
		Preprocess:        &no,
		AdaptiveThreshold: &yes,
		Region:            "center",
	}.apply(base)
	assert.Equal(t, "fra", got.Language)
	assert.Equal(t, ocr.PageSegMode(6), got.PSM)
	assert.Equal(t, base.OEM, got.OEM)
	assert.False(t, got.Preprocess.Enabled)
	assert.True(t, got.Preprocess.AdaptiveThreshold)
	assert.False(t, got.Preprocess.Deskew)
	assert.Equal(t, "center", got.Region)
}

func TestDecodeArgs(t *testing.T) {
	var a quickSaveArgs
	assert.NoError(t, decodeArgs(nil, &a))
	assert.NoError(t, decodeArgs(json.RawMessage("null"), &a))
	assert.Error(t, decodeArgs(json.RawMessage("[1]"), &a))
	require.NoError(t, decodeArgs(json.RawMessage(`{"text":"t","dir":"d"}`), &a))
	assert.Equal(t, quickSaveArgs{Text: "t", Dir: "d"}, a)
}
