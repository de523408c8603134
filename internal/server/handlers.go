package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/ocrdesk/internal/diagnostics"
	"github.com/ironsheep/ocrdesk/internal/document"
	"github.com/ironsheep/ocrdesk/internal/export"
	"github.com/ironsheep/ocrdesk/internal/imaging"
	"github.com/ironsheep/ocrdesk/internal/ocr"
	"github.com/ironsheep/ocrdesk/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "ocr_file", "export_text").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", params.Name).Msg("Tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Fills omitted settings from the server defaults
//  3. Calls the pipeline, dispatcher or diagnostics
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Recognition
	case "ocr_file":
		return s.handleOCRFile(ctx, args)
	case "ocr_clipboard":
		return s.handleOCRClipboard(ctx, args)
	case "detect_text_regions":
		return s.handleDetectTextRegions(ctx, args)

	// Export
	case "export_text":
		return s.handleExportText(ctx, args)
	case "quick_save":
		return s.handleQuickSave(ctx, args)

	// Environment
	case "list_languages":
		return s.handleListLanguages(ctx)
	case "diagnostics":
		return s.handleDiagnostics(ctx)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals args into v. Missing arguments leave v untouched.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Recognition Handlers ===

// settingsArgs holds the optional OCR settings of a tool call. Pointer
// fields distinguish "not given" from a zero value.
type settingsArgs struct {
	Language          string `json:"language"`
	PSM               *int   `json:"psm"`
	OEM               *int   `json:"oem"`
	Preprocess        *bool  `json:"preprocess"`
	Deskew            *bool  `json:"deskew"`
	AdaptiveThreshold *bool  `json:"adaptive_threshold"`
	Region            string `json:"region"`
}

func (a settingsArgs) apply(base pipeline.Settings) pipeline.Settings {
	settings := base
	if a.Language != "" {
		settings.Language = a.Language
	}
	if a.PSM != nil {
		settings.PSM = ocr.PageSegMode(*a.PSM)
	}
	if a.OEM != nil {
		settings.OEM = ocr.EngineMode(*a.OEM)
	}
	if a.Preprocess != nil {
		settings.Preprocess.Enabled = *a.Preprocess
	}
	if a.Deskew != nil {
		settings.Preprocess.Deskew = *a.Deskew
	}
	if a.AdaptiveThreshold != nil {
		settings.Preprocess.AdaptiveThreshold = *a.AdaptiveThreshold
	}
	if a.Region != "" {
		settings.Region = a.Region
	}
	return settings
}

// ocrResult is the tool result for ocr_file and ocr_clipboard.
type ocrResult struct {
	Text             string  `json:"text"`
	Report           string  `json:"report"`
	Kind             string  `json:"kind"`
	Source           string  `json:"source"`
	Pages            int     `json:"pages"`
	FailedPages      []int   `json:"failed_pages,omitempty"`
	Confidence       float64 `json:"confidence"`
	UsedLanguage     string  `json:"used_language,omitempty"`
	DetectedLanguage string  `json:"detected_language,omitempty"`
}

func newOCRResult(r *pipeline.Report) *ocrResult {
	return &ocrResult{
		Text:             r.Text(),
		Report:           r.Render(),
		Kind:             string(r.Kind),
		Source:           r.Source,
		Pages:            len(r.Pages),
		FailedPages:      r.Failed(),
		Confidence:       r.Confidence,
		UsedLanguage:     r.UsedLanguage,
		DetectedLanguage: r.DetectedLanguage,
	}
}

type ocrFileArgs struct {
	Path string `json:"path"`
	settingsArgs
}

func (s *Server) handleOCRFile(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ocrFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Path) == "" {
		return nil, errors.New("path is required")
	}

	report, err := s.pipeline.ProcessFile(ctx, a.Path, a.apply(s.defaults))
	if err != nil {
		return nil, err
	}
	return newOCRResult(report), nil
}

func (s *Server) handleOCRClipboard(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a settingsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	report, err := s.pipeline.ProcessClipboard(ctx, a.apply(s.defaults))
	if err != nil {
		return nil, err
	}
	return newOCRResult(report), nil
}

type detectArgs struct {
	Path          string   `json:"path"`
	MinConfidence *float64 `json:"min_confidence"`
}

type detectResult struct {
	Width   int                  `json:"width"`
	Height  int                  `json:"height"`
	Regions []imaging.TextRegion `json:"regions"`
	Count   int                  `json:"count"`
}

func (s *Server) handleDetectTextRegions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Path) == "" {
		return nil, errors.New("path is required")
	}
	minConfidence := imaging.DefaultTextConfidence
	if a.MinConfidence != nil {
		minConfidence = *a.MinConfidence
	}

	raster, err := imaging.Normalize(ctx, imaging.FileSource(a.Path))
	if err != nil {
		return nil, err
	}
	regions := imaging.DetectTextRegions(raster, minConfidence)
	if regions == nil {
		regions = []imaging.TextRegion{}
	}
	return &detectResult{
		Width:   raster.Width,
		Height:  raster.Height,
		Regions: regions,
		Count:   len(regions),
	}, nil
}

// === Export Handlers ===

type exportTextArgs struct {
	Text   string `json:"text"`
	Path   string `json:"path"`
	Format string `json:"format"`
	Title  string `json:"title"`
}

type exportResult struct {
	Path   string        `json:"path"`
	Format export.Format `json:"format"`
}

func (s *Server) handleExportText(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a exportTextArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Path) == "" {
		return nil, errors.New("path is required")
	}

	req := export.Request{Text: a.Text, Path: a.Path, Title: a.Title}
	if a.Format != "" {
		f, err := export.ParseFormat(a.Format)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", export.ErrFormatUnavailable, err)
		}
		req.Format = f
	}

	if err := s.dispatcher.Export(ctx, req); err != nil {
		return nil, err
	}
	if req.Format == "" {
		// Export succeeded, so the extension names a format.
		req.Format, _ = export.FormatFromPath(a.Path)
	}
	return &exportResult{Path: a.Path, Format: req.Format}, nil
}

type quickSaveArgs struct {
	Text string `json:"text"`
	Dir  string `json:"dir"`
}

func (s *Server) handleQuickSave(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a quickSaveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	dir := a.Dir
	if dir == "" {
		dir = s.exportDir
	}

	path, err := s.dispatcher.QuickSave(ctx, dir, a.Text)
	if err != nil {
		return nil, err
	}
	return &exportResult{Path: path, Format: export.FormatTXT}, nil
}

// === Environment Handlers ===

type language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type languagesResult struct {
	Languages []language `json:"languages"`
	Fallback  bool       `json:"fallback"`
}

func (s *Server) handleListLanguages(ctx context.Context) (interface{}, error) {
	codes, fallback := s.pipeline.Invoker().Languages(ctx)
	result := &languagesResult{Languages: make([]language, len(codes)), Fallback: fallback}
	for i, code := range codes {
		result.Languages[i] = language{Code: code, Name: ocr.LanguageName(code)}
	}
	return result, nil
}

func (s *Server) handleDiagnostics(ctx context.Context) (interface{}, error) {
	var renderer document.PageRenderer
	if im := s.pipeline.Importer(); im != nil {
		renderer = im.Renderer()
	}
	return diagnostics.Collect(ctx, diagnostics.Sources{
		Invoker:    s.pipeline.Invoker(),
		Renderer:   renderer,
		Dispatcher: s.dispatcher,
	}), nil
}
