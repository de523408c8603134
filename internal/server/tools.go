package server

import (
	"strings"

	"github.com/ironsheep/ocrdesk/internal/export"
	"github.com/ironsheep/ocrdesk/internal/imaging"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ocrProperties returns the schema properties shared by the OCR tools,
// merged with extra.
func ocrProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"language": map[string]interface{}{
			"type":        "string",
			"description": "Tesseract language code, or several joined with '+' (e.g. 'eng', 'deu+eng'). Default from configuration",
		},
		"psm": map[string]interface{}{
			"type":        "integer",
			"minimum":     0,
			"maximum":     13,
			"description": "Page segmentation mode (0-13). Default 3, fully automatic",
		},
		"oem": map[string]interface{}{
			"type":        "integer",
			"minimum":     0,
			"maximum":     3,
			"description": "OCR engine mode (0-3). Default 3, based on what is available",
		},
		"preprocess": map[string]interface{}{
			"type":        "boolean",
			"description": "Convert to grayscale and binarize before recognition",
		},
		"deskew": map[string]interface{}{
			"type":        "boolean",
			"description": "Straighten rotated scans (requires preprocess)",
		},
		"adaptive_threshold": map[string]interface{}{
			"type":        "boolean",
			"description": "Use local instead of global thresholding (requires preprocess)",
		},
		"region": map[string]interface{}{
			"type":        "string",
			"description": "Restrict recognition to a region: a name (" + regionNames() + ") or 'x1,y1,x2,y2' in pixels",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// regionNames lists the named regions for schema descriptions.
func regionNames() string {
	return strings.Join(imaging.RegionNames(), ", ")
}

func formatNames() []string {
	names := make([]string, len(export.AllFormats))
	for i, f := range export.AllFormats {
		names[i] = string(f)
	}
	return names
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Recognition
		{
			Name:        "ocr_file",
			Description: "Extract text from an image (PNG, JPEG, GIF, BMP, TIFF) or a PDF. PDF pages are recognized in order; a page that fails is reported without aborting the others. Returns the recognized text, confidence and a formatted report.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": ocrProperties(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image or PDF file",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "ocr_clipboard",
			Description: "Extract text from the image currently on the system clipboard.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": ocrProperties(nil),
			},
		},

		{
			Name:        "detect_text_regions",
			Description: "Find the areas of an image likely to contain text, without recognizing it. Useful for choosing a region before ocr_file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"minimum":     0,
						"maximum":     1,
						"description": "Minimum region score (0-1). Default 0.3",
					},
				},
				"required": []string{"path"},
			},
		},

		// Export
		{
			Name:        "export_text",
			Description: "Write text to a file as txt, pdf, docx, rtf, html or xlsx. The format is inferred from the file extension when not given. The destination is replaced atomically.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to export",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute destination path",
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        formatNames(),
						"description": "Output format. Default inferred from the path extension",
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Document title for formats that carry one. Default 'OCR Results'",
					},
				},
				"required": []string{"text", "path"},
			},
		},
		{
			Name:        "quick_save",
			Description: "Save text to a timestamped ocr_results_YYYYMMDD_HHMMSS.txt file without choosing a name. An existing file is never overwritten.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to save",
					},
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Destination directory. Default from configuration",
					},
				},
				"required": []string{"text"},
			},
		},

		// Environment
		{
			Name:        "list_languages",
			Description: "List the OCR languages installed for the engine, with their names.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "diagnostics",
			Description: "Report the system, OCR engine, PDF renderer and export format availability, with installation hints for anything missing.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
