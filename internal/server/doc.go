// Package server implements the MCP (Model Context Protocol) server for ocrdesk.
//
// This package provides a JSON-RPC 2.0 server that exposes OCR and export
// capabilities through the MCP protocol, so MCP-compatible clients can read
// text out of scans and PDFs and save it in the format a user needs.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Recognition:
//   - ocr_file: Extract text from an image or PDF
//   - ocr_clipboard: Extract text from the clipboard image
//   - detect_text_regions: Locate likely text areas without recognizing them
//
// Export:
//   - export_text: Write text as txt, pdf, docx, rtf, html or xlsx
//   - quick_save: Write text to a new timestamped .txt file
//
// Environment:
//   - list_languages: Installed OCR languages
//   - diagnostics: System, engine, renderer and format availability
//
// OCR tools accept the same settings as the command line (language, psm,
// oem, preprocess, deskew, adaptive_threshold, region). Omitted settings
// come from the defaults given to New via WithDefaults.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A line that is not valid JSON gets a -32700 parse error with a null id.
//
// # Usage
//
// The server is started by `ocrdesk serve`:
//
//	srv := server.New(pipeline, dispatcher, server.WithVersion(version))
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal().Err(err).Msg("server failed")
//	}
//
// Logs go to stderr; stdout carries only protocol messages.
package server
