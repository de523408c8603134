// Package pipeline connects the input, recognition and reporting steps.
//
// A Pipeline takes an image file, a PDF or the clipboard, turns it into
// rasters, optionally crops and preprocesses each raster, and passes it to
// the OCR invoker. The engine's capability query runs before any input is
// decoded.
//
// PDF pages are recognized concurrently, bounded by WithWorkers, but results
// are stored by page index so a Report always lists pages in physical order.
// A page that fails does not affect the others: it is returned with its error
// set, and the report is still produced.
//
// Report.Render produces the plain-text summary shown by the command line
// and the MCP server; Report.Text is the bare recognized text used for
// exports.
package pipeline
