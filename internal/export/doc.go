// Package export writes recognized text to files.
//
// A Dispatcher maps each Format to exactly one Writer. Export looks up the
// writer, runs its capability check and only then writes, through a temp
// file that is renamed into place. The capability check is also exposed on
// its own (Check, Available) so callers can report which formats work
// without attempting a write.
//
// Formats:
//   - txt: the exact text, UTF-8
//   - pdf: github.com/go-pdf/fpdf, optional TrueType font for full Unicode
//   - docx: github.com/nguyenthenguyen/docx filling a generated template
//   - rtf: hand-written RTF with \uN escapes
//   - html: html/template page with escaped, pre-wrapped text
//   - xlsx: github.com/xuri/excelize/v2, one line per row
//
// Formatted outputs (everything but txt) carry a title heading and a
// "Generated: <timestamp>" line.
//
// QuickSave writes txt to ocr_results_YYYYMMDD_HHMMSS.txt in a directory.
package export
