// Package document turns PDF files into page rasters for recognition.
//
// Documents are parsed with github.com/ledongthuc/pdf to detect corruption
// and encryption and to read each page's embedded text layer. Pages are
// rasterized by a PageRenderer; the default is poppler's pdftoppm.
//
// # Page Policy
//
// Every physical page is rendered, in order, regardless of its content.
// Scanned pages, vector drawings and pages with a text layer are all
// rasterized the same way and none are skipped, so page N of the result is
// always page N of the file.
//
// # Partial Results
//
// A page that fails to render carries its own error in Page.Err and does not
// stop the pages after it.
package document
