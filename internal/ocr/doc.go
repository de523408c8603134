// Package ocr recognizes text in rasters using Tesseract.
//
// Recognition goes through an Invoker, which wraps an Engine with a
// capability check, a language check, a per-call timeout and optional
// language auto-detection. Two engines are provided:
//
//   - Tesseract: runs the tesseract command-line program (default)
//   - Library: links Tesseract in-process through gosseract
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr
//   - macOS: brew install tesseract
//   - Windows: Download from https://github.com/UB-Mannheim/tesseract/wiki
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// When the program is not on PATH, Tesseract also looks in the platform's
// usual install locations.
//
// The Library engine needs the Tesseract and Leptonica development headers.
// It is compiled into every cgo build on Linux:
//   - Ubuntu/Debian: apt-get install libtesseract-dev libleptonica-dev
//
// Other platforms opt in with the gosseract tag:
//
//	CGO_ENABLED=1 go build -tags gosseract
//
// Builds without cgo, such as CGO_ENABLED=0 release binaries, leave it out and
// NewLibrary fails with ErrLibraryNotEnabled. The command-line engine works in
// every build.
//
// # Modes
//
// Page segmentation modes 0-13 and engine modes 0-3 are passed to the engine
// unchanged. The defaults are PSM 3 (fully automatic) and OEM 3 (whatever is
// available).
//
// # Error Handling
//
// Every failure wraps one of:
//   - ErrEngineNotFound: the engine is missing or cannot start
//   - ErrUnsupportedLanguage: no language data for the requested code
//   - ErrRecognitionFailed: the engine failed, exited non-zero or timed out
//
// None of them are retried.
package ocr
