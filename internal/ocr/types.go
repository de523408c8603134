package ocr

import (
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/ocrdesk/internal/imaging"
)

var (
	// ErrEngineNotFound is returned when the OCR engine binary or library is
	// missing or cannot be started.
	ErrEngineNotFound = errors.New("OCR engine not found")

	// ErrRecognitionFailed is returned when the engine ran but reported an
	// error, exited non-zero or was abandoned on timeout.
	ErrRecognitionFailed = errors.New("recognition failed")

	// ErrUnsupportedLanguage is returned when the requested language has no
	// installed language data.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// PageSegMode controls how the engine partitions a page into text regions
// before recognition. Values match Tesseract's --psm option.
type PageSegMode int

// Page segmentation modes.
const (
	PSMOSDOnly             PageSegMode = 0  // Orientation and script detection only
	PSMAutoOSD             PageSegMode = 1  // Automatic with OSD
	PSMAutoOnly            PageSegMode = 2  // Automatic, no OSD or OCR
	PSMAuto                PageSegMode = 3  // Fully automatic (default)
	PSMSingleColumn        PageSegMode = 4  // Single column of variable sizes
	PSMSingleBlockVertText PageSegMode = 5  // Single uniform block of vertical text
	PSMSingleBlock         PageSegMode = 6  // Single uniform block of text
	PSMSingleLine          PageSegMode = 7  // Single text line
	PSMSingleWord          PageSegMode = 8  // Single word
	PSMCircleWord          PageSegMode = 9  // Single word in a circle
	PSMSingleChar          PageSegMode = 10 // Single character
	PSMSparseText          PageSegMode = 11 // As much text as possible, no order
	PSMSparseTextOSD       PageSegMode = 12 // Sparse text with OSD
	PSMRawLine             PageSegMode = 13 // Single line, bypassing Tesseract hacks
)

const (
	DefaultPageSegMode = PSMAuto
	maxPageSegMode     = PSMRawLine
)

var psmDescriptions = [...]string{
	"Orientation and script detection only",
	"Automatic page segmentation with OSD",
	"Automatic page segmentation, no OSD or OCR",
	"Fully automatic page segmentation (default)",
	"Single column of text of variable sizes",
	"Single uniform block of vertically aligned text",
	"Single uniform block of text",
	"Single text line",
	"Single word",
	"Single word in a circle",
	"Single character",
	"Sparse text",
	"Sparse text with OSD",
	"Raw line",
}

// Valid reports whether m is a mode the engine accepts.
func (m PageSegMode) Valid() bool {
	return m >= 0 && m <= maxPageSegMode
}

func (m PageSegMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("PageSegMode(%d)", int(m))
	}
	return fmt.Sprintf("%d: %s", int(m), psmDescriptions[m])
}

// EngineMode selects the recognizer inside the engine. Values match
// Tesseract's --oem option.
type EngineMode int

// OCR engine modes.
const (
	OEMLegacy     EngineMode = 0 // Legacy engine only
	OEMLSTM       EngineMode = 1 // Neural net LSTM engine only
	OEMLegacyLSTM EngineMode = 2 // Legacy + LSTM
	OEMDefault    EngineMode = 3 // Whatever is available (default)
)

// DefaultEngineMode is used when no engine mode is configured.
const DefaultEngineMode = OEMDefault

var oemDescriptions = [...]string{
	"Legacy engine only",
	"Neural nets LSTM engine only",
	"Legacy + LSTM engines",
	"Default, based on what is available",
}

// Valid reports whether m is a mode the engine accepts.
func (m EngineMode) Valid() bool {
	return m >= OEMLegacy && m <= OEMDefault
}

func (m EngineMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("EngineMode(%d)", int(m))
	}
	return fmt.Sprintf("%d: %s", int(m), oemDescriptions[m])
}

// PageSegModes returns every valid segmentation mode in order.
func PageSegModes() []PageSegMode {
	modes := make([]PageSegMode, 0, maxPageSegMode+1)
	for m := PageSegMode(0); m <= maxPageSegMode; m++ {
		modes = append(modes, m)
	}
	return modes
}

// EngineModes returns every valid engine mode in order.
func EngineModes() []EngineMode {
	return []EngineMode{OEMLegacy, OEMLSTM, OEMLegacyLSTM, OEMDefault}
}

// Request is a single recognition job. Requests are passed by value and not
// modified by the invoker or engines.
type Request struct {
	// Raster is the image to recognize.
	Raster *imaging.Raster

	// Language is a Tesseract language code such as "eng", or several joined
	// with "+" ("eng+deu").
	Language string

	// PSM is the page segmentation mode.
	PSM PageSegMode

	// OEM is the engine mode.
	OEM EngineMode
}

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Word is a recognized word with its location and confidence.
type Word struct {
	// Text is the recognized word.
	Text string `json:"text"`

	// Confidence is the engine's confidence, 0 to 100.
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this word in the raster.
	Bounds Bounds `json:"bounds"`
}

// Result is the outcome of recognizing one raster.
type Result struct {
	// Text is the recognized text with trailing whitespace and page breaks
	// removed.
	Text string `json:"text"`

	// Page is the 1-based source page for document inputs, 0 otherwise.
	Page int `json:"page,omitempty"`

	// Confidence is the mean word confidence, 0 to 100, or -1 when the engine
	// reported none.
	Confidence float64 `json:"confidence"`

	// Language is the language code the engine actually used.
	Language string `json:"language"`

	// DetectedLanguage is the language found by auto-detection, when enabled.
	// It may differ from Language when the detected language is not installed.
	DetectedLanguage string `json:"detected_language,omitempty"`

	// PSM and OEM echo the modes passed to the engine.
	PSM PageSegMode `json:"psm"`
	OEM EngineMode  `json:"oem"`

	// Words holds word-level results when the engine provides them.
	Words []Word `json:"words,omitempty"`

	// Engine names the engine that produced the result.
	Engine string `json:"engine"`

	// Duration is the wall time spent in the engine.
	Duration time.Duration `json:"duration"`
}

// meanConfidence averages word confidences, returning -1 for no words.
func meanConfidence(words []Word) float64 {
	if len(words) == 0 {
		return -1
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
