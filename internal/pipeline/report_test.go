package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironsheep/ocrdesk/internal/imaging"
	"github.com/ironsheep/ocrdesk/internal/ocr"
)

func TestReport_RenderImageHeader(t *testing.T) {
	r := &Report{
		Kind:     KindImage,
		Name:     "receipt.png",
		FileSize: 2048,
		Width:    640,
		Height:   480,
		Settings: Settings{
			Language:   "eng",
			PSM:        ocr.PSMAuto,
			OEM:        ocr.OEMDefault,
			Preprocess: imaging.PreprocessOptions{Enabled: true, Deskew: true},
			Region:     "top-half",
		},
		DetectedLanguage: "deu",
		UsedLanguage:     "deu",
		Confidence:       87.456,
		Pages:            []PageResult{{Text: "Grüße"}},
		Processed:        fixedNow,
	}

	want := strings.Join([]string{
		"=== IMAGE OCR RESULTS ===",
		"File: receipt.png",
		"File size: 2.0 KB",
		"Image size: 640x480",
		"Language (Selected): eng",
		"Language (Detected): deu",
		"Language (OCR Used): deu",
		"PSM: 3: Fully automatic page segmentation (default)",
		"OEM: 3: Default, based on what is available",
		"Preprocessing Enabled: true",
		"  - Deskewing: true",
		"  - Adaptive Threshold: false",
		"Region: top-half",
		"OCR Confidence: 87.46%",
		"Characters found: 5",
		"Processed: 2024-05-06 07:08:09",
		reportRule,
		"",
		"Grüße",
		"",
	}, "\n")
	assert.Equal(t, want, r.Render())
}

func TestReport_RenderDocumentPages(t *testing.T) {
	r := &Report{
		Kind:     KindDocument,
		Name:     "scan.pdf",
		Settings: Settings{Language: "eng"},
		Pages: []PageResult{
			{Index: 1, Text: "first", TextLayer: "layer one", Confidence: 95},
			{Index: 2, Confidence: -1},
			{Index: 3, Err: errors.New("boom"), Confidence: -1},
		},
		Confidence: -1,
		Processed:  fixedNow,
	}

	out := r.Render()
	assert.Contains(t, out, "=== PDF OCR RESULTS ===")
	assert.Contains(t, out, "Pages: 3")
	assert.NotContains(t, out, "Image size")
	assert.Contains(t, out, "Language (Detected): none")
	assert.Contains(t, out, "Language (OCR Used): eng")
	assert.Contains(t, out, "Preprocessing Enabled: false\nOCR Confidence: n/a")
	assert.Contains(t, out, "=== Page 1 - Regular Text (Directly Extracted) ===\nlayer one\n")
	assert.Contains(t, out, "=== Page 1 - OCR Results (confidence 95.00%) ===\nfirst\n")
	assert.Contains(t, out, "=== Page 2 - OCR Results (no text found) ===")
	assert.Contains(t, out, "=== Page 3 - Error: boom ===")
	assert.Contains(t, out, "Failed pages: 3")
	assert.NotContains(t, out, "No text found. Try:")

	// Page sections keep physical order.
	assert.Less(t, strings.Index(out, "Page 1 - OCR"), strings.Index(out, "Page 2 - OCR"))
	assert.Less(t, strings.Index(out, "Page 2 - OCR"), strings.Index(out, "Page 3 - Error"))
}

func TestReport_TextSkipsFailedAndEmptyPages(t *testing.T) {
	r := &Report{Pages: []PageResult{
		{Index: 1, Text: "a"},
		{Index: 2, Text: "  "},
		{Index: 3, Text: "stale", Err: errors.New("x")},
		{Index: 4, Text: "b"},
	}}
	assert.Equal(t, "a\n\nb", r.Text())
	assert.Equal(t, []int{3}, r.Failed())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}
