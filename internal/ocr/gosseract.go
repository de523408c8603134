//go:build cgo && (linux || gosseract)

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"
)

// LibraryAvailable reports whether this build links the Tesseract library.
const LibraryAvailable = true

// Library runs Tesseract in-process through gosseract.
//
// A new client is created per call. gosseract clients are not safe for
// concurrent use and hold native memory that must be released with Close.
//
// The engine mode is fixed by the library's initialization and the OEM field
// of a Request is ignored.
type Library struct {
	tessdataPrefix string
	logger         zerolog.Logger
}

// NewLibrary returns the in-process engine.
func NewLibrary(tessdataPrefix string, logger zerolog.Logger) (*Library, error) {
	return &Library{
		tessdataPrefix: tessdataPrefix,
		logger:         logger.With().Str("engine", "gosseract").Logger(),
	}, nil
}

// Name implements Engine.
func (l *Library) Name() string { return "gosseract" }

func (l *Library) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if l.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(l.tessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: tessdata prefix: %v", ErrEngineNotFound, err)
		}
	}
	return client, nil
}

// Probe implements Engine.
func (l *Library) Probe(_ context.Context) (*EngineInfo, error) {
	client, err := l.newClient()
	if err != nil {
		return &EngineInfo{Name: l.Name(), Backend: "gosseract (linked)", Error: err.Error()}, err
	}
	defer client.Close()

	return &EngineInfo{
		Available: true,
		Name:      l.Name(),
		Backend:   "gosseract (linked)",
		Path:      l.tessdataPrefix,
		Version:   client.Version(),
	}, nil
}

// Languages implements Engine.
func (l *Library) Languages(_ context.Context) ([]string, error) {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	langs = slices.DeleteFunc(langs, func(s string) bool { return s == "osd" })
	slices.Sort(langs)
	return langs, nil
}

// Recognize implements Engine.
func (l *Library) Recognize(ctx context.Context, req Request) (*Result, error) {
	if req.Raster == nil {
		return nil, fmt.Errorf("%w: no raster", ErrRecognitionFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}

	var buf bytes.Buffer
	if err := req.Raster.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client, err := l.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetLanguage(splitLanguages(req.Language)...); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedLanguage, req.Language, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(req.PSM)); err != nil {
		return nil, fmt.Errorf("%w: page segmentation mode %d: %v", ErrRecognitionFailed, req.PSM, err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: failed to set image: %v", ErrRecognitionFailed, err)
	}

	start := time.Now()
	text, err := client.Text()
	if err != nil {
		if strings.Contains(err.Error(), "language") {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedLanguage, req.Language, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}

	result := &Result{
		Text:       cleanText(text),
		Page:       req.Raster.Page,
		Confidence: -1,
		Language:   req.Language,
		PSM:        req.PSM,
		OEM:        req.OEM,
		Engine:     l.Name(),
	}

	// Return just text if boxes fail
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		l.logger.Debug().Err(err).Msg("Word boxes unavailable")
	} else {
		words := make([]Word, 0, len(boxes))
		for _, box := range boxes {
			if box.Word == "" {
				continue
			}
			words = append(words, Word{
				Text:       box.Word,
				Confidence: box.Confidence,
				Bounds: Bounds{
					X1: box.Box.Min.X,
					Y1: box.Box.Min.Y,
					X2: box.Box.Max.X,
					Y2: box.Box.Max.Y,
				},
			})
		}
		result.Words = words
		result.Confidence = meanConfidence(words)
	}
	result.Duration = time.Since(start)

	return result, nil
}
