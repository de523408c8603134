package ocr

import (
	"context"
	"sort"
	"strings"
)

// Engine is an OCR backend.
//
// Engines are stateless between calls and safe for concurrent use. They
// report failures with the package's sentinel errors so callers can tell a
// missing engine from a failed recognition.
type Engine interface {
	// Name identifies the engine ("tesseract", "gosseract").
	Name() string

	// Probe reports whether the engine can run and returns its details.
	// A missing engine fails with ErrEngineNotFound.
	Probe(ctx context.Context) (*EngineInfo, error)

	// Languages lists the installed language codes.
	Languages(ctx context.Context) ([]string, error)

	// Recognize runs recognition on req.Raster.
	Recognize(ctx context.Context, req Request) (*Result, error)
}

// EngineInfo describes an engine installation.
type EngineInfo struct {
	Available bool   `json:"available"`
	Name      string `json:"name"`
	Backend   string `json:"backend"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FallbackLanguages is offered when the engine cannot list its languages.
var FallbackLanguages = []string{"eng", "por", "spa", "fra", "deu"}

// DefaultLanguage is the language used when none is configured.
const DefaultLanguage = "eng"

var languageNames = map[string]string{
	"afr":     "Afrikaans",
	"ara":     "Arabic",
	"bul":     "Bulgarian",
	"ces":     "Czech",
	"chi_sim": "Chinese (Simplified)",
	"chi_tra": "Chinese (Traditional)",
	"dan":     "Danish",
	"deu":     "German",
	"ell":     "Greek",
	"eng":     "English",
	"est":     "Estonian",
	"fin":     "Finnish",
	"fra":     "French",
	"heb":     "Hebrew",
	"hin":     "Hindi",
	"hrv":     "Croatian",
	"hun":     "Hungarian",
	"ind":     "Indonesian",
	"ita":     "Italian",
	"jpn":     "Japanese",
	"kor":     "Korean",
	"lat":     "Latin",
	"lav":     "Latvian",
	"lit":     "Lithuanian",
	"nld":     "Dutch",
	"nor":     "Norwegian",
	"pol":     "Polish",
	"por":     "Portuguese",
	"ron":     "Romanian",
	"rus":     "Russian",
	"slk":     "Slovak",
	"slv":     "Slovenian",
	"spa":     "Spanish",
	"srp":     "Serbian",
	"swe":     "Swedish",
	"tha":     "Thai",
	"tur":     "Turkish",
	"ukr":     "Ukrainian",
	"vie":     "Vietnamese",
}

// LanguageName returns the English name of a Tesseract language code, or the
// code itself when it is not known.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// parseLanguageList extracts language codes from `tesseract --list-langs`
// output. The header line and the "osd" pseudo-language are dropped and the
// result is sorted.
func parseLanguageList(out string) []string {
	var langs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, " ") || strings.HasSuffix(line, ":") {
			continue
		}
		if line == "osd" {
			continue
		}
		langs = append(langs, line)
	}
	sort.Strings(langs)
	return langs
}

// splitLanguages splits a "+"-joined language spec into its codes.
func splitLanguages(spec string) []string {
	var codes []string
	for _, c := range strings.Split(spec, "+") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}
