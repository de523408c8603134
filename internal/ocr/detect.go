package ocr

import (
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// minDetectRunes is the shortest text worth running detection on.
const minDetectRunes = 20

// whatlangToTesseract covers the ISO 639-3 codes whose Tesseract language data
// uses a different name.
var whatlangToTesseract = map[string]string{
	"cmn": "chi_sim",
	"ydd": "yid",
	"pes": "fas",
	"nob": "nor",
}

// DetectLanguage guesses the language of text and returns it as a Tesseract
// language code. ok is false when text is too short or detection is not
// reliable.
func DetectLanguage(text string) (code string, confidence float64, ok bool) {
	if utf8.RuneCountInString(text) < minDetectRunes {
		return "", 0, false
	}

	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", info.Confidence, false
	}

	code = info.Lang.Iso6393()
	if code == "" {
		return "", info.Confidence, false
	}
	if mapped, found := whatlangToTesseract[code]; found {
		code = mapped
	}
	return code, info.Confidence, true
}
