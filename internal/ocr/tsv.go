package ocr

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// tsvWordLevel is the "level" column value Tesseract uses for word rows.
const tsvWordLevel = 5

// parseTSV reads Tesseract's tsv output and returns the recognized words.
// Rows below word level, rows with confidence -1 and empty words are skipped.
//
// Columns: level page_num block_num par_num line_num word_num left top width
// height conf text.
func parseTSV(r io.Reader) ([]Word, error) {
	var words []Word
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if first {
			first = false
			if strings.HasPrefix(line, "level") {
				continue
			}
		}

		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil || level != tsvWordLevel {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[11:], "\t"))
		if text == "" {
			continue
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		words = append(words, Word{
			Text:       text,
			Confidence: conf,
			Bounds: Bounds{
				X1: left,
				Y1: top,
				X2: left + width,
				Y2: top + height,
			},
		})
	}
	return words, sc.Err()
}
