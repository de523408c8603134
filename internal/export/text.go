package export

import (
	"html/template"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
)

// TextWriter writes the text exactly as given, UTF-8 encoded, with no
// heading.
type TextWriter struct{}

// Format implements Writer.
func (TextWriter) Format() Format { return FormatTXT }

// Available implements Writer.
func (TextWriter) Available() error { return nil }

// Write implements Writer.
func (TextWriter) Write(w io.Writer, doc Document) error {
	_, err := io.WriteString(w, doc.Text)
	return err
}

// HTMLWriter writes a standalone, styled HTML page. The text is escaped and
// shown in a pre-wrapped block so line breaks and spacing survive.
type HTMLWriter struct{}

var htmlTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2em auto; max-width: 50em; color: #222; }
h1 { border-bottom: 1px solid #ccc; padding-bottom: .3em; }
.generated { color: #666; font-size: .9em; }
.content { white-space: pre-wrap; font-family: Menlo, Consolas, monospace; background: #f7f7f7; border: 1px solid #ddd; padding: 1em; line-height: 1.4; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="generated">{{.Generated}}</p>
<div class="content">{{.Text}}</div>
</body>
</html>
`))

// Format implements Writer.
func (HTMLWriter) Format() Format { return FormatHTML }

// Available implements Writer.
func (HTMLWriter) Available() error { return nil }

// Write implements Writer.
func (HTMLWriter) Write(w io.Writer, doc Document) error {
	return htmlTemplate.Execute(w, struct {
		Title, Generated, Text string
	}{doc.Title, doc.generatedLine(), doc.Text})
}

// RTFWriter writes Rich Text Format with a bold title, the generated line and
// the text. Non-ASCII characters are written as \uN escapes, so any Unicode
// text round-trips.
type RTFWriter struct{}

// Format implements Writer.
func (RTFWriter) Format() Format { return FormatRTF }

// Available implements Writer.
func (RTFWriter) Available() error { return nil }

// Write implements Writer.
func (RTFWriter) Write(w io.Writer, doc Document) error {
	var b strings.Builder
	b.WriteString(`{\rtf1\ansi\ansicpg1252\deff0\uc1` + "\n")
	b.WriteString(`{\fonttbl{\f0\fswiss Helvetica;}{\f1\fmodern Courier New;}}` + "\n")
	b.WriteString(`\viewkind4\pard\f0\fs32\b `)
	b.WriteString(rtfEscape(doc.Title))
	b.WriteString(`\b0\par` + "\n")
	b.WriteString(`\fs18 `)
	b.WriteString(rtfEscape(doc.generatedLine()))
	b.WriteString(`\par\par` + "\n")
	b.WriteString(`\f1\fs22 `)
	b.WriteString(rtfEscape(doc.Text))
	b.WriteString("\n}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// rtfEscape escapes control characters and encodes non-ASCII runes as
// signed 16-bit \uN escapes with a "?" fallback.
func rtfEscape(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '{' || r == '}':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString("\\par\n")
		case r == '\t':
			b.WriteString("\\tab ")
		case r < 0x20:
			// other control characters have no RTF meaning
		case r < 0x80:
			b.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			writeRTFUnicode(&b, hi)
			writeRTFUnicode(&b, lo)
		default:
			writeRTFUnicode(&b, r)
		}
	}
	return b.String()
}

func writeRTFUnicode(b *strings.Builder, r rune) {
	b.WriteString("\\u")
	b.WriteString(strconv.Itoa(int(int16(uint16(r)))))
	b.WriteByte('?')
}
