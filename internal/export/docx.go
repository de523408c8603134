package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nguyenthenguyen/docx"
)

// DOCXWriter writes a Word document with the title as a heading, the
// generated line and the text. Each line of the text becomes its own
// paragraph.
//
// The document is produced by filling placeholders in a minimal package built
// once per process.
type DOCXWriter struct{}

const (
	docxTitleToken     = "OCRDESKTITLETOKEN"
	docxGeneratedToken = "OCRDESKGENERATEDTOKEN"
	docxBodyToken      = "OCRDESKBODYTOKEN"
)

// docxBodyParagraph is replaced as a whole by one paragraph per text line.
const docxBodyParagraph = `<w:p><w:r><w:t xml:space="preserve">` + docxBodyToken + `</w:t></w:r></w:p>`

var docxParts = map[string]string{
	"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
	"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
	"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`,
	"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:spacing w:after="120"/></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="36"/></w:rPr><w:t xml:space="preserve">` + docxTitleToken + `</w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:i/><w:color w:val="666666"/><w:sz w:val="18"/></w:rPr><w:t xml:space="preserve">` + docxGeneratedToken + `</w:t></w:r></w:p>
` + docxBodyParagraph + `
<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1134" w:right="1134" w:bottom="1134" w:left="1134" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>
</w:body>
</w:document>`,
}

var (
	docxTemplateOnce sync.Once
	docxTemplate     []byte
	docxTemplateErr  error
)

// template returns the zipped template package.
func (DOCXWriter) template() ([]byte, error) {
	docxTemplateOnce.Do(func() {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		// Content types first, as Word expects.
		order := []string{"[Content_Types].xml", "_rels/.rels", "word/_rels/document.xml.rels", "word/document.xml"}
		for _, name := range order {
			fw, err := zw.Create(name)
			if err != nil {
				docxTemplateErr = err
				return
			}
			if _, err := io.WriteString(fw, docxParts[name]); err != nil {
				docxTemplateErr = err
				return
			}
		}
		if err := zw.Close(); err != nil {
			docxTemplateErr = err
			return
		}
		docxTemplate = buf.Bytes()
	})
	return docxTemplate, docxTemplateErr
}

// Format implements Writer.
func (DOCXWriter) Format() Format { return FormatDOCX }

// Available implements Writer.
func (d DOCXWriter) Available() error {
	if _, err := d.template(); err != nil {
		return fmt.Errorf("%w: docx template: %v", ErrFormatUnavailable, err)
	}
	return nil
}

// Write implements Writer.
func (d DOCXWriter) Write(w io.Writer, doc Document) error {
	tmpl, err := d.template()
	if err != nil {
		return err
	}

	r, err := docx.ReadDocxFromMemory(bytes.NewReader(tmpl), int64(len(tmpl)))
	if err != nil {
		return fmt.Errorf("failed to open docx template: %w", err)
	}
	defer r.Close()

	edit := r.Editable()
	if !strings.Contains(edit.GetContent(), docxBodyParagraph) {
		return fmt.Errorf("failed to fill docx: body placeholder missing")
	}
	// A single pass keeps placeholder text inside user content literal.
	fill := strings.NewReplacer(
		docxTitleToken, docxEscape(doc.Title),
		docxGeneratedToken, docxEscape(doc.generatedLine()),
		docxBodyParagraph, docxParagraphs(doc.Text),
	)
	edit.SetContent(fill.Replace(edit.GetContent()))

	return edit.Write(w)
}

// docxParagraphs renders text as one plain paragraph per line. Blank lines
// become empty paragraphs.
func docxParagraphs(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			b.WriteString("<w:p/>")
			continue
		}
		b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		b.WriteString(docxEscape(line))
		b.WriteString(`</w:t></w:r></w:p>`)
	}
	return b.String()
}

// docxEscape escapes s as XML character data. Characters XML cannot carry
// are replaced with U+FFFD.
func docxEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
