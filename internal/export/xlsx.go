package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter writes a workbook with one sheet: the title in A1, the
// generated line in A2 and one line of text per row from A4.
type XLSXWriter struct{}

const xlsxSheet = "OCR Results"

// Format implements Writer.
func (XLSXWriter) Format() Format { return FormatXLSX }

// Available implements Writer.
func (XLSXWriter) Available() error { return nil }

// Write implements Writer.
func (XLSXWriter) Write(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetCellStr(xlsxSheet, "A1", doc.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", "A1", bold); err != nil {
		return err
	}
	if err := f.SetCellStr(xlsxSheet, "A2", doc.generatedLine()); err != nil {
		return err
	}

	lines := strings.Split(strings.ReplaceAll(doc.Text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(xlsxSheet, cell, line); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(xlsxSheet, "A", "A", 100); err != nil {
		return err
	}

	return f.Write(w)
}
