// Package report turns resolved document views into a multi-sheet XLSX
// workbook and maps the workbook back into displayable rows.
package report

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/docuflow/textract-export/internal/blockgraph"
)

// Sheet names. The reader and the result view key off these.
const (
	SheetRawText   = "Raw Text"
	SheetKeyValues = "Key-Values"
	SheetTables    = "Tables"
)

// NoTablesMessage is written to the Tables sheet when the document has none.
const NoTablesMessage = "No tables detected in this document."

// Writer produces XLSX bytes from a resolved document.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Workbook builds the three-sheet result workbook:
// "Raw Text" (one row per LINE), "Key-Values" (one row per key block) and
// "Tables" (labeled grids with a two-row gap between them).
func (w *Writer) Workbook(doc blockgraph.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, dataStyle, err := makeStyles(f)
	if err != nil {
		return nil, fmt.Errorf("xlsx styles: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetRawText); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetKeyValues); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetTables); err != nil {
		return nil, err
	}

	w.writeRawText(f, doc.Lines, headerStyle, dataStyle)
	w.writeKeyValues(f, doc.KeyValues, headerStyle, dataStyle)
	w.writeTables(f, doc.Tables, headerStyle, dataStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("report.xlsx.ok",
		"lines", len(doc.Lines),
		"key_values", len(doc.KeyValues),
		"tables", len(doc.Tables),
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

func (w *Writer) writeRawText(f *excelize.File, lines []blockgraph.Line, headerStyle, dataStyle int) {
	setRow(f, SheetRawText, 1, headerStyle, "Page", "Line Text", "Confidence")
	row := 2
	for _, l := range lines {
		setRow(f, SheetRawText, row, dataStyle,
			fmt.Sprintf("%d", l.Page), l.Text, fmtConfidence(l.Confidence))
		row++
	}
	_ = f.SetColWidth(SheetRawText, "A", "A", 8)
	_ = f.SetColWidth(SheetRawText, "B", "B", 80)
	_ = f.SetColWidth(SheetRawText, "C", "C", 14)
}

func (w *Writer) writeKeyValues(f *excelize.File, pairs []blockgraph.KeyValue, headerStyle, dataStyle int) {
	setRow(f, SheetKeyValues, 1, headerStyle, "Page", "Key", "Value", "Confidence")
	row := 2
	for _, kv := range pairs {
		setRow(f, SheetKeyValues, row, dataStyle,
			fmt.Sprintf("%d", kv.Page), kv.Key, kv.Value, fmtConfidence(kv.Confidence))
		row++
	}
	_ = f.SetColWidth(SheetKeyValues, "A", "A", 8)
	_ = f.SetColWidth(SheetKeyValues, "B", "C", 40)
	_ = f.SetColWidth(SheetKeyValues, "D", "D", 14)
}

func (w *Writer) writeTables(f *excelize.File, tables []blockgraph.Table, headerStyle, dataStyle int) {
	if len(tables) == 0 {
		setRow(f, SheetTables, 1, dataStyle, NoTablesMessage)
		return
	}

	row := 1
	for i, t := range tables {
		setRow(f, SheetTables, row, headerStyle, fmt.Sprintf("Table %d", i+1))
		row++
		for r, gridRow := range t.Grid {
			style := dataStyle
			if r == 0 {
				style = headerStyle
			}
			setRow(f, SheetTables, row, style, gridRow...)
			row++
		}
		// Two-row gap between tables.
		row += 2
	}
	_ = f.SetColWidth(SheetTables, "A", "H", 24)
}

// setRow writes one styled row starting at column A.
func setRow(f *excelize.File, sheet string, row, style int, values ...string) {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(sheet, cell, v)
		_ = f.SetCellStyle(sheet, cell, cell, style)
	}
}

func fmtConfidence(c *float64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%.2f%%", *c)
}

func makeStyles(f *excelize.File) (header, data int, err error) {
	thin := func(t, color string) excelize.Border {
		return excelize.Border{Type: t, Color: color, Style: 1}
	}
	header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1E3A5F"}},
		Border: []excelize.Border{
			thin("left", "000000"), thin("right", "000000"),
			thin("top", "000000"), thin("bottom", "000000"),
		},
		Alignment: &excelize.Alignment{Horizontal: "left"},
	})
	if err != nil {
		return 0, 0, err
	}
	data, err = f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			thin("left", "D9D9D9"), thin("right", "D9D9D9"),
			thin("top", "D9D9D9"), thin("bottom", "D9D9D9"),
		},
		Alignment: &excelize.Alignment{WrapText: true},
	})
	if err != nil {
		return 0, 0, err
	}
	return header, data, nil
}
