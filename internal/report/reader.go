package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one workbook sheet mapped back to display rows: the first row is
// treated as the header, every later row becomes header -> value.
type Sheet struct {
	Name string
	Rows []map[string]string
}

// ReadSheets maps every sheet of a workbook to rows, in sheet order.
// All-blank rows are skipped.
func ReadSheets(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := readSheet(f, name)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

// ReadPrimarySheet reads the most useful single sheet for display:
// "Raw Text" if present, then "Tables", then the first sheet.
func ReadPrimarySheet(data []byte) ([]map[string]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	list := f.GetSheetList()
	if len(list) == 0 {
		return nil, nil
	}
	name := list[0]
	for _, candidate := range []string{SheetRawText, SheetTables} {
		if idx, _ := f.GetSheetIndex(candidate); idx != -1 {
			name = candidate
			break
		}
	}
	return readSheet(f, name)
}

func readSheet(f *excelize.File, name string) ([]map[string]string, error) {
	raw, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	headers := raw[0]
	var rows []map[string]string
	for _, r := range raw[1:] {
		m := make(map[string]string, len(headers))
		blank := true
		for i, h := range headers {
			v := ""
			if i < len(r) {
				v = r[i]
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
			m[h] = v
		}
		if !blank {
			rows = append(rows, m)
		}
	}
	return rows, nil
}
