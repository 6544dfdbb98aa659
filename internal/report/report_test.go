package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/textract-export/internal/blockgraph"
)

func conf(v float64) *float64 { return &v }

func buildWorkbook(t *testing.T, doc blockgraph.Document) []byte {
	t.Helper()
	data, err := NewWriter(nil).Workbook(doc)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	return data
}

func TestWorkbook_SheetLayout(t *testing.T) {
	doc := blockgraph.Document{
		Lines: []blockgraph.Line{
			{Page: 1, Text: "Invoice #42", Confidence: conf(99.127)},
			{Page: 2, Text: "Thanks for your business"},
		},
		KeyValues: []blockgraph.KeyValue{
			{Page: 1, Key: "Total", Value: "123.45", Confidence: conf(87.5)},
		},
		Tables: []blockgraph.Table{
			{Page: 1, Grid: [][]string{{"Item", "Qty"}, {"Widget", "3"}}},
			{Page: 2, Grid: [][]string{{"Only"}}},
		},
	}

	sheets, err := ReadSheets(buildWorkbook(t, doc))
	require.NoError(t, err)
	require.Len(t, sheets, 3)
	assert.Equal(t, SheetRawText, sheets[0].Name)
	assert.Equal(t, SheetKeyValues, sheets[1].Name)
	assert.Equal(t, SheetTables, sheets[2].Name)

	raw := sheets[0].Rows
	require.Len(t, raw, 2)
	assert.Equal(t, "1", raw[0]["Page"])
	assert.Equal(t, "Invoice #42", raw[0]["Line Text"])
	assert.Equal(t, "99.13%", raw[0]["Confidence"])
	assert.Equal(t, "", raw[1]["Confidence"])

	kv := sheets[1].Rows
	require.Len(t, kv, 1)
	assert.Equal(t, "Total", kv[0]["Key"])
	assert.Equal(t, "123.45", kv[0]["Value"])
	assert.Equal(t, "87.50%", kv[0]["Confidence"])
}

func TestWorkbook_TablesSheetLabelsAndGaps(t *testing.T) {
	doc := blockgraph.Document{
		Tables: []blockgraph.Table{
			{Grid: [][]string{{"A", "B"}, {"C", ""}}},
			{Grid: [][]string{{"X"}}},
		},
	}
	data := buildWorkbook(t, doc)

	// Raw cell layout: label, grid rows, two-row gap, next label.
	sheets, err := ReadSheets(data)
	require.NoError(t, err)
	tables := sheets[2]
	// Header row of the reader is the "Table 1" label row; data rows follow.
	assert.Equal(t, SheetTables, tables.Name)
	require.NotEmpty(t, tables.Rows)
	assert.Equal(t, "A", tables.Rows[0]["Table 1"])
}

func TestWorkbook_NoTablesPlaceholder(t *testing.T) {
	doc := blockgraph.Document{
		Lines: []blockgraph.Line{{Page: 1, Text: "no tables here"}},
	}
	sheets, err := ReadSheets(buildWorkbook(t, doc))
	require.NoError(t, err)
	// Placeholder lands in the header row of an otherwise empty sheet.
	tables := sheets[2]
	assert.Empty(t, tables.Rows)
}

func TestWorkbook_EmptyGridRendersWithoutFault(t *testing.T) {
	doc := blockgraph.Document{
		Tables: []blockgraph.Table{{Grid: nil}},
	}
	data := buildWorkbook(t, doc)
	sheets, err := ReadSheets(data)
	require.NoError(t, err)
	require.Len(t, sheets, 3)
}

func TestWorkbook_EmptyDocument(t *testing.T) {
	sheets, err := ReadSheets(buildWorkbook(t, blockgraph.Document{}))
	require.NoError(t, err)
	require.Len(t, sheets, 3)
	assert.Empty(t, sheets[0].Rows)
	assert.Empty(t, sheets[1].Rows)
}

func TestReadPrimarySheet_PrefersRawText(t *testing.T) {
	doc := blockgraph.Document{
		Lines: []blockgraph.Line{{Page: 1, Text: "hello"}},
	}
	rows, err := ReadPrimarySheet(buildWorkbook(t, doc))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0]["Line Text"])
}

func TestReadSheets_RejectsGarbage(t *testing.T) {
	_, err := ReadSheets([]byte("not a workbook"))
	assert.Error(t, err)
}
