package blockgraph

import "strings"

// Line is one LINE block projected for the "Raw Text" view.
type Line struct {
	Page       int
	Text       string
	Confidence *float64
}

// KeyValue is one resolved form field for the "Key-Values" view.
type KeyValue struct {
	Page       int
	Key        string
	Value      string
	Confidence *float64
}

// Table is one reconstructed grid. Grid is dense and rectangular;
// a table whose CHILD list resolved to nothing has zero rows.
type Table struct {
	Page int
	Grid [][]string
}

// Document holds the three derived views of one block collection.
type Document struct {
	Lines     []Line
	KeyValues []KeyValue
	Tables    []Table
}

// BuildIndex maps block id -> block. Duplicate ids keep the last occurrence.
func BuildIndex(blocks []Block) map[string]Block {
	idx := make(map[string]Block, len(blocks))
	for _, b := range blocks {
		idx[b.ID] = b
	}
	return idx
}

// Resolve derives all three views from a block collection. It is a pure
// function of its input: no I/O, no retained state, stable output order.
func Resolve(blocks []Block) Document {
	idx := BuildIndex(blocks)
	return Document{
		Lines:     ExtractLines(blocks),
		KeyValues: ExtractKeyValues(blocks, idx),
		Tables:    ExtractTables(blocks, idx),
	}
}

// ExtractLines filters to LINE blocks, preserving input order. The engine
// emits lines in reading order already; reordering here would corrupt it.
func ExtractLines(blocks []Block) []Line {
	var lines []Line
	for _, b := range blocks {
		if b.BlockType != BlockTypeLine {
			continue
		}
		lines = append(lines, Line{Page: b.Page, Text: b.Text, Confidence: b.Confidence})
	}
	return lines
}

// ExtractKeyValues resolves each KEY-tagged KEY_VALUE_SET block to a
// (key, value) pair in encounter order. A key with no VALUE relationship,
// or one whose value ids all dangle, yields an empty value.
func ExtractKeyValues(blocks []Block, idx map[string]Block) []KeyValue {
	var pairs []KeyValue
	for _, b := range blocks {
		if b.BlockType != BlockTypeKeyValueSet || !b.IsKey() {
			continue
		}
		value := ""
		if vb, ok := valueBlock(b, idx); ok {
			value = childText(vb, idx)
		}
		pairs = append(pairs, KeyValue{
			Page:       b.Page,
			Key:        childText(b, idx),
			Value:      value,
			Confidence: b.Confidence,
		})
	}
	return pairs
}

// ExtractTables reconstructs one grid per TABLE block, in the order TABLE
// blocks appear in the collection (not row or page order).
func ExtractTables(blocks []Block, idx map[string]Block) []Table {
	var tables []Table
	for _, b := range blocks {
		if b.BlockType != BlockTypeTable {
			continue
		}
		tables = append(tables, resolveTable(b, idx))
	}
	return tables
}

func resolveTable(table Block, idx map[string]Block) Table {
	cells := map[int]map[int]string{}
	maxRow, maxCol := -1, -1

	for _, rel := range table.Relationships {
		if rel.Type != RelationshipChild {
			continue
		}
		for _, id := range rel.IDs {
			cell, ok := idx[id]
			if !ok || cell.BlockType != BlockTypeCell {
				continue
			}
			// Engine coordinates are 1-based.
			r, c := cell.RowIndex-1, cell.ColumnIndex-1
			if r < 0 || c < 0 {
				continue
			}
			if r > maxRow {
				maxRow = r
			}
			if c > maxCol {
				maxCol = c
			}
			row, ok := cells[r]
			if !ok {
				row = map[int]string{}
				cells[r] = row
			}
			row[c] = childText(cell, idx)
		}
	}

	// maxRow stays -1 when nothing resolved: zero-row grid, not nil deref.
	grid := make([][]string, 0, maxRow+1)
	for r := 0; r <= maxRow; r++ {
		row := make([]string, maxCol+1)
		for c := 0; c <= maxCol; c++ {
			row[c] = cells[r][c]
		}
		grid = append(grid, row)
	}
	return Table{Page: table.Page, Grid: grid}
}

// valueBlock follows the key's VALUE relationship to the first resolvable
// value-holder block.
func valueBlock(key Block, idx map[string]Block) (Block, bool) {
	for _, rel := range key.Relationships {
		if rel.Type != RelationshipValue {
			continue
		}
		for _, id := range rel.IDs {
			if vb, ok := idx[id]; ok {
				return vb, true
			}
		}
	}
	return Block{}, false
}

// childText concatenates the text of CHILD-linked blocks in relationship
// order, space-joined and trimmed. Dangling ids and textless children
// contribute nothing.
func childText(b Block, idx map[string]Block) string {
	var sb strings.Builder
	for _, rel := range b.Relationships {
		if rel.Type != RelationshipChild {
			continue
		}
		for _, id := range rel.IDs {
			child, ok := idx[id]
			if !ok || child.Text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(child.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
