package blockgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conf(v float64) *float64 { return &v }

func word(id, text string) Block {
	return Block{ID: id, BlockType: BlockTypeWord, Text: text}
}

func child(ids ...string) Relationship {
	return Relationship{Type: RelationshipChild, IDs: ids}
}

func TestExtractLines_PreservesEncounterOrder(t *testing.T) {
	blocks := []Block{
		{ID: "l1", BlockType: BlockTypeLine, Page: 1, Text: "first", Confidence: conf(99.5)},
		{ID: "p1", BlockType: BlockTypePage, Page: 1},
		{ID: "l2", BlockType: BlockTypeLine, Page: 2, Text: "second"},
		{ID: "l3", BlockType: BlockTypeLine, Page: 1, Text: ""},
	}

	lines := ExtractLines(blocks)
	require.Len(t, lines, 3)
	assert.Equal(t, "first", lines[0].Text)
	assert.Equal(t, 1, lines[0].Page)
	assert.InDelta(t, 99.5, *lines[0].Confidence, 0.001)
	assert.Equal(t, "second", lines[1].Text)
	assert.Nil(t, lines[1].Confidence)
	assert.Equal(t, "", lines[2].Text)
}

func TestExtractLines_NoLineBlocks(t *testing.T) {
	blocks := []Block{
		{ID: "p1", BlockType: BlockTypePage},
		{ID: "w1", BlockType: BlockTypeWord, Text: "orphan"},
	}
	assert.Empty(t, ExtractLines(blocks))
}

func TestExtractKeyValues_ResolvesValueChain(t *testing.T) {
	blocks := []Block{
		{
			ID: "k1", BlockType: BlockTypeKeyValueSet, Page: 1,
			EntityTypes: []string{"KEY"}, Confidence: conf(88),
			Relationships: []Relationship{
				{Type: RelationshipValue, IDs: []string{"v1"}},
				child("kw1", "kw2"),
			},
		},
		{
			ID: "v1", BlockType: BlockTypeKeyValueSet, EntityTypes: []string{"VALUE"},
			Relationships: []Relationship{child("vw1", "vw2")},
		},
		word("kw1", "Invoice"), word("kw2", "Number"),
		word("vw1", "INV-2024"), word("vw2", "001"),
	}

	pairs := ExtractKeyValues(blocks, BuildIndex(blocks))
	require.Len(t, pairs, 1)
	assert.Equal(t, "Invoice Number", pairs[0].Key)
	assert.Equal(t, "INV-2024 001", pairs[0].Value)
	assert.Equal(t, 1, pairs[0].Page)
}

func TestExtractKeyValues_ValueIsChildConcatenation(t *testing.T) {
	blocks := []Block{
		{
			ID: "k1", BlockType: BlockTypeKeyValueSet, EntityTypes: []string{"KEY"},
			Relationships: []Relationship{
				child("kw1"),
				{Type: RelationshipValue, IDs: []string{"v1"}},
			},
		},
		{ID: "v1", BlockType: BlockTypeKeyValueSet, Relationships: []Relationship{child("w1", "w2")}},
		word("kw1", "Field"),
		word("w1", "Invoice"), word("w2", "Number"),
	}
	pairs := ExtractKeyValues(blocks, BuildIndex(blocks))
	require.Len(t, pairs, 1)
	assert.Equal(t, "Invoice Number", pairs[0].Value)
}

func TestExtractKeyValues_MissingValueRelationship(t *testing.T) {
	blocks := []Block{
		{
			ID: "k1", BlockType: BlockTypeKeyValueSet, EntityTypes: []string{"KEY"},
			Relationships: []Relationship{child("kw1")},
		},
		word("kw1", "Orphan"),
	}
	pairs := ExtractKeyValues(blocks, BuildIndex(blocks))
	require.Len(t, pairs, 1)
	assert.Equal(t, "Orphan", pairs[0].Key)
	assert.Equal(t, "", pairs[0].Value)
}

func TestExtractKeyValues_IgnoresUntaggedSets(t *testing.T) {
	blocks := []Block{
		{
			ID: "k1", BlockType: BlockTypeKeyValueSet, EntityTypes: []string{"KEY"},
			Relationships: []Relationship{child("w1")},
		},
		{
			ID: "v1", BlockType: BlockTypeKeyValueSet, EntityTypes: []string{"VALUE"},
			Relationships: []Relationship{child("w2")},
		},
		word("w1", "Tagged"), word("w2", "Untagged"),
	}
	pairs := ExtractKeyValues(blocks, BuildIndex(blocks))
	require.Len(t, pairs, 1)
	assert.Equal(t, "Tagged", pairs[0].Key)
}

func TestExtractKeyValues_DanglingValueReference(t *testing.T) {
	blocks := []Block{
		{
			ID: "k1", BlockType: BlockTypeKeyValueSet, EntityTypes: []string{"KEY"},
			Relationships: []Relationship{
				child("kw1"),
				{Type: RelationshipValue, IDs: []string{"missing"}},
			},
		},
		word("kw1", "Key"),
	}
	pairs := ExtractKeyValues(blocks, BuildIndex(blocks))
	require.Len(t, pairs, 1)
	assert.Equal(t, "", pairs[0].Value)
}

func cell(id string, row, col int, wordIDs ...string) Block {
	b := Block{ID: id, BlockType: BlockTypeCell, RowIndex: row, ColumnIndex: col}
	if len(wordIDs) > 0 {
		b.Relationships = []Relationship{child(wordIDs...)}
	}
	return b
}

func TestExtractTables_DenseGridWithGaps(t *testing.T) {
	blocks := []Block{
		{ID: "t1", BlockType: BlockTypeTable, Page: 1, Relationships: []Relationship{child("c1", "c2", "c3")}},
		cell("c1", 1, 1, "wa"), cell("c2", 1, 2, "wb"), cell("c3", 2, 1, "wc"),
		word("wa", "A"), word("wb", "B"), word("wc", "C"),
	}

	tables := ExtractTables(blocks, BuildIndex(blocks))
	require.Len(t, tables, 1)
	assert.Equal(t, [][]string{{"A", "B"}, {"C", ""}}, tables[0].Grid)
}

func TestExtractTables_EmptyChildListYieldsZeroRows(t *testing.T) {
	blocks := []Block{
		{ID: "t1", BlockType: BlockTypeTable, Relationships: []Relationship{child()}},
	}
	tables := ExtractTables(blocks, BuildIndex(blocks))
	require.Len(t, tables, 1)
	assert.Empty(t, tables[0].Grid)
}

func TestExtractTables_NoChildRelationship(t *testing.T) {
	blocks := []Block{{ID: "t1", BlockType: BlockTypeTable}}
	tables := ExtractTables(blocks, BuildIndex(blocks))
	require.Len(t, tables, 1)
	assert.Empty(t, tables[0].Grid)
}

func TestExtractTables_TableOrderFollowsEncounter(t *testing.T) {
	blocks := []Block{
		{ID: "t2", BlockType: BlockTypeTable, Page: 2, Relationships: []Relationship{child("c2")}},
		{ID: "t1", BlockType: BlockTypeTable, Page: 1, Relationships: []Relationship{child("c1")}},
		cell("c1", 1, 1, "w1"), cell("c2", 1, 1, "w2"),
		word("w1", "first-page"), word("w2", "second-page"),
	}
	tables := ExtractTables(blocks, BuildIndex(blocks))
	require.Len(t, tables, 2)
	// Page 2 table came first in the collection, so it stays first.
	assert.Equal(t, "second-page", tables[0].Grid[0][0])
	assert.Equal(t, "first-page", tables[1].Grid[0][0])
}

func TestExtractTables_DanglingAndForeignChildIDs(t *testing.T) {
	blocks := []Block{
		{ID: "t1", BlockType: BlockTypeTable, Relationships: []Relationship{child("c1", "missing", "l1")}},
		cell("c1", 1, 1, "w1"),
		{ID: "l1", BlockType: BlockTypeLine, Text: "not a cell"},
		word("w1", "ok"),
	}
	tables := ExtractTables(blocks, BuildIndex(blocks))
	require.Len(t, tables, 1)
	assert.Equal(t, [][]string{{"ok"}}, tables[0].Grid)
}

func TestResolve_Idempotent(t *testing.T) {
	blocks := []Block{
		{ID: "l1", BlockType: BlockTypeLine, Page: 1, Text: "hello"},
		{
			ID: "k1", BlockType: BlockTypeKeyValueSet, EntityTypes: []string{"KEY"},
			Relationships: []Relationship{
				child("kw1"),
				{Type: RelationshipValue, IDs: []string{"v1"}},
			},
		},
		{ID: "v1", BlockType: BlockTypeKeyValueSet, Relationships: []Relationship{child("vw1")}},
		word("kw1", "Total"), word("vw1", "42.00"),
		{ID: "t1", BlockType: BlockTypeTable, Relationships: []Relationship{child("c1")}},
		cell("c1", 1, 1, "cw1"), word("cw1", "X"),
	}

	first := Resolve(blocks)
	second := Resolve(blocks)
	assert.Equal(t, first, second)
}

func TestBuildIndex_ResolvesEveryID(t *testing.T) {
	blocks := []Block{
		{ID: "a", BlockType: BlockTypeLine},
		{ID: "b", BlockType: BlockTypeWord},
	}
	idx := BuildIndex(blocks)
	require.Len(t, idx, 2)
	assert.Equal(t, BlockTypeWord, idx["b"].BlockType)
}
