// Package blockgraph restructures the flat, relationship-linked block
// collection emitted by the document-analysis engine into the three logical
// views a report is built from: reading-order text lines, form key/value
// pairs, and dense 2-D table grids.
package blockgraph

// BlockType is the closed set of block kinds this pipeline cares about.
// Unknown kinds pass through the index untouched and are ignored by the
// resolver.
type BlockType string

const (
	BlockTypePage        BlockType = "PAGE"
	BlockTypeLine        BlockType = "LINE"
	BlockTypeWord        BlockType = "WORD"
	BlockTypeKeyValueSet BlockType = "KEY_VALUE_SET"
	BlockTypeTable       BlockType = "TABLE"
	BlockTypeCell        BlockType = "CELL"
)

// RelationshipType is the kind of a typed reference between blocks.
type RelationshipType string

const (
	// RelationshipChild links a block to its compositional children
	// (a LINE's WORDs, a KEY/CELL's WORDs, a TABLE's CELLs).
	RelationshipChild RelationshipType = "CHILD"
	// RelationshipValue links a KEY block to its value-holder block.
	RelationshipValue RelationshipType = "VALUE"
)

// entityTypeKey marks a KEY_VALUE_SET block as the key side of a pair.
const entityTypeKey = "KEY"

// Relationship is an ordered list of block ids under one relationship kind.
// ID order is significant: text concatenation follows it.
type Relationship struct {
	Type RelationshipType `json:"Type"`
	IDs  []string         `json:"Ids"`
}

// Block is one immutable annotated fragment of the analysis output.
// JSON tags follow the engine's wire shape.
type Block struct {
	ID            string         `json:"Id"`
	BlockType     BlockType      `json:"BlockType"`
	Page          int            `json:"Page,omitempty"`
	Text          string         `json:"Text,omitempty"`
	Confidence    *float64       `json:"Confidence,omitempty"`
	EntityTypes   []string       `json:"EntityTypes,omitempty"`
	RowIndex      int            `json:"RowIndex,omitempty"`
	ColumnIndex   int            `json:"ColumnIndex,omitempty"`
	Relationships []Relationship `json:"Relationships,omitempty"`
}

// IsKey reports whether a KEY_VALUE_SET block carries the KEY entity tag.
func (b Block) IsKey() bool {
	for _, et := range b.EntityTypes {
		if et == entityTypeKey {
			return true
		}
	}
	return false
}
