package blockgraph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildPayloadSchema returns a JSON-Schema (draft 2020-12 subset) for a
// stored analysis payload, as a generic map. Relationship and entity-type
// values are deliberately unconstrained: unknown kinds must load and be
// ignored, not rejected.
func BuildPayloadSchema() map[string]any {
	blockProps := map[string]any{
		"Id":          map[string]any{"type": "string", "minLength": 1},
		"BlockType":   map[string]any{"type": "string", "minLength": 1},
		"Page":        map[string]any{"type": "integer", "minimum": 0},
		"Text":        map[string]any{"type": "string"},
		"Confidence":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0},
		"EntityTypes": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"RowIndex":    map[string]any{"type": "integer", "minimum": 0},
		"ColumnIndex": map[string]any{"type": "integer", "minimum": 0},
		"Relationships": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"Type": map[string]any{"type": "string", "minLength": 1},
					"Ids":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"Type"},
			},
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"Blocks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"properties": blockProps,
					"required":   []string{"Id", "BlockType"},
				},
			},
		},
		"required": []string{"Blocks"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// DecodePayload validates and decodes a stored analysis payload into its
// block collection.
func DecodePayload(data []byte) ([]Block, error) {
	if err := ValidateJSONAgainstSchema(BuildPayloadSchema(), data); err != nil {
		return nil, fmt.Errorf("analysis payload: %w", err)
	}
	var payload struct {
		Blocks []Block `json:"Blocks"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode analysis payload: %w", err)
	}
	return payload.Blocks, nil
}
