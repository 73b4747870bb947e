package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema is the JSON schema every catalog document must satisfy.
var documentSchema = map[string]any{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"properties": map[string]any{
		"version": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
		"problems": map[string]any{
			"type":  "array",
			"items": map[string]any{"$ref": "#/$defs/problem"},
		},
	},
	"required":             []any{"version", "problems"},
	"additionalProperties": false,
	"$defs": map[string]any{
		"problem": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":         map[string]any{"type": "string", "minLength": 1},
				"topic":      map[string]any{"type": "string", "enum": topicEnum()},
				"difficulty": map[string]any{"type": "integer", "minimum": 0},
				"question":   map[string]any{"type": "string", "minLength": 1},
				"answer": map[string]any{
					"oneOf": []any{
						map[string]any{"type": "number"},
						map[string]any{"type": "string", "minLength": 1},
						map[string]any{
							"type": "object",
							"properties": map[string]any{
								"value":     map[string]any{"type": "number"},
								"tolerance": map[string]any{"type": "number", "minimum": 0},
							},
							"required":             []any{"value"},
							"additionalProperties": false,
						},
					},
				},
				"tolerance": map[string]any{"type": "number", "minimum": 0},
				"solution":  map[string]any{"type": "string", "minLength": 1},
				"concepts": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string", "minLength": 1},
				},
				"hints": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string", "minLength": 1},
				},
				"timeEstimate": map[string]any{"type": "integer", "minimum": 0},
			},
			"required":             []any{"id", "topic", "difficulty", "question", "answer", "solution"},
			"additionalProperties": false,
		},
	},
}

func topicEnum() []any {
	var out []any
	for _, t := range AllTopics() {
		out = append(out, string(t))
	}
	return out
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	// The jsonschema library expects a parsed JSON value (any), not Go maps
	// with typed slices. Round-trip through JSON to get a clean any.
	defBytes, err := json.Marshal(documentSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	const schemaURL = "schema://finprep-catalog.json"
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(schemaURL)
})

// validateDocument checks raw catalog JSON against documentSchema.
func validateDocument(raw []byte) error {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	compiled, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
