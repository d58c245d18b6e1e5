package llm

// BuildEntityJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to OpenAI as a structured output constraint and also use it locally to validate.
func BuildEntityJSONSchema() map[string]any {
	list := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string", "minLength": 1},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"names":     list,
			"addresses": list,
		},
		"required": []string{"names", "addresses"},
	}
}
