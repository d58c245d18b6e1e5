package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSONAgainstSchema(t *testing.T) {
	schemaMap := map[string]any{
		"type":     "object",
		"required": []string{"names"},
		"properties": map[string]any{
			"names": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"names":["Jane Doe"]}`, false},
		{"missing required", `{}`, true},
		{"wrong item type", `{"names":[1]}`, true},
		{"not json", `{names`, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(schemaMap, []byte(tc.data))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
