package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-extractor/internal/schema"
)

func TestNormalizeAndSanitizeJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want EntityFields
	}{
		{
			name: "renames synonyms and drops unknown keys",
			in:   `{"people":["Jane Doe"],"locations":["Lagos"],"orgs":["Acme"]}`,
			want: EntityFields{Names: []string{"Jane Doe"}, Addresses: []string{"Lagos"}},
		},
		{
			name: "coerces string and nulls",
			in:   `{"names":"  Ada ","addresses":null}`,
			want: EntityFields{Names: []string{"Ada"}, Addresses: []string{}},
		},
		{
			name: "drops blank and non-string items",
			in:   `{"names":["", 3, "Bola"],"addresses":[]}`,
			want: EntityFields{Names: []string{"Bola"}, Addresses: []string{}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := NormalizeAndSanitizeJSON([]byte(tc.in), nil)
			require.NoError(t, err)
			require.NoError(t, schema.ValidateJSONAgainstSchema(BuildEntityJSONSchema(), out))

			var got EntityFields
			require.NoError(t, json.Unmarshal(out, &got))
			assert.Equal(t, tc.want, got)
		})
	}

	_, _, err := NormalizeAndSanitizeJSON([]byte(`[`), nil)
	assert.Error(t, err)
}

func TestGroundEntities(t *testing.T) {
	in := EntityFields{Names: []string{"Jane Doe", "John Smith"}, Addresses: []string{"lagos"}}
	got, rejected := GroundEntities(in, "Name Jane Doe City Lagos")
	assert.Equal(t, []string{"Jane Doe"}, got.Names)
	assert.Equal(t, []string{"lagos"}, got.Addresses)
	assert.Equal(t, []string{"John Smith"}, rejected)
}

func TestBuildUserPrompt_Truncates(t *testing.T) {
	p := BuildUserPrompt("ééééé", 3)
	assert.Equal(t, "Form text:\nééé", p)
}
