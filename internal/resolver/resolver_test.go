package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

func word(id, text string) entity.Block {
	return entity.Block{ID: id, Type: entity.BlockWord, Text: text}
}

func keyBlock(id string, children []string, values ...string) entity.Block {
	b := entity.Block{ID: id, Type: entity.BlockKeyValueSet, EntityTypes: []string{entity.RoleKey}}
	if children != nil {
		b.Relationships = append(b.Relationships, entity.Relationship{Type: entity.RelationChild, IDs: children})
	}
	if len(values) > 0 {
		b.Relationships = append(b.Relationships, entity.Relationship{Type: entity.RelationValue, IDs: values})
	}
	return b
}

func valBlock(id string, children ...string) entity.Block {
	return entity.Block{
		ID:            id,
		Type:          entity.BlockKeyValueSet,
		EntityTypes:   []string{entity.RoleValue},
		Relationships: []entity.Relationship{{Type: entity.RelationChild, IDs: children}},
	}
}

func TestResolveFormFields(t *testing.T) {
	tests := []struct {
		name   string
		blocks []entity.Block
		want   []entity.FormField
	}{
		{
			name: "single pair",
			blocks: []entity.Block{
				keyBlock("k1", []string{"w1"}, "v1"),
				valBlock("v1", "w2", "w3"),
				word("w1", "Name"),
				word("w2", "Jane "),
				word("w3", "Doe"),
			},
			want: []entity.FormField{{Key: "Name", Value: "Jane Doe"}},
		},
		{
			name: "missing value edge",
			blocks: []entity.Block{
				keyBlock("k1", []string{"w1"}),
				valBlock("v1", "w2"),
				word("w1", "Name"),
				word("w2", "Jane Doe"),
			},
			want: []entity.FormField{},
		},
		{
			name: "dangling value edge is isolated",
			blocks: []entity.Block{
				keyBlock("k1", []string{"w1"}, "missing"),
				keyBlock("k2", []string{"w3"}, "v2"),
				valBlock("v2", "w4"),
				word("w1", "Name"),
				word("w3", "City"),
				word("w4", "Lagos"),
			},
			want: []entity.FormField{{Key: "City", Value: "Lagos"}},
		},
		{
			name: "dangling child contributes nothing",
			blocks: []entity.Block{
				keyBlock("k1", []string{"w1", "gone"}, "v1"),
				valBlock("v1", "gone2", "w2"),
				word("w1", "Email"),
				word("w2", "jane@example.com"),
			},
			want: []entity.FormField{{Key: "Email", Value: "jane@example.com"}},
		},
		{
			name: "empty value text is dropped",
			blocks: []entity.Block{
				keyBlock("k1", []string{"w1"}, "v1"),
				valBlock("v1"),
				word("w1", "Signature"),
			},
			want: []entity.FormField{},
		},
		{
			name: "empty relationships",
			blocks: []entity.Block{
				{ID: "k1", Type: entity.BlockKeyValueSet, EntityTypes: []string{entity.RoleKey}},
			},
			want: []entity.FormField{},
		},
		{
			name: "shared value resolves for each key",
			blocks: []entity.Block{
				keyBlock("k1", []string{"w1"}, "v1"),
				keyBlock("k2", []string{"w2"}, "v1"),
				valBlock("v1", "w3"),
				word("w1", "Phone"),
				word("w2", "Mobile"),
				word("w3", "555 0100"),
			},
			want: []entity.FormField{
				{Key: "Phone", Value: "555 0100"},
				{Key: "Mobile", Value: "555 0100"},
			},
		},
		{
			name: "order follows anchors",
			blocks: []entity.Block{
				keyBlock("k2", []string{"w2"}, "v2"),
				keyBlock("k1", []string{"w1"}, "v1"),
				valBlock("v1", "w3"),
				valBlock("v2", "w4"),
				word("w1", "B"),
				word("w2", "A"),
				word("w3", "b"),
				word("w4", "a"),
			},
			want: []entity.FormField{{Key: "A", Value: "a"}, {Key: "B", Value: "b"}},
		},
		{
			name: "value blocks are not anchors",
			blocks: []entity.Block{
				valBlock("v1", "w1"),
				word("w1", "orphan"),
			},
			want: []entity.FormField{},
		},
	}

	r := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := r.ResolveFormFields(entity.NewBlockSet(tc.blocks))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveFormFields_Separator(t *testing.T) {
	blocks := entity.NewBlockSet([]entity.Block{
		keyBlock("k1", []string{"w1", "w2"}, "v1"),
		valBlock("v1", "w3", "w4"),
		word("w1", "First"),
		word("w2", "name"),
		word("w3", "Jane"),
		word("w4", "Doe"),
	})

	got := New(WithSeparator(" ")).ResolveFormFields(blocks)
	require.Len(t, got, 1)
	assert.Equal(t, entity.FormField{Key: "First name", Value: "Jane Doe"}, got[0])
}

func TestResolveFormFields_Idempotent(t *testing.T) {
	blocks := entity.NewBlockSet([]entity.Block{
		keyBlock("k1", []string{"w1"}, "v1"),
		keyBlock("k2", []string{"w2"}, "v2"),
		valBlock("v1", "w3"),
		valBlock("v2", "w4"),
		word("w1", "Name"),
		word("w2", "City"),
		word("w3", "Jane Doe"),
		word("w4", "Accra"),
	})

	r := New()
	first := r.ResolveFormFields(blocks)
	second := r.ResolveFormFields(blocks)
	assert.Equal(t, first, second)
	for _, f := range first {
		assert.NotEmpty(t, f.Key)
		assert.NotEmpty(t, f.Value)
	}
}

func TestExtractLines(t *testing.T) {
	c := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		blocks   []entity.Block
		wantText string
		wantConf float64
		wantN    int
	}{
		{
			name: "joins lines and averages confidence",
			blocks: []entity.Block{
				{ID: "p", Type: entity.BlockPage},
				{ID: "l1", Type: entity.BlockLine, Text: "Jane Doe", Confidence: c(90)},
				{ID: "w1", Type: entity.BlockWord, Text: "Jane", Confidence: c(10)},
				{ID: "l2", Type: entity.BlockLine, Text: "Lagos", Confidence: c(80)},
			},
			wantText: "Jane Doe\nLagos",
			wantConf: 85,
			wantN:    2,
		},
		{
			name:   "no lines",
			blocks: []entity.Block{{ID: "p", Type: entity.BlockPage}},
		},
	}

	r := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := r.ExtractLines(entity.NewBlockSet(tc.blocks))
			assert.Equal(t, tc.wantText, got.Text)
			assert.InDelta(t, tc.wantConf, got.AverageConfidence, 0.0001)
			assert.Equal(t, tc.wantN, got.LineCount)
		})
	}
}
