package resolver

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// Resolver turns a recognition block arena into form fields and line text.
// It holds no per-run state and is safe for concurrent use.
type Resolver struct {
	logger    *slog.Logger
	separator string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSeparator sets the string placed between concatenated leaf texts.
// The default is empty: leaves carry their own spacing.
func WithSeparator(sep string) Option {
	return func(r *Resolver) { r.separator = sep }
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(opts ...Option) *Resolver {
	r := &Resolver{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveFormFields pairs every key anchor with its value block. Anchors
// whose key or value text comes out empty, or whose VALUE edge is missing
// or dangling, are skipped. Output follows anchor order in the arena.
func (r *Resolver) ResolveFormFields(blocks *entity.BlockSet) []entity.FormField {
	fields := make([]entity.FormField, 0)
	skipped := 0

	blocks.Each(func(b *entity.Block) {
		if b.Type != entity.BlockKeyValueSet || !b.HasRole(entity.RoleKey) {
			return
		}

		key := r.childText(blocks, b)
		if key == "" {
			skipped++
			return
		}

		value := ""
		if vb, ok := valueBlock(blocks, b); ok {
			value = r.childText(blocks, vb)
		}
		if value == "" {
			skipped++
			return
		}

		fields = append(fields, entity.FormField{Key: key, Value: value})
	})

	if skipped > 0 {
		r.logger.Debug("resolver.anchors.skipped", "skipped", skipped, "resolved", len(fields))
	}
	return fields
}

// childText concatenates the text of every block reached through CHILD
// edges, in edge order. Dangling ids contribute nothing.
func (r *Resolver) childText(blocks *entity.BlockSet, b *entity.Block) string {
	var parts []string
	for _, id := range b.EdgeIDs(entity.RelationChild) {
		child, ok := blocks.Get(id)
		if !ok || child.Text == "" {
			continue
		}
		parts = append(parts, child.Text)
	}
	return strings.Join(parts, r.separator)
}

// valueBlock follows the anchor's VALUE edges to the first id present in the arena.
func valueBlock(blocks *entity.BlockSet, key *entity.Block) (*entity.Block, bool) {
	for _, id := range key.EdgeIDs(entity.RelationValue) {
		if vb, ok := blocks.Get(id); ok {
			return vb, true
		}
	}
	return nil, false
}
