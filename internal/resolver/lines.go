package resolver

import (
	"strings"

	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// LineText is the raw text view of a result: LINE blocks joined by newlines.
type LineText struct {
	Text              string
	AverageConfidence float64
	LineCount         int
}

// ExtractLines joins LINE block text in arena order and averages the
// confidence of lines that carry one. No lines yields a zero average.
func (r *Resolver) ExtractLines(blocks *entity.BlockSet) LineText {
	var (
		lines  []string
		sum    float64
		scored int
	)
	blocks.Each(func(b *entity.Block) {
		if b.Type != entity.BlockLine {
			return
		}
		lines = append(lines, b.Text)
		if b.Confidence != nil {
			sum += *b.Confidence
			scored++
		}
	})

	out := LineText{Text: strings.Join(lines, "\n"), LineCount: len(lines)}
	if scored > 0 {
		out.AverageConfidence = sum / float64(scored)
	}
	return out
}
