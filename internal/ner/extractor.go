package ner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// Extractor merges recognizer output (names, addresses) with the phone
// and email matchers. It holds no per-run state.
type Extractor struct {
	recognizer Recognizer
	logger     *slog.Logger
}

func NewExtractor(r Recognizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = NewProseRecognizer()
	}
	return &Extractor{recognizer: r, logger: logger}
}

// Extract runs over the value texts of the resolved fields joined by a single space.
func (e *Extractor) Extract(ctx context.Context, fields []entity.FormField) (entity.ExtractedEntities, error) {
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		values = append(values, f.Value)
	}
	return e.ExtractText(ctx, strings.Join(values, " "))
}

// ExtractText runs the recognizer and the matchers over one text blob. No
// matches is a valid, empty result.
func (e *Extractor) ExtractText(ctx context.Context, text string) (entity.ExtractedEntities, error) {
	start := time.Now()
	recognized := entity.NewExtractedEntities()
	matched := entity.NewExtractedEntities()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ents, err := e.recognizer.Recognize(gctx, text)
		if err != nil {
			return fmt.Errorf("recognize entities: %w", err)
		}
		for _, ent := range ents {
			cat, ok := constants.CanonicalizeLabel(ent.Label)
			if !ok {
				continue
			}
			switch cat {
			case constants.CategoryNames:
				recognized.Names.Add(strings.TrimSpace(ent.Text))
			case constants.CategoryAddresses:
				recognized.Addresses.Add(strings.TrimSpace(ent.Text))
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, m := range MatchPhones(text) {
			matched.PhoneNumbers.Add(m)
		}
		for _, m := range MatchEmails(text) {
			matched.Emails.Add(m)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		e.logger.Error("ner.extract.failed", "text_len", len(text), "err", err)
		return entity.ExtractedEntities{}, err
	}

	recognized.Merge(matched)
	e.logger.Debug("ner.extract.ok",
		"text_len", len(text),
		"names", len(recognized.Names),
		"addresses", len(recognized.Addresses),
		"phones", len(recognized.PhoneNumbers),
		"emails", len(recognized.Emails),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return recognized, nil
}
