package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form-extractor/internal/llm"
	"github.com/joseph-ayodele/form-extractor/internal/ner"
	"github.com/joseph-ayodele/form-extractor/internal/schema"
)

var (
	_ llm.EntityTagger = (*Client)(nil)
	_ ner.Recognizer   = (*Client)(nil)
)

// TagEntities implements llm.EntityTagger using chat/completions in JSON mode.
// The reply is validated strictly first; on failure it is normalized once
// and validated again.
func (c *Client) TagEntities(ctx context.Context, req llm.EntityRequest) (llm.EntityFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.tag.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
	)

	maxChars := req.MaxChars
	if maxChars <= 0 {
		maxChars = c.cfg.MaxChars
	}
	entitySchema := llm.BuildEntityJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req.Text, maxChars)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(entitySchema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.tag.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.EntityFields{}, nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.EntityFields{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return llm.EntityFields{}, raw, errors.New("no choices in openai response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	if err := schema.ValidateJSONAgainstSchema(entitySchema, content); err != nil {
		cleaned, dropped, sErr := llm.NormalizeAndSanitizeJSON(content, c.logger)
		if sErr != nil {
			c.logger.Error("llm.tag.sanitize_failed", "req_id", rid, "error", sErr)
			return llm.EntityFields{}, content, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := schema.ValidateJSONAgainstSchema(entitySchema, cleaned); vErr != nil {
			c.logger.Error("llm.tag.schema_validation_failed", "req_id", rid, "error", vErr, "content", string(content))
			return llm.EntityFields{}, content, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.logger.Warn("llm.tag.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
		content = cleaned
	}

	var out llm.EntityFields
	if err := json.Unmarshal(content, &out); err != nil {
		return llm.EntityFields{}, content, fmt.Errorf("unmarshal fields: %w", err)
	}

	grounded, rejected := llm.GroundEntities(out, req.Text)
	if len(rejected) > 0 {
		c.logger.Warn("llm.tag.ungrounded_dropped", "req_id", rid, "rejected", rejected)
	}

	c.logger.Info("llm.tag.ok",
		"req_id", rid,
		"names", len(grounded.Names),
		"addresses", len(grounded.Addresses),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return grounded, content, nil
}

// Recognize adapts the tagger to the statistical recognizer contract.
func (c *Client) Recognize(ctx context.Context, text string) ([]ner.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	fields, _, err := c.TagEntities(ctx, llm.EntityRequest{Text: text})
	if err != nil {
		return nil, err
	}
	out := make([]ner.Entity, 0, len(fields.Names)+len(fields.Addresses))
	for _, n := range fields.Names {
		out = append(out, ner.Entity{Text: n, Label: "PERSON"})
	}
	for _, a := range fields.Addresses {
		out = append(out, ner.Entity{Text: a, Label: "GPE"})
	}
	return out, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
