package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
)

// NormalizeAndSanitizeJSON
// - Renames known synonyms (people -> names, locations -> addresses)
// - Coerces a bare string into a one-element array
// - Drops null/empty entries
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to the schema
	renamed("persons", "names")
	renamed("people", "names")
	renamed("person", "names")
	renamed("locations", "addresses")
	renamed("places", "addresses")
	renamed("gpe", "addresses")

	// 2) coerce each list to []string without blanks
	for _, k := range []string{"names", "addresses"} {
		var out []string
		switch t := m[k].(type) {
		case nil:
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case []any:
			for _, item := range t {
				s, ok := item.(string)
				if !ok || strings.TrimSpace(s) == "" {
					dropped = append(dropped, k+"(item)")
					continue
				}
				out = append(out, strings.TrimSpace(s))
			}
		default:
			dropped = append(dropped, k+"(type)")
		}
		if out == nil {
			out = []string{}
		}
		m[k] = out
	}

	// 3) remove unknown keys
	for k := range maps.Clone(m) {
		if k != "names" && k != "addresses" {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.tag.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// GroundEntities keeps only entities that occur in the source text,
// compared case-insensitively. Models occasionally return entities that
// were never on the form.
func GroundEntities(fields EntityFields, text string) (EntityFields, []string) {
	lower := strings.ToLower(text)
	var rejected []string
	keep := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if strings.Contains(lower, strings.ToLower(s)) {
				out = append(out, s)
			} else {
				rejected = append(rejected, s)
			}
		}
		return out
	}
	return EntityFields{Names: keep(fields.Names), Addresses: keep(fields.Addresses)}, rejected
}
