package llm

import "context"

// EntityFields is the normalized shape we want from the LLM.
type EntityFields struct {
	Names     []string `json:"names"`
	Addresses []string `json:"addresses"`
}

type EntityRequest struct {
	Text string

	// MaxChars caps the text placed in the prompt; zero uses DefaultMaxPromptChars.
	MaxChars int
}

// EntityTagger is the interface the recognizer adapter depends on.
type EntityTagger interface {
	TagEntities(ctx context.Context, req EntityRequest) (EntityFields, []byte /*rawJSON*/, error)
}
