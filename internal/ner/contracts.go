package ner

import "context"

// Entity is one span tagged by a statistical recognizer.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Recognizer tags named entities in free text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}
