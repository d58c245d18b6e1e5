package entity

import (
	"crypto/sha256"
	"time"

	"github.com/google/uuid"
)

// ObjectLocation points at a document already held by the object store.
type ObjectLocation struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Document is the immutable payload handed to the pipeline.
type Document struct {
	ID         string          `json:"id"`
	Filename   string          `json:"filename"`
	MediaType  string          `json:"media_type"`
	Content    []byte          `json:"-"`
	Location   *ObjectLocation `json:"location,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// NewDocument assigns a fresh id to an uploaded payload.
func NewDocument(filename, mediaType string, content []byte) Document {
	return Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		MediaType:  mediaType,
		Content:    content,
		ReceivedAt: time.Now().UTC(),
	}
}

// ContentHash returns the sha256 of the payload.
func (d Document) ContentHash() []byte {
	sum := sha256.Sum256(d.Content)
	return sum[:]
}
