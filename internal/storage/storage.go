package storage

import (
	"context"
	"path"
	"strings"

	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// Store holds raw document bytes for the recognition backend and the queue worker.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (entity.ObjectLocation, error)
	Get(ctx context.Context, loc entity.ObjectLocation) ([]byte, error)
	Bucket() string
}

// DocumentKey builds <prefix>/<document_id>/<filename>.
func DocumentKey(prefix string, doc entity.Document) string {
	name := path.Base(strings.ReplaceAll(doc.Filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return doc.ID + "/" + name
	}
	return prefix + "/" + doc.ID + "/" + name
}
