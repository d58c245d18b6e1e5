package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-extractor/internal/llm"
	"github.com/joseph-ayodele/form-extractor/internal/ner"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}))
}

func TestRecognize(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"names":["Jane Doe","Ghost"],"addresses":["Lagos"]}`)
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	got, err := c.Recognize(context.Background(), "Jane Doe Lagos")
	require.NoError(t, err)
	assert.Equal(t, []ner.Entity{
		{Text: "Jane Doe", Label: "PERSON"},
		{Text: "Lagos", Label: "GPE"},
	}, got)
}

func TestTagEntities_LenientSanitize(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"people":["Ada"],"places":"Abuja","extra":1}`)
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	got, _, err := c.TagEntities(context.Background(), llm.EntityRequest{Text: "Ada lives in Abuja"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada"}, got.Names)
	assert.Equal(t, []string{"Abuja"}, got.Addresses)
}

func TestTagEntities_HTTPError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, `{}`)
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	_, _, err := c.TagEntities(context.Background(), llm.EntityRequest{Text: "x"})
	var se *llm.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
}

func TestRecognize_EmptyTextSkipsCall(t *testing.T) {
	c := NewClient(Config{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"}, nil)
	got, err := c.Recognize(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
