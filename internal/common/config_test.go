package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("RECOGNITION_BACKEND", "replay")
	t.Setenv("RECOGNITION_POLL_INTERVAL", "250ms")
	t.Setenv("RECOGNITION_TOKEN_SEPARATOR", " ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("QUEUE_WORKERS", "not-a-number")
	t.Setenv("STORAGE_USE_SSL", "false")

	cfg := LoadConfig()

	assert.Equal(t, "replay", cfg.Recognition.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Recognition.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Recognition.MaxWait)
	assert.Equal(t, " ", cfg.Recognition.TokenSeparator)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.False(t, cfg.Storage.UseSSL)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Storage: StorageConfig{Type: "s3", Bucket: "docs"},
			Recognition: RecognitionConfig{
				Backend:      "textract",
				PollInterval: 5 * time.Second,
				MaxWait:      5 * time.Minute,
			},
			Cache: CacheConfig{Backend: "memory"},
			NER:   NERConfig{Backend: "prose"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid textract", func(*Config) {}, false},
		{"textract without bucket", func(c *Config) { c.Storage.Bucket = "" }, true},
		{"textract on minio", func(c *Config) { c.Storage.Type = "minio"; c.Storage.Endpoint = "localhost:9000" }, true},
		{"replay without dir", func(c *Config) { c.Recognition.Backend = "replay" }, true},
		{"unknown backend", func(c *Config) { c.Recognition.Backend = "tesseract" }, true},
		{"zero interval", func(c *Config) { c.Recognition.PollInterval = 0 }, true},
		{"max wait below interval", func(c *Config) { c.Recognition.MaxWait = time.Second }, true},
		{"openai without key", func(c *Config) { c.NER.Backend = "openai" }, true},
		{"redis without url", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"unknown storage type", func(c *Config) { c.Storage.Type = "gcs" }, true},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, true},
		{"cache disabled", func(c *Config) { c.Cache.Backend = "none" }, false},
		{"unknown ner backend", func(c *Config) { c.NER.Backend = "spacy" }, true},
		{"text logs in any case", func(c *Config) { c.Log.Format = "TEXT" }, false},
		{"unknown log format", func(c *Config) { c.Log.Format = "logfmt" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_ReportsEveryUnknownSetting(t *testing.T) {
	c := &Config{
		Storage:     StorageConfig{Type: "gcs", Bucket: "docs"},
		Recognition: RecognitionConfig{Backend: "tesseract", PollInterval: time.Second, MaxWait: time.Minute},
		Cache:       CacheConfig{Backend: "memcached"},
	}

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	for _, field := range []string{"RECOGNITION_BACKEND", "STORAGE_TYPE", "CACHE_BACKEND"} {
		assert.Contains(t, err.Error(), field)
	}
	assert.NotContains(t, err.Error(), "NER_BACKEND")
}
