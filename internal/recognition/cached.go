package recognition

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/cache"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

type cachedClient struct {
	cache  cache.Cache
	ttl    time.Duration
	client Client
	logger *slog.Logger
}

// NewCached remembers terminal status results so resumed polls of a
// finished job do not hit the backend again. Non-terminal results are
// never cached.
func NewCached(store cache.Cache, ttl time.Duration, c Client, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedClient{cache: store, ttl: ttl, client: c, logger: logger}
}

func (c *cachedClient) Submit(ctx context.Context, doc entity.Document, feature constants.Feature) (string, error) {
	return c.client.Submit(ctx, doc, feature)
}

func (c *cachedClient) Status(ctx context.Context, jobID string, feature constants.Feature) (StatusResult, error) {
	key := "recognition:" + string(feature) + ":" + jobID

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("recognition.cache.get_failed", "job_id", jobID, "err", err)
	} else if ok {
		var res StatusResult
		if err := json.Unmarshal(raw, &res); err == nil {
			c.logger.Debug("recognition.cache.hit", "job_id", jobID)
			return res, nil
		}
	}

	res, err := c.client.Status(ctx, jobID, feature)
	if err != nil || !res.Status.Terminal() {
		return res, err
	}

	if raw, mErr := json.Marshal(res); mErr == nil {
		if sErr := c.cache.Set(ctx, key, raw, c.ttl); sErr != nil {
			c.logger.Warn("recognition.cache.set_failed", "job_id", jobID, "err", sErr)
		}
	}
	return res, nil
}
