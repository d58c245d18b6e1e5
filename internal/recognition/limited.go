package recognition

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

type limitedClient struct {
	limiter *rate.Limiter
	client  Client
}

// NewLimited throttles every backend call through l. A nil limiter passes calls through.
func NewLimited(l *rate.Limiter, c Client) Client {
	return &limitedClient{limiter: l, client: c}
}

func (c *limitedClient) Submit(ctx context.Context, doc entity.Document, feature constants.Feature) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.client.Submit(ctx, doc, feature)
}

func (c *limitedClient) Status(ctx context.Context, jobID string, feature constants.Feature) (StatusResult, error) {
	if err := c.wait(ctx); err != nil {
		return StatusResult{}, err
	}
	return c.client.Status(ctx, jobID, feature)
}

func (c *limitedClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
