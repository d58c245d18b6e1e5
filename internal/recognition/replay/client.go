package replay

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/recognition"
	"github.com/joseph-ayodele/form-extractor/internal/schema"
)

var _ recognition.Client = (*Client)(nil)

//go:embed schema.json
var recordingSchema []byte

// Recording is one stored backend response.
type Recording struct {
	JobStatus     string         `json:"job_status"`
	StatusMessage string         `json:"status_message,omitempty"`
	PendingPolls  int            `json:"pending_polls,omitempty"`
	Blocks        []entity.Block `json:"blocks,omitempty"`
}

// Client serves recorded responses from <dir>/<document_id>.json, falling
// back to the document's filename stem. A recording may ask for a number
// of IN_PROGRESS answers before its terminal status.
type Client struct {
	dir    string
	schema *schema.Schema
	logger *slog.Logger

	mu    sync.Mutex
	polls map[string]int
}

func New(dir string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := schema.Compile("recording.json", recordingSchema)
	if err != nil {
		return nil, err
	}
	return &Client{dir: dir, schema: s, logger: logger, polls: make(map[string]int)}, nil
}

func (c *Client) Submit(_ context.Context, doc entity.Document, feature constants.Feature) (string, error) {
	for _, key := range candidateKeys(doc) {
		if _, err := os.Stat(c.path(key)); err == nil {
			c.mu.Lock()
			delete(c.polls, key)
			c.mu.Unlock()
			c.logger.Info("replay.job.started", "job_id", key, "document_id", doc.ID, "feature", feature)
			return key, nil
		}
	}
	return "", fmt.Errorf("replay: no recording for document %s in %s", doc.ID, c.dir)
}

func (c *Client) Status(_ context.Context, jobID string, _ constants.Feature) (recognition.StatusResult, error) {
	raw, err := os.ReadFile(c.path(jobID))
	if errors.Is(err, os.ErrNotExist) {
		return recognition.StatusResult{}, common.NewAppError("NOT_FOUND", "unknown replay job "+jobID, common.ErrNotFound)
	}
	if err != nil {
		return recognition.StatusResult{}, fmt.Errorf("replay: read %s: %w", jobID, err)
	}
	if err := c.schema.Validate(raw); err != nil {
		return recognition.StatusResult{}, common.MalformedResult("replay %s: %v", jobID, err)
	}

	var rec Recording
	if err := json.Unmarshal(raw, &rec); err != nil {
		return recognition.StatusResult{}, common.MalformedResult("replay %s: %v", jobID, err)
	}

	c.mu.Lock()
	seen := c.polls[jobID]
	c.polls[jobID] = seen + 1
	c.mu.Unlock()
	if seen < rec.PendingPolls {
		return recognition.StatusResult{Status: constants.JobStatusInProgress}, nil
	}

	res := recognition.StatusResult{Message: rec.StatusMessage}
	switch rec.JobStatus {
	case "SUCCEEDED":
		res.Status = constants.JobStatusSucceeded
	case "PARTIAL_SUCCESS":
		res.Status = constants.JobStatusSucceeded
		res.Warnings = append(res.Warnings, "recording reported PARTIAL_SUCCESS")
	default:
		res.Status = constants.JobStatus(rec.JobStatus)
	}
	if res.Status == constants.JobStatusSucceeded {
		res.Blocks = rec.Blocks
	}
	return res, nil
}

func (c *Client) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func candidateKeys(doc entity.Document) []string {
	var keys []string
	if safeKey(doc.ID) {
		keys = append(keys, doc.ID)
	}
	base := filepath.Base(doc.Filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if safeKey(stem) && stem != doc.ID {
		keys = append(keys, stem)
	}
	return keys
}

func safeKey(k string) bool {
	return k != "" && k != "." && k != ".." && !strings.ContainsAny(k, `/\`)
}
