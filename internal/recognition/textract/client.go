package textract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/aws/smithy-go"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/recognition"
	"github.com/joseph-ayodele/form-extractor/internal/storage"
)

var _ recognition.Client = (*Client)(nil)

const (
	jobTag        = "form-extractor"
	maxPageBlocks = int32(1000)
)

// API is the subset of the textract client used by the adapter.
type API interface {
	StartDocumentTextDetection(ctx context.Context, in *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error)
	GetDocumentTextDetection(ctx context.Context, in *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error)
	StartDocumentAnalysis(ctx context.Context, in *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error)
	GetDocumentAnalysis(ctx context.Context, in *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error)
}

// Client runs asynchronous textract jobs over documents staged in S3.
type Client struct {
	api    API
	store  storage.Store
	prefix string
	logger *slog.Logger
}

type Option func(*Client)

// WithPrefix sets the key prefix documents are staged under.
func WithPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = prefix }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(api API, store storage.Store, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("textract: nil api")
	}
	if store == nil {
		return nil, errors.New("textract: nil store")
	}
	c := &Client{api: api, store: store, prefix: "uploads", logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit stages the document (unless it already lives in the store) and starts the job.
func (c *Client) Submit(ctx context.Context, doc entity.Document, feature constants.Feature) (string, error) {
	loc, err := c.stage(ctx, doc)
	if err != nil {
		return "", err
	}

	docLoc := &types.DocumentLocation{S3Object: &types.S3Object{
		Bucket: aws.String(loc.Bucket),
		Name:   aws.String(loc.Key),
	}}
	token := requestToken(doc.ID, feature)

	var jobID *string
	switch feature {
	case constants.FeatureText:
		out, err := c.api.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
			DocumentLocation:   docLoc,
			ClientRequestToken: aws.String(token),
			JobTag:             aws.String(jobTag),
		})
		if err != nil {
			return "", describe("start text detection", err)
		}
		jobID = out.JobId
	case constants.FeatureForms:
		out, err := c.api.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
			DocumentLocation:   docLoc,
			FeatureTypes:       []types.FeatureType{types.FeatureTypeForms},
			ClientRequestToken: aws.String(token),
			JobTag:             aws.String(jobTag),
		})
		if err != nil {
			return "", describe("start document analysis", err)
		}
		jobID = out.JobId
	default:
		return "", fmt.Errorf("textract: unsupported feature %q", feature)
	}

	if aws.ToString(jobID) == "" {
		return "", errors.New("textract: start returned no job id")
	}
	c.logger.Info("textract.job.started",
		"job_id", aws.ToString(jobID),
		"document_id", doc.ID,
		"feature", feature,
		"bucket", loc.Bucket,
		"key", loc.Key,
	)
	return aws.ToString(jobID), nil
}

// Status checks the job once and, when it finished, follows pagination
// to collect every block.
func (c *Client) Status(ctx context.Context, jobID string, feature constants.Feature) (recognition.StatusResult, error) {
	var (
		res       recognition.StatusResult
		nextToken *string
		pages     int
	)
	for {
		p, err := c.fetch(ctx, jobID, feature, nextToken)
		if err != nil {
			return recognition.StatusResult{}, err
		}
		pages++

		if pages == 1 {
			res.Status = mapStatus(p.status)
			res.Message = aws.ToString(p.message)
			if p.status == types.JobStatusPartialSuccess {
				res.Warnings = append(res.Warnings, "textract reported PARTIAL_SUCCESS")
			}
			if res.Status != constants.JobStatusSucceeded {
				return res, nil
			}
		}

		res.Warnings = append(res.Warnings, p.warnings...)
		for i := range p.blocks {
			res.Blocks = append(res.Blocks, convertBlock(p.blocks[i]))
		}

		nextToken = p.next
		if aws.ToString(nextToken) == "" {
			break
		}
	}

	c.logger.Debug("textract.job.fetched", "job_id", jobID, "pages", pages, "blocks", len(res.Blocks))
	return res, nil
}

type page struct {
	status   types.JobStatus
	message  *string
	blocks   []types.Block
	next     *string
	warnings []string
}

func (c *Client) fetch(ctx context.Context, jobID string, feature constants.Feature, next *string) (page, error) {
	switch feature {
	case constants.FeatureText:
		out, err := c.api.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
			JobId:      aws.String(jobID),
			MaxResults: aws.Int32(maxPageBlocks),
			NextToken:  next,
		})
		if err != nil {
			return page{}, describe("get text detection", err)
		}
		return page{out.JobStatus, out.StatusMessage, out.Blocks, out.NextToken, convertWarnings(out.Warnings)}, nil
	case constants.FeatureForms:
		out, err := c.api.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:      aws.String(jobID),
			MaxResults: aws.Int32(maxPageBlocks),
			NextToken:  next,
		})
		if err != nil {
			return page{}, describe("get document analysis", err)
		}
		return page{out.JobStatus, out.StatusMessage, out.Blocks, out.NextToken, convertWarnings(out.Warnings)}, nil
	}
	return page{}, fmt.Errorf("textract: unsupported feature %q", feature)
}

func (c *Client) stage(ctx context.Context, doc entity.Document) (entity.ObjectLocation, error) {
	if doc.Location != nil && doc.Location.Key != "" {
		loc := *doc.Location
		if loc.Bucket == "" {
			loc.Bucket = c.store.Bucket()
		}
		return loc, nil
	}
	if len(doc.Content) == 0 {
		return entity.ObjectLocation{}, errors.New("textract: document has neither content nor location")
	}
	return c.store.Put(ctx, storage.DocumentKey(c.prefix, doc), doc.Content, doc.MediaType)
}

func mapStatus(s types.JobStatus) constants.JobStatus {
	switch s {
	case types.JobStatusSucceeded, types.JobStatusPartialSuccess:
		return constants.JobStatusSucceeded
	case types.JobStatusFailed:
		return constants.JobStatusFailed
	case types.JobStatusInProgress:
		return constants.JobStatusInProgress
	}
	return constants.JobStatusPending
}

// requestToken makes job starts idempotent per document and feature.
func requestToken(documentID string, feature constants.Feature) string {
	var b strings.Builder
	for _, r := range documentID + "-" + strings.ToLower(string(feature)) {
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	tok := b.String()
	if len(tok) > 64 {
		tok = tok[len(tok)-64:]
	}
	return tok
}

func describe(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("textract %s: %s: %w", op, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("textract %s: %w", op, err)
}
