package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// API is the subset of the SQS client the manager uses.
type API interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSManager struct {
	Client      API
	InputQueue  string
	OutputQueue string
}

func NewSQSManager(client API, inputQueue, outputQueue string) *SQSManager {
	return &SQSManager{
		Client:      client,
		InputQueue:  inputQueue,
		OutputQueue: outputQueue,
	}
}

const (
	maxReceiveBatch   = 10
	minVisibility     = 5 * time.Minute
	maxVisibility     = 12 * time.Hour
	visibilityHeadway = time.Minute
)

// VisibilityFor returns a visibility timeout that outlasts a run bounded by
// processTimeout, so a message is not redelivered while it is still being worked.
func VisibilityFor(processTimeout time.Duration) time.Duration {
	if processTimeout <= 0 {
		return maxVisibility
	}
	return min(max(processTimeout+visibilityHeadway, minVisibility), maxVisibility)
}

// ReceiveMessages long-polls for at most limit messages, hidden from other
// consumers for visibility.
func (m *SQSManager) ReceiveMessages(ctx context.Context, limit int, visibility time.Duration) ([]types.Message, error) {
	limit = min(max(limit, 1), maxReceiveBatch)
	output, err := m.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(m.InputQueue),
		MaxNumberOfMessages: int32(limit),
		WaitTimeSeconds:     20,
		VisibilityTimeout:   int32(visibility / time.Second),
	})
	if err != nil {
		return nil, err
	}
	return output.Messages, nil
}

func (m *SQSManager) DeleteMessage(ctx context.Context, receiptHandle string) error {
	_, err := m.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(m.InputQueue),
		ReceiptHandle: aws.String(receiptHandle),
	})
	return err
}

func (m *SQSManager) SendResult(ctx context.Context, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = m.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(m.OutputQueue),
		MessageBody: aws.String(string(data)),
	})
	if err != nil {
		return fmt.Errorf("send message to output queue: %w", err)
	}
	return nil
}
