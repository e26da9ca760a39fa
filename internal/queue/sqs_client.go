package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"docuflow/internal/shared/cache"
	"docuflow/internal/shared/telemetry"
)

const (
	defaultRegion   = "us-east-1"
	waitTimeSeconds = 20
	receiveBatch    = 10
	errorBackoff    = 5 * time.Second
)

// SQSSignals publishes job wakeups to an SQS queue. It satisfies
// cache.Signals, so the worker can block on SQS instead of redis pub/sub,
// and an SQS-triggered Lambda can react to the same messages.
type SQSSignals struct {
	client   API
	queueURL string
	now      func() time.Time
}

// NewSQSSignals builds an SQS client from the default AWS credential chain.
func NewSQSSignals(ctx context.Context, region, queueURL string) (*SQSSignals, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("SQS_QUEUE_URL is required")
	}
	if strings.TrimSpace(region) == "" {
		region = defaultRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(sqs.NewFromConfig(cfg), queueURL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, queueURL string) *SQSSignals {
	return &SQSSignals{client: client, queueURL: queueURL, now: time.Now}
}

// Signal sends one wakeup message for channel.
func (s *SQSSignals) Signal(ctx context.Context, channel string) error {
	payload, err := EncodeMessage(Message{
		Channel: channel,
		SentAt:  s.now().UTC().Format(time.RFC3339Nano),
		Version: messageVersion,
	})
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

// Listen long-polls the queue until ctx ends. Each received message for
// channel produces at most one pending wakeup; messages are deleted once
// read whatever their channel.
func (s *SQSSignals) Listen(ctx context.Context, channel string) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			if err := s.receive(ctx, channel, out); err != nil && ctx.Err() == nil {
				telemetry.Warn("queue.receive_failed", map[string]any{"error": err.Error()})
				select {
				case <-ctx.Done():
				case <-time.After(errorBackoff):
				}
			}
		}
	}()
	return out, nil
}

func (s *SQSSignals) receive(ctx context.Context, channel string, out chan<- struct{}) error {
	res, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: receiveBatch,
		WaitTimeSeconds:     waitTimeSeconds,
	})
	if err != nil {
		return fmt.Errorf("sqs receive message: %w", err)
	}
	wake := false
	for _, m := range res.Messages {
		if msg, err := DecodeMessage([]byte(aws.ToString(m.Body))); err == nil && msg.Channel == channel {
			wake = true
		}
		if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(s.queueURL),
			ReceiptHandle: m.ReceiptHandle,
		}); err != nil {
			telemetry.Warn("queue.delete_failed", map[string]any{"error": err.Error()})
		}
	}
	if wake {
		select {
		case out <- struct{}{}:
		default:
		}
	}
	return nil
}

var _ cache.Signals = (*SQSSignals)(nil)
