package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker
//
// The function is subscribed to SQS_QUEUE_URL. Every batch is a wakeup: the
// handler drains runnable jobs from Postgres and the messages themselves
// carry no work.

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"docuflow/internal/bootstrap"
	"docuflow/internal/queue"
	"docuflow/internal/shared/config"
	"docuflow/internal/shared/telemetry"
)

// drainer runs runnable jobs until the queue is empty.
type drainer interface {
	Drain(ctx context.Context) (int, error)
}

var (
	initOnce sync.Once
	initErr  error
	worker   drainer
)

func initApp() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	telemetry.Setup(cfg.LogLevel, cfg.LogPretty)
	app, err := bootstrap.Build(context.Background(), cfg, bootstrap.RoleWorker)
	if err != nil {
		initErr = err
		return
	}
	worker = app.Worker
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		return failAll(event), initErr
	}
	return handle(ctx, worker, event), nil
}

func handle(ctx context.Context, w drainer, event events.SQSEvent) events.SQSEventResponse {
	for _, record := range event.Records {
		if _, err := queue.DecodeMessage([]byte(record.Body)); err != nil {
			telemetry.Warn("lambda.message_ignored", map[string]any{"message_id": record.MessageId, "error": err.Error()})
		}
	}
	n, err := w.Drain(ctx)
	if err != nil {
		telemetry.Error("lambda.drain_failed", map[string]any{"error": err.Error(), "processed": n})
		return failAll(event)
	}
	telemetry.Info("lambda.drained", map[string]any{"processed": n, "messages": len(event.Records)})
	return events.SQSEventResponse{}
}

// failAll reports every record so SQS redelivers the batch.
func failAll(event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
	for _, record := range event.Records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
