package worker

import (
	"context"
	"testing"

	"github.com/leadscout/leadscout-api/internal/config"
	"github.com/leadscout/leadscout-api/internal/provider"
	"github.com/leadscout/leadscout-api/internal/queue"

	"github.com/hibiken/asynq"
)

func TestNewServiceQueueDisabled(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	if _, err := NewService(&config.QueueConfig{Enabled: false}, consumer); err == nil {
		t.Fatal("expected error when queue is disabled")
	}
	if _, err := NewService(nil, consumer); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewServiceNilConsumer(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatal("expected error for nil consumer")
	}
}

func TestHandleOrderTimeoutCancelInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskOrderTimeoutCancel, []byte(`{"order_id":0}`))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("zero order id should be skipped, got error: %v", err)
	}
}

func TestHandleTrackingAggregateUnmarshalError(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskTrackingAggregate, []byte("not-json"))
	if err := consumer.handleTrackingAggregate(context.Background(), task); err == nil {
		t.Fatal("expected unmarshal error for malformed payload")
	}
}

func TestHandleWithdrawalEmailInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskWithdrawalResultEmail, []byte(`{"withdrawal_id":0}`))
	if err := consumer.handleWithdrawalResultEmail(context.Background(), task); err != nil {
		t.Fatalf("zero withdrawal id should be skipped, got error: %v", err)
	}
}
