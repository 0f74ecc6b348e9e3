//go:generate go run go.uber.org/mock/mockgen -source=queue.go -destination=../mocks/mock_transport.go -package=mocks
// Package transport carries submitted message events from the HTTP boundary
// to the ingest workers. Delivery is at-least-once: Requeue may hand the
// same event to a consumer again, and consumers must tolerate duplicates.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"duochat/domain"
)

type IMessageTransport interface {
	Publish(ctx context.Context, evt domain.MessageEvent) error
	Requeue(ctx context.Context, evt domain.MessageEvent) error
	Events() <-chan domain.MessageEvent
	Close()
}

// Queue is a bounded in-process transport. It stands in for the broker the
// deployment plugs in between the API and the workers; the consumption
// channel is the only suspension point of the ingest pipeline.
type Queue struct {
	events    chan domain.MessageEvent
	log       *slog.Logger
	closeOnce sync.Once
}

func NewQueue(bufferSize int, log *slog.Logger) *Queue {
	return &Queue{
		events: make(chan domain.MessageEvent, bufferSize),
		log:    log,
	}
}

// Publish enqueues one event. It blocks when the buffer is full so callers
// inherit the broker's flow control rather than dropping messages.
func (q *Queue) Publish(ctx context.Context, evt domain.MessageEvent) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("publish message %s: %w", evt.MessageID, ctx.Err())
	case q.events <- evt:
		q.log.Debug("Message event published", "message_id", evt.MessageID,
			"sender", evt.Sender, "recipient", evt.Recipient)
		return nil
	}
}

// Requeue re-enqueues an event whose processing did not complete. This is
// the redelivery half of at-least-once: the event keeps its message id, so
// a partially applied first attempt stays idempotent downstream.
func (q *Queue) Requeue(ctx context.Context, evt domain.MessageEvent) error {
	q.log.Warn("Redelivering message event", "message_id", evt.MessageID)
	return q.Publish(ctx, evt)
}

// Depth reports the number of buffered events awaiting consumption.
func (q *Queue) Depth() int {
	return len(q.events)
}

// Capacity reports the buffer size the queue was created with.
func (q *Queue) Capacity() int {
	return cap(q.events)
}

// Events exposes the consumption channel shared by all ingest workers.
func (q *Queue) Events() <-chan domain.MessageEvent {
	return q.events
}

// Close stops the queue. Pending buffered events are still drained by
// consumers before their channel reads report closure.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.events)
	})
}
