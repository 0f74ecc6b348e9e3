package transport

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"duochat/domain"
)

func Test_Publish_And_Consume(t *testing.T) {
	req := require.New(t)
	queue := NewQueue(4, slog.Default())
	defer queue.Close()

	msg, err := domain.NewMessage("a", "b", "hello", time.Now())
	req.NoError(err)
	evt := domain.EventFromMessage(msg)

	req.NoError(queue.Publish(context.Background(), evt))

	received := <-queue.Events()
	req.Equal(evt, received)
}

func Test_Publish_Blocks_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	queue := NewQueue(1, slog.Default())
	defer queue.Close()

	msg, err := domain.NewMessage("a", "b", "fill", time.Now())
	req.NoError(err)
	req.NoError(queue.Publish(context.Background(), domain.EventFromMessage(msg)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = queue.Publish(ctx, domain.EventFromMessage(msg))
	req.ErrorIs(err, context.DeadlineExceeded)
}

func Test_Requeue_Keeps_Message_Identity(t *testing.T) {
	req := require.New(t)
	queue := NewQueue(2, slog.Default())
	defer queue.Close()

	msg, err := domain.NewMessage("a", "b", "retry me", time.Now())
	req.NoError(err)
	evt := domain.EventFromMessage(msg)

	req.NoError(queue.Publish(context.Background(), evt))
	first := <-queue.Events()
	req.NoError(queue.Requeue(context.Background(), first))
	second := <-queue.Events()
	req.Equal(first.MessageID, second.MessageID)
}
