//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"duochat/domain"
	"duochat/projection"
	"duochat/search"
	"duochat/transport"
)

var validate = validator.New()

type IMessageService interface {
	SendMessage(ctx context.Context, cmd SendMessageCommand) (domain.Message, error)
	SentMessages(userID string) ([]domain.Message, error)
	ReceivedMessages(userID string, from *string) ([]domain.Message, error)
	ConversationWith(userID, otherID string) (domain.Conversation, error)
	SearchMessages(ctx context.Context, userID, query string, limit int) ([]domain.Message, error)
}

// SendMessageCommand is the submission intent coming from the HTTP boundary.
// Timestamp is optional; a zero value means "now".
type SendMessageCommand struct {
	Sender    string `validate:"required"`
	Recipient string `validate:"required"`
	Content   string `validate:"required,max=4096"`
	Timestamp time.Time
}

// MessageService is the synchronous face of the messaging core: it validates
// and publishes submissions, and serves the read-side views. Durable
// persistence happens asynchronously in the ingest workers.
type MessageService struct {
	queue   transport.IMessageTransport
	history *projection.History
	index   search.IMessageIndex
	log     *slog.Logger
}

func NewMessageService(queue transport.IMessageTransport, history *projection.History,
	index search.IMessageIndex, log *slog.Logger) *MessageService {
	return &MessageService{queue: queue, history: history, index: index, log: log}
}

// SendMessage validates the submission and publishes it onto the transport.
// The returned message carries the assigned dedup id; the caller gets no
// confirmation of durable storage, only of acceptance.
func (s *MessageService) SendMessage(ctx context.Context, cmd SendMessageCommand) (domain.Message, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Message{}, fmt.Errorf("invalid message submission: %w", err)
	}
	msg, err := domain.NewMessage(cmd.Sender, cmd.Recipient, cmd.Content, cmd.Timestamp)
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.queue.Publish(ctx, domain.EventFromMessage(msg)); err != nil {
		return domain.Message{}, err
	}
	s.log.Debug("Message submission accepted", "message_id", msg.ID, "sender", msg.Sender)
	return msg, nil
}

func (s *MessageService) SentMessages(userID string) ([]domain.Message, error) {
	return s.history.SentBy(userID)
}

func (s *MessageService) ReceivedMessages(userID string, from *string) ([]domain.Message, error) {
	return s.history.ReceivedBy(userID, from)
}

func (s *MessageService) ConversationWith(userID, otherID string) (domain.Conversation, error) {
	return s.history.ConversationWith(userID, otherID)
}

// SearchMessages runs a full-text query over the user's conversations,
// results in chronological order.
func (s *MessageService) SearchMessages(ctx context.Context, userID, query string, limit int) ([]domain.Message, error) {
	hits, err := s.index.Search(ctx, userID, query, limit)
	if err != nil {
		return nil, err
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Timestamp.Before(hits[j].Timestamp)
	})
	return lo.Map(hits, func(h search.Hit, _ int) domain.Message {
		return domain.Message{
			ID:        parseUUID(h.MessageID),
			Sender:    h.Sender,
			Recipient: h.Recipient,
			Content:   h.Content,
			Timestamp: h.Timestamp,
		}
	}), nil
}

func parseUUID(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
}
