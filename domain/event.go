package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageEvent is the wire shape carried by the transport between the
// submission endpoint and the ingest workers. Delivery is at-least-once:
// the same event may reach a worker more than once and must stay safe to
// re-process (the message ID is the dedup key).
type MessageEvent struct {
	MessageID uuid.UUID `json:"message_id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ToMessage converts the transport event back into the domain message.
func (e MessageEvent) ToMessage() Message {
	return Message{
		ID:        e.MessageID,
		Sender:    e.Sender,
		Recipient: e.Recipient,
		Content:   e.Content,
		Timestamp: e.Timestamp,
	}
}

// EventFromMessage builds the transport event for a validated message.
func EventFromMessage(m Message) MessageEvent {
	return MessageEvent{
		MessageID: m.ID,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}
