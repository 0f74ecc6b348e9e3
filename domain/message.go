// Package domain contains core concepts of the messaging system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"

	"duochat/errors"
)

// Message represents one immutable direct message between two users.
// ID doubles as the deduplication key across transport redeliveries:
// it is assigned once at submission and kept for the lifetime of the event.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds a validated message with a fresh dedup ID.
func NewMessage(sender, recipient, content string, at time.Time) (Message, error) {
	if sender == recipient {
		return Message{}, errors.ErrInvalidRecipient
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Message{
		ID:        uuid.New(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Timestamp: at.UTC(),
	}, nil
}

// Validate re-checks the hard invariant on messages that crossed the
// transport. Redelivered events are validated again before any store access.
func (m Message) Validate() error {
	if m.Sender == m.Recipient {
		return errors.ErrInvalidRecipient
	}
	return nil
}
