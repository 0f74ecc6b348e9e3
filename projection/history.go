// Package projection rebuilds per-user message views from stored
// conversations. Handles gathering, filtering, and chronological ordering.
// It never mutates conversation state.
package projection

import (
	"sort"

	"github.com/samber/lo"

	"duochat/domain"
	"duochat/repositories"
)

// History is the read side of the messaging core. It merges every
// conversation containing a user and imposes timestamp order at read time,
// independent of storage order.
type History struct {
	conversations repositories.IConversationRepository
}

func NewHistory(conversations repositories.IConversationRepository) *History {
	return &History{conversations: conversations}
}

// SentBy returns every message the user sent, across all conversations,
// ascending by timestamp. Timestamp ties break on the append arrival key,
// which is deterministic for a given store state.
func (h *History) SentBy(userID string) ([]domain.Message, error) {
	return h.collect(userID, func(m repositories.DiskMessage) bool {
		return m.Sender == userID
	})
}

// ReceivedBy returns every message the user received, optionally restricted
// to one sender. An empty result is a valid outcome, not an error.
func (h *History) ReceivedBy(userID string, from *string) ([]domain.Message, error) {
	return h.collect(userID, func(m repositories.DiskMessage) bool {
		if m.Recipient != userID {
			return false
		}
		return from == nil || m.Sender == *from
	})
}

// ConversationWith returns the full conversation between two users, messages
// in append order. Absence surfaces as ErrConversationNotFound.
func (h *History) ConversationWith(userID, otherID string) (domain.Conversation, error) {
	pair, err := domain.NewParticipantPair(userID, otherID)
	if err != nil {
		return domain.Conversation{}, err
	}
	convID, err := h.conversations.FindByParticipants(pair)
	if err != nil {
		return domain.Conversation{}, err
	}
	conv, err := h.conversations.GetConversation(convID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv.ToConversation(), nil
}

func (h *History) collect(userID string, keep func(repositories.DiskMessage) bool) ([]domain.Message, error) {
	conversations, err := h.conversations.FindByParticipant(userID)
	if err != nil {
		return nil, err
	}

	var gathered []repositories.DiskMessage
	for _, conv := range conversations {
		for _, msg := range conv.Messages {
			if keep(msg) {
				gathered = append(gathered, msg)
			}
		}
	}

	sort.Slice(gathered, func(i, j int) bool {
		if !gathered[i].At.Equal(gathered[j].At) {
			return gathered[i].At.Before(gathered[j].At)
		}
		return gathered[i].ArrivalKey < gathered[j].ArrivalKey
	})

	return lo.Map(gathered, func(m repositories.DiskMessage, _ int) domain.Message {
		return m.ToMessage()
	}), nil
}
