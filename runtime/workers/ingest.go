package workers

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"

	"duochat/domain"
	"duochat/errors"
	"duochat/moderation"
	"duochat/observability"
	"duochat/repositories"
	"duochat/search"
	"duochat/services"
)

// IngestWorker consumes accepted message events and makes them durable.
// It owns the only write path into conversations: resolve the participant
// pair, append when the conversation exists, otherwise create it with the
// message as initial content. Exactly one ingester wins a concurrent create
// for the same pair; every loser falls back to appending.
type IngestWorker struct {
	events        <-chan domain.MessageEvent
	conversations repositories.IConversationRepository
	resolver      services.IConversationResolver
	moderator     *moderation.Moderator
	index         search.IMessageIndex
	metrics       *observability.Metrics
	log           *slog.Logger
}

// NewIngestWorker wires the pipeline. moderator and index are optional;
// nil disables censoring and search indexing respectively.
func NewIngestWorker(
	events <-chan domain.MessageEvent,
	conversations repositories.IConversationRepository,
	resolver services.IConversationResolver,
	moderator *moderation.Moderator,
	index search.IMessageIndex,
	metrics *observability.Metrics,
	log *slog.Logger,
) *IngestWorker {
	return &IngestWorker{
		events:        events,
		conversations: conversations,
		resolver:      resolver,
		moderator:     moderator,
		index:         index,
		metrics:       metrics,
		log:           log,
	}
}

func (w *IngestWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.handle(evt)
		}
	}
}

func (w *IngestWorker) handle(evt domain.MessageEvent) {
	msg := evt.ToMessage()
	if err := msg.Validate(); err != nil {
		// Invalid events never become valid; drop instead of poisoning
		// the queue.
		w.metrics.IngestFailures.Inc()
		w.log.Warn("Dropping invalid message event", "message_id", evt.MessageID, "err", err)
		return
	}

	if w.moderator != nil {
		sanitized, foundWords := w.moderator.Censor(msg.Content)
		if len(foundWords) > 0 {
			w.log.Warn("Message content censored",
				"message_id", msg.ID, "sender", msg.Sender, "words", foundWords)
			msg.Content = sanitized
		}
	}

	convID, appended, err := w.ingest(msg)
	if err != nil {
		w.metrics.IngestFailures.Inc()
		w.log.Error("Message ingestion failed",
			"message_id", msg.ID, "sender", msg.Sender, "recipient", msg.Recipient, "err", err)
		return
	}
	if !appended {
		w.metrics.DuplicateDeliveries.Inc()
		return
	}
	w.metrics.MessagesIngested.Inc()

	// Indexing happens after the durable write; a failure here loses search
	// visibility for one message, never the message itself.
	if w.index != nil {
		if err := w.index.Index(msg, convID); err != nil {
			w.log.Error("Search indexing failed", "message_id", msg.ID, "err", err)
		}
	}
}

// ingest runs the create-or-append protocol and returns the conversation the
// message landed in, along with whether this delivery stored it (false for a
// deduplicated redelivery).
func (w *IngestWorker) ingest(msg domain.Message) (string, bool, error) {
	convID, found, err := w.resolver.Resolve(msg.Sender, msg.Recipient)
	if err != nil {
		return "", false, err
	}
	if found {
		appended, err := w.conversations.AppendMessage(convID, msg)
		if err == nil {
			return convID, appended, nil
		}
		if !goerrors.Is(err, errors.ErrConversationNotFound) {
			return "", false, err
		}
		// The resolve was stale: the conversation vanished between lookup
		// and append. Fall through to creation.
		w.metrics.StaleResolveRetries.Inc()
	}

	pair, err := domain.NewParticipantPair(msg.Sender, msg.Recipient)
	if err != nil {
		return "", false, err
	}
	createdID, err := w.conversations.CreateConversation(pair, msg)
	if err == nil {
		w.metrics.ConversationsCreated.Inc()
		w.log.Info("Conversation created", "conversation_id", createdID, "pair", pair.String())
		return createdID, true, nil
	}
	if !goerrors.Is(err, errors.ErrDuplicateConversation) {
		return "", false, err
	}

	// Lost the creation race: a conversation for this pair now exists, so a
	// second resolve cannot miss.
	w.metrics.CreateRaceFallbacks.Inc()
	convID, found, err = w.resolver.Resolve(msg.Sender, msg.Recipient)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, fmt.Errorf("conversation missing after duplicate signal for pair %s", pair.String())
	}
	appended, err := w.conversations.AppendMessage(convID, msg)
	if err != nil {
		return "", false, err
	}
	return convID, appended, nil
}
