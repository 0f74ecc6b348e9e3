//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=../mocks/mock_message_index.go -package=mocks
// Package search maintains a Bluge full-text index over stored message
// content. The index is fed after a durable append and queried by the
// search endpoint; it is best-effort and never blocks the write path.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"duochat/domain"
)

type IMessageIndex interface {
	Index(msg domain.Message, conversationID string) error
	Search(ctx context.Context, userID, query string, limit int) ([]Hit, error)
	Close() error
}

// Hit is one search result reconstructed from stored fields.
type Hit struct {
	MessageID      string
	ConversationID string
	Sender         string
	Recipient      string
	Content        string
	Timestamp      time.Time
}

type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Open creates or opens the index at the given path.
func Open(path string, log *slog.Logger) (*MessageIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return NewMessageIndex(writer, log), nil
}

// Index upserts one message document. Keyed by message id, so redelivered
// events overwrite rather than duplicate.
func (i *MessageIndex) Index(msg domain.Message, conversationID string) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField("sender", msg.Sender).StoreValue()).
		AddField(bluge.NewKeywordField("recipient", msg.Recipient).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", conversationID).StoreValue()).
		AddField(bluge.NewKeywordField("at", msg.Timestamp.UTC().Format(time.RFC3339Nano)).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns messages matching the query in any conversation the user
// participates in, best first.
func (i *MessageIndex) Search(ctx context.Context, userID, query string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			i.log.Warn("Failed to close index reader", "error", cerr)
		}
	}()

	participant := bluge.NewBooleanQuery().
		AddShould(bluge.NewTermQuery(userID).SetField("sender")).
		AddShould(bluge.NewTermQuery(userID).SetField("recipient")).
		SetMinShould(1)
	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content")).
		AddMust(participant)

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	match, err := iterator.Next()
	for err == nil && match != nil {
		var hit Hit
		verr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "conversation":
				hit.ConversationID = string(value)
			case "sender":
				hit.Sender = string(value)
			case "recipient":
				hit.Recipient = string(value)
			case "content":
				hit.Content = string(value)
			case "at":
				if ts, perr := time.Parse(time.RFC3339Nano, string(value)); perr == nil {
					hit.Timestamp = ts
				}
			}
			return true
		})
		if verr != nil {
			return nil, verr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (i *MessageIndex) Close() error {
	return i.writer.Close()
}
