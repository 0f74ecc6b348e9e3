//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"duochat/domain"
	"duochat/errors"
)

// appendRetries bounds transaction retries when concurrent appends to the
// same conversation collide on commit.
const appendRetries = 10

type IConversationRepository interface {
	CreateConversation(pair domain.ParticipantPair, initial domain.Message) (string, error)
	AppendMessage(conversationID string, msg domain.Message) (bool, error)
	FindByParticipants(pair domain.ParticipantPair) (string, error)
	FindByParticipant(userID string) ([]DiskConversation, error)
	GetConversation(id string) (DiskConversation, error)
}

// ConversationRepository owns conversation identity allocation and the
// append operation. No other component mutates conversation state.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

// seq disambiguates messages committed within the same nanosecond.
var seq uint64

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

// DiskMessage is the storage representation of a message. ArrivalKey is the
// commit-ordered key suffix, kept so read-side sorting has a deterministic
// tie-break when timestamps collide.
type DiskMessage struct {
	ID         uuid.UUID `json:"id"`
	Sender     string    `json:"sender"`
	Recipient  string    `json:"recipient"`
	Content    string    `json:"content"`
	At         time.Time `json:"at"`
	ArrivalKey string    `json:"arrival_key"`
}

// DiskConversation is the storage representation of a conversation aggregate,
// messages in append-commit order.
type DiskConversation struct {
	ID           string                 `json:"id"`
	Participants domain.ParticipantPair `json:"participants"`
	Messages     []DiskMessage          `json:"-"`
}

// Key layout:
//
//	conv:{conversation_id}                  -> conversation record (JSON)
//	pair:{low}|{high}                       -> conversation id (uniqueness anchor)
//	user-conv:{user_id}:{conversation_id}   -> "" (containment index)
//	msg:{conversation_id}:{arrival_key}     -> message record (JSON)
//	dedup:{conversation_id}:{message_id}    -> "" (redelivery guard)
//
// The arrival key is "%019d-%06d" (commit nanos, process sequence) so a
// forward prefix scan yields messages in append order.
func convKey(id string) []byte               { return []byte("conv:" + id) }
func pairKey(p domain.ParticipantPair) []byte { return []byte("pair:" + p.Key()) }
func userConvKey(userID, convID string) []byte {
	return []byte("user-conv:" + userID + ":" + convID)
}
func msgPrefix(convID string) string { return "msg:" + convID + ":" }
func dedupKey(convID string, msgID uuid.UUID) []byte {
	return []byte("dedup:" + convID + ":" + msgID.String())
}

func newArrivalKey() string {
	return fmt.Sprintf("%019d-%06d", time.Now().UTC().UnixNano(), atomic.AddUint64(&seq, 1))
}

// CreateConversation allocates a new id and persists the conversation with
// exactly one message, atomically with the uniqueness check on the pair key.
// A concurrent creator that wins the race surfaces as ErrDuplicateConversation,
// either through the pre-commit check or through a Badger commit conflict.
func (r ConversationRepository) CreateConversation(pair domain.ParticipantPair, initial domain.Message) (string, error) {
	convID := uuid.NewString()
	record, err := json.Marshal(DiskConversation{ID: convID, Participants: pair})
	if err != nil {
		return "", fmt.Errorf("marshal conversation: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(pairKey(pair))
		switch {
		case err == nil:
			return errors.ErrDuplicateConversation
		case !goerrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set(pairKey(pair), []byte(convID)); err != nil {
			return err
		}
		if err := txn.Set(convKey(convID), record); err != nil {
			return err
		}
		if err := txn.Set(userConvKey(pair.Low, convID), nil); err != nil {
			return err
		}
		if err := txn.Set(userConvKey(pair.High, convID), nil); err != nil {
			return err
		}
		return r.writeMessage(txn, convID, initial)
	})
	if goerrors.Is(err, badger.ErrConflict) {
		// Another transaction touched the pair key between our read and
		// commit: the race was lost, the caller falls back to append.
		return "", errors.ErrDuplicateConversation
	}
	if err != nil {
		return "", err
	}
	r.log.Debug("Conversation created", "conversation_id", convID, "pair", pair.String())
	return convID, nil
}

// AppendMessage appends to an existing conversation. The effect is atomic:
// concurrent appends to the same conversation serialize through Badger's
// conflict detection and are retried here. Redelivery of an already stored
// message id is a no-op, reported by returning false.
func (r ConversationRepository) AppendMessage(conversationID string, msg domain.Message) (bool, error) {
	var appended bool
	var err error
	for attempt := 0; attempt <= appendRetries; attempt++ {
		appended, err = r.tryAppend(conversationID, msg)
		if !goerrors.Is(err, badger.ErrConflict) {
			return appended, err
		}
	}
	return false, fmt.Errorf("append to conversation %s: %w", conversationID, err)
}

func (r ConversationRepository) tryAppend(conversationID string, msg domain.Message) (bool, error) {
	appended := false
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(convKey(conversationID)); err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrConversationNotFound
			}
			return err
		}
		if _, err := txn.Get(dedupKey(conversationID, msg.ID)); err == nil {
			r.log.Debug("Duplicate delivery ignored",
				"conversation_id", conversationID, "message_id", msg.ID)
			return nil
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := r.writeMessage(txn, conversationID, msg); err != nil {
			return err
		}
		appended = true
		return nil
	})
	return appended, err
}

func (r ConversationRepository) writeMessage(txn *badger.Txn, convID string, msg domain.Message) error {
	arrival := newArrivalKey()
	data, err := json.Marshal(fromMessage(msg, arrival))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := txn.Set([]byte(msgPrefix(convID)+arrival), data); err != nil {
		return err
	}
	return txn.Set(dedupKey(convID, msg.ID), nil)
}

// FindByParticipants resolves the exact participant pair to a conversation
// id. Absence is reported as ErrConversationNotFound, an expected outcome.
func (r ConversationRepository) FindByParticipants(pair domain.ParticipantPair) (string, error) {
	var convID string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(pair))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrConversationNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			convID = string(val)
			return nil
		})
	})
	return convID, err
}

// FindByParticipant returns every conversation containing the given user id,
// each with its full message sequence. No ordering guarantee across
// conversations; the read side re-sorts.
func (r ConversationRepository) FindByParticipant(userID string) ([]DiskConversation, error) {
	var ids []string
	prefixStr := "user-conv:" + userID + ":"
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefixStr):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	conversations := make([]DiskConversation, 0, len(ids))
	for _, id := range ids {
		conv, err := r.GetConversation(id)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

// GetConversation loads one conversation record plus its ordered messages.
func (r ConversationRepository) GetConversation(id string) (DiskConversation, error) {
	var conv DiskConversation
	var rawMessages [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(convKey(id))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrConversationNotFound
			}
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		}); err != nil {
			return err
		}

		prefix := []byte(msgPrefix(id))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				cp := make([]byte, len(val))
				copy(cp, val)
				rawMessages = append(rawMessages, cp)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return DiskConversation{}, err
	}

	for _, raw := range rawMessages {
		var dm DiskMessage
		if err := json.Unmarshal(raw, &dm); err != nil {
			return DiskConversation{}, fmt.Errorf("corrupt message record in %s: %w", id, err)
		}
		conv.Messages = append(conv.Messages, dm)
	}
	return conv, nil
}

func fromMessage(msg domain.Message, arrivalKey string) DiskMessage {
	return DiskMessage{
		ID:         msg.ID,
		Sender:     msg.Sender,
		Recipient:  msg.Recipient,
		Content:    msg.Content,
		At:         msg.Timestamp.UTC(),
		ArrivalKey: arrivalKey,
	}
}

// ToConversation converts the storage aggregate back to the domain shape.
func (d DiskConversation) ToConversation() domain.Conversation {
	messages := make([]domain.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		messages = append(messages, m.ToMessage())
	}
	return domain.Conversation{
		ID:           d.ID,
		Participants: d.Participants,
		Messages:     messages,
	}
}

// ToMessage converts the storage representation back to the domain message.
func (d DiskMessage) ToMessage() domain.Message {
	return domain.Message{
		ID:        d.ID,
		Sender:    d.Sender,
		Recipient: d.Recipient,
		Content:   d.Content,
		Timestamp: d.At,
	}
}

// CountMessages is used by the inspect tooling only.
func (r ConversationRepository) CountMessages(conversationID string) (int, error) {
	count := 0
	prefix := []byte(msgPrefix(conversationID))
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
