package projection

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"duochat/domain"
	"duochat/errors"
	"duochat/repositories"
)

func newHistory(t *testing.T) (*History, repositories.ConversationRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repository := repositories.NewConversationRepository(db, slog.Default())
	return NewHistory(repository), repository
}

func deliver(t *testing.T, repo repositories.ConversationRepository, sender, recipient, content string, at time.Time) {
	t.Helper()
	msg, err := domain.NewMessage(sender, recipient, content, at)
	require.NoError(t, err)
	pair, err := domain.NewParticipantPair(sender, recipient)
	require.NoError(t, err)

	convID, err := repo.FindByParticipants(pair)
	if err != nil {
		_, err = repo.CreateConversation(pair, msg)
		require.NoError(t, err)
		return
	}
	_, err = repo.AppendMessage(convID, msg)
	require.NoError(t, err)
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

// Mirrors the reference exchange: 420 writes to 6 and 8, 6 answers.
func Test_History_Sent_And_Received_Views(t *testing.T) {
	req := require.New(t)
	history, repo := newHistory(t)

	deliver(t, repo, "420", "6", "Hello", at(t, "2023-10-01T13:30:00Z"))
	deliver(t, repo, "6", "420", "hi back", at(t, "2023-10-01T13:30:30Z"))
	deliver(t, repo, "420", "8", "I was wondering", at(t, "2023-10-01T13:32:00Z"))

	sent, err := history.SentBy("420")
	req.NoError(err)
	req.Equal([]string{"Hello", "I was wondering"}, contents(sent))

	received, err := history.ReceivedBy("420", nil)
	req.NoError(err)
	req.Equal([]string{"hi back"}, contents(received))

	received6, err := history.ReceivedBy("420", lo.ToPtr("6"))
	req.NoError(err)
	req.Equal([]string{"hi back"}, contents(received6))

	received8, err := history.ReceivedBy("420", lo.ToPtr("8"))
	req.NoError(err)
	req.Empty(received8)
}

func Test_History_Sorts_Across_Conversations(t *testing.T) {
	req := require.New(t)
	history, repo := newHistory(t)

	// Interleaved timestamps across two conversations; storage order differs
	// from chronological order.
	deliver(t, repo, "alice", "bob", "third", at(t, "2023-10-01T10:03:00Z"))
	deliver(t, repo, "alice", "carol", "first", at(t, "2023-10-01T10:01:00Z"))
	deliver(t, repo, "alice", "bob", "fourth", at(t, "2023-10-01T10:04:00Z"))
	deliver(t, repo, "alice", "carol", "second", at(t, "2023-10-01T10:02:00Z"))

	sent, err := history.SentBy("alice")
	req.NoError(err)
	req.Equal([]string{"first", "second", "third", "fourth"}, contents(sent))
}

func Test_History_Timestamp_Ties_Are_Deterministic(t *testing.T) {
	req := require.New(t)
	history, repo := newHistory(t)

	same := at(t, "2023-10-01T12:00:00Z")
	deliver(t, repo, "alice", "bob", "one", same)
	deliver(t, repo, "alice", "bob", "two", same)
	deliver(t, repo, "alice", "bob", "three", same)

	first, err := history.SentBy("alice")
	req.NoError(err)
	second, err := history.SentBy("alice")
	req.NoError(err)
	// No specific tie-break is promised beyond stability across reads.
	req.Equal(contents(first), contents(second))
	req.Len(first, 3)
}

func Test_History_Empty_State(t *testing.T) {
	req := require.New(t)
	history, _ := newHistory(t)

	sent, err := history.SentBy("hermit")
	req.NoError(err)
	req.Empty(sent)

	received, err := history.ReceivedBy("hermit", nil)
	req.NoError(err)
	req.Empty(received)
}

func Test_History_ConversationWith(t *testing.T) {
	req := require.New(t)
	history, repo := newHistory(t)

	deliver(t, repo, "420", "6", "Hello", at(t, "2023-10-01T13:30:00Z"))
	deliver(t, repo, "6", "420", "hi back", at(t, "2023-10-01T13:30:30Z"))
	deliver(t, repo, "420", "8", "I was wondering", at(t, "2023-10-01T13:32:00Z"))

	conv, err := history.ConversationWith("420", "6")
	req.NoError(err)
	req.True(conv.Participants.Contains("420"))
	req.Equal("6", conv.Participants.Other("420"))
	req.Equal([]string{"Hello", "hi back"}, contents(conv.Messages))

	// Order independent: both participants see the same conversation.
	mirror, err := history.ConversationWith("6", "420")
	req.NoError(err)
	req.Equal(conv.ID, mirror.ID)

	_, err = history.ConversationWith("6", "8")
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func contents(messages []domain.Message) []string {
	return lo.Map(messages, func(m domain.Message, _ int) string { return m.Content })
}
