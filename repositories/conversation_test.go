package repositories

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"duochat/domain"
	"duochat/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustMessage(t *testing.T, sender, recipient, content string, at time.Time) domain.Message {
	t.Helper()
	msg, err := domain.NewMessage(sender, recipient, content, at)
	require.NoError(t, err)
	return msg
}

func Test_Create_Then_Resolve_Pair(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	pair, err := domain.NewParticipantPair("420", "6")
	req.NoError(err)
	at := time.Now().UTC()

	convID, err := repository.CreateConversation(pair, mustMessage(t, "420", "6", "Hello", at))
	req.NoError(err)
	req.NotEmpty(convID)

	// Resolution is order-independent.
	reversed, err := domain.NewParticipantPair("6", "420")
	req.NoError(err)
	resolved, err := repository.FindByParticipants(reversed)
	req.NoError(err)
	req.Equal(convID, resolved)
}

func Test_Resolve_Is_Exact_Set_Match(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	pair, err := domain.NewParticipantPair("a", "b")
	req.NoError(err)
	_, err = repository.CreateConversation(pair, mustMessage(t, "a", "b", "hi", time.Now()))
	req.NoError(err)

	other, err := domain.NewParticipantPair("a", "c")
	req.NoError(err)
	_, err = repository.FindByParticipants(other)
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func Test_Create_Duplicate_Pair_Fails(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	pair, err := domain.NewParticipantPair("420", "6")
	req.NoError(err)

	_, err = repository.CreateConversation(pair, mustMessage(t, "420", "6", "first", time.Now()))
	req.NoError(err)

	_, err = repository.CreateConversation(pair, mustMessage(t, "6", "420", "second", time.Now()))
	req.ErrorIs(err, errors.ErrDuplicateConversation)
}

// Concurrent creators for the same new pair: exactly one wins, the rest see
// the duplicate signal, and no second conversation appears.
func Test_Concurrent_Create_Single_Winner(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	pair, err := domain.NewParticipantPair("420", "6")
	req.NoError(err)

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repository.CreateConversation(pair, mustMessage(t, "420", "6", "race", time.Now()))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners, losers := 0, 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		default:
			req.ErrorIs(err, errors.ErrDuplicateConversation)
			losers++
		}
	}
	req.Equal(1, winners)
	req.Equal(racers-1, losers)

	conversations, err := repository.FindByParticipant("420")
	req.NoError(err)
	req.Len(conversations, 1)
}

func Test_Append_Preserves_Order_And_Atomicity(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	pair, err := domain.NewParticipantPair("alice", "bob")
	req.NoError(err)
	at := time.Now().UTC()

	convID, err := repository.CreateConversation(pair, mustMessage(t, "alice", "bob", "msg-0", at))
	req.NoError(err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := mustMessage(t, "alice", "bob", "concurrent", at.Add(time.Duration(i)*time.Millisecond))
			appended, err := repository.AppendMessage(convID, msg)
			require.NoError(t, err)
			require.True(t, appended)
		}(i)
	}
	wg.Wait()

	conv, err := repository.GetConversation(convID)
	req.NoError(err)
	// No message dropped or duplicated; relative order between racing
	// writers is arbitrary but every effect is fully applied.
	req.Len(conv.Messages, writers+1)
	req.Equal("msg-0", conv.Messages[0].Content)
	for i := 1; i < len(conv.Messages); i++ {
		req.Less(conv.Messages[i-1].ArrivalKey, conv.Messages[i].ArrivalKey)
	}
}

func Test_Append_To_Missing_Conversation(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	_, err := repository.AppendMessage("no-such-id", mustMessage(t, "a", "b", "x", time.Now()))
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func Test_Append_Same_Message_Twice_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	pair, err := domain.NewParticipantPair("a", "b")
	req.NoError(err)
	first := mustMessage(t, "a", "b", "hello", time.Now())
	convID, err := repository.CreateConversation(pair, first)
	req.NoError(err)

	redelivered := mustMessage(t, "b", "a", "again", time.Now())
	appended, err := repository.AppendMessage(convID, redelivered)
	req.NoError(err)
	req.True(appended)
	appended, err = repository.AppendMessage(convID, redelivered)
	req.NoError(err)
	req.False(appended)
	// The creation's initial message is deduplicated as well.
	appended, err = repository.AppendMessage(convID, first)
	req.NoError(err)
	req.False(appended)

	conv, err := repository.GetConversation(convID)
	req.NoError(err)
	req.Len(conv.Messages, 2)
}

func Test_FindByParticipant_Returns_All_Conversations(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	pairAB, _ := domain.NewParticipantPair("420", "6")
	pairAC, _ := domain.NewParticipantPair("420", "8")
	pairBC, _ := domain.NewParticipantPair("6", "8")

	_, err := repository.CreateConversation(pairAB, mustMessage(t, "420", "6", "to 6", at))
	req.NoError(err)
	_, err = repository.CreateConversation(pairAC, mustMessage(t, "420", "8", "to 8", at))
	req.NoError(err)
	_, err = repository.CreateConversation(pairBC, mustMessage(t, "6", "8", "not 420", at))
	req.NoError(err)

	conversations, err := repository.FindByParticipant("420")
	req.NoError(err)
	req.Len(conversations, 2)
	for _, conv := range conversations {
		req.True(conv.Participants.Contains("420"))
		req.Len(conv.Messages, 1)
	}

	none, err := repository.FindByParticipant("stranger")
	req.NoError(err)
	req.Empty(none)
}
