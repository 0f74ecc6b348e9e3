package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"duochat/domain"
)

func openTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	index, err := Open(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func Test_Index_And_Search(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)

	msg, err := domain.NewMessage("420", "6", "the quarterly invoice is ready", at)
	req.NoError(err)
	req.NoError(index.Index(msg, "conv-1"))

	other, err := domain.NewMessage("6", "8", "invoice talk without 420", at)
	req.NoError(err)
	req.NoError(index.Index(other, "conv-2"))

	hits, err := index.Search(ctx, "420", "invoice", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(msg.ID.String(), hits[0].MessageID)
	req.Equal("conv-1", hits[0].ConversationID)
	req.Equal("420", hits[0].Sender)
	req.True(at.Equal(hits[0].Timestamp))
}

func Test_Search_Scopes_To_Participant(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	ctx := context.Background()

	msg, err := domain.NewMessage("alice", "bob", "secret plans", time.Now())
	req.NoError(err)
	req.NoError(index.Index(msg, "conv-1"))

	hits, err := index.Search(ctx, "mallory", "secret", 10)
	req.NoError(err)
	req.Empty(hits)
}

func Test_Reindex_Same_Message_Is_Upsert(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	ctx := context.Background()

	msg, err := domain.NewMessage("alice", "bob", "hello again", time.Now())
	req.NoError(err)
	req.NoError(index.Index(msg, "conv-1"))
	req.NoError(index.Index(msg, "conv-1"))

	hits, err := index.Search(ctx, "alice", "hello", 10)
	req.NoError(err)
	req.Len(hits, 1)
}
