package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforum/chatsync/internal/domain"
	"github.com/openforum/chatsync/internal/store"
)

func seeded() *store.Store {
	s := store.New()
	s.SeedConversations([]domain.Conversation{
		{CounterpartID: "456", ChatUUID: "c1"},
		{CounterpartID: "789", ChatUUID: "c2"},
	})
	return s
}

func TestSeedConversations(t *testing.T) {
	s := seeded()

	snap := s.Snapshot()
	require.Len(t, snap.Conversations, 2)
	assert.Equal(t, "c1", snap.Conversations[0].ChatUUID)
	assert.Equal(t, "c2", snap.Conversations[1].ChatUUID)
}

func TestOnlineSet(t *testing.T) {
	t.Run("replace whole set", func(t *testing.T) {
		s := store.New()
		s.SetOnline("111", true)

		s.ReplaceOnline([]string{"123", "456"})

		snap := s.Snapshot()
		assert.True(t, snap.IsOnline("123"))
		assert.True(t, snap.IsOnline("456"))
		assert.False(t, snap.IsOnline("111"), "replace discards previous membership")
	})

	t.Run("adding a present id is idempotent", func(t *testing.T) {
		s := store.New()
		s.SetOnline("456", true)
		s.SetOnline("456", true)

		assert.Len(t, s.Snapshot().Online, 1)
	})

	t.Run("removing an absent id is a no-op", func(t *testing.T) {
		s := store.New()
		s.SetOnline("456", true)

		s.SetOnline("999", false)

		assert.Len(t, s.Snapshot().Online, 1)
		assert.True(t, s.Snapshot().IsOnline("456"))
	})
}

func TestSetTyping(t *testing.T) {
	s := store.New()

	s.SetTyping("456", true)
	assert.True(t, s.Snapshot().IsTyping("456"))

	s.SetTyping("456", false)
	assert.False(t, s.Snapshot().IsTyping("456"))
}

func TestAppendMessage(t *testing.T) {
	t.Run("append with unread increment", func(t *testing.T) {
		s := seeded()

		s.AppendMessage("456", domain.Message{ID: "m1", SenderID: "456", Content: "hi"}, true)

		conv := s.Snapshot().Conversation("456")
		require.NotNil(t, conv)
		require.Len(t, conv.Messages, 1)
		assert.Equal(t, 1, conv.UnreadCount)
	})

	t.Run("append without unread increment", func(t *testing.T) {
		s := seeded()

		s.AppendMessage("456", domain.Message{ID: "m1", SenderID: "456", Content: "hi"}, false)

		conv := s.Snapshot().Conversation("456")
		require.Len(t, conv.Messages, 1)
		assert.Equal(t, 0, conv.UnreadCount)
	})

	t.Run("unknown sender creates a conversation", func(t *testing.T) {
		s := seeded()

		s.AppendMessage("999", domain.Message{ID: "m1", SenderID: "999", Content: "hi"}, true)

		conv := s.Snapshot().Conversation("999")
		require.NotNil(t, conv)
		assert.Empty(t, conv.ChatUUID)
		assert.Equal(t, 1, conv.UnreadCount)
	})

	t.Run("messages keep insertion order", func(t *testing.T) {
		s := seeded()
		s.AppendMessage("456", domain.Message{ID: "m1"}, false)
		s.AppendMessage("456", domain.Message{ID: "m2"}, false)
		s.AppendMessage("456", domain.Message{ID: "m3"}, false)

		conv := s.Snapshot().Conversation("456")
		ids := []string{conv.Messages[0].ID, conv.Messages[1].ID, conv.Messages[2].ID}
		assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
	})
}

func TestRenameMessageID(t *testing.T) {
	t.Run("rewrites exactly one message, other fields intact", func(t *testing.T) {
		s := seeded()
		s.AppendMessage("456", domain.Message{ID: "tmp-1", SenderID: "123", Content: "hi", Timestamp: "T"}, false)
		s.AppendMessage("456", domain.Message{ID: "tmp-2", SenderID: "123", Content: "again"}, false)

		s.RenameMessageID("c1", "tmp-1", "srv-9")

		conv := s.Snapshot().Conversation("456")
		require.Len(t, conv.Messages, 2, "no duplicate message created")
		assert.Equal(t, "srv-9", conv.Messages[0].ID)
		assert.Equal(t, "hi", conv.Messages[0].Content)
		assert.Equal(t, "T", conv.Messages[0].Timestamp)
		assert.False(t, conv.Messages[0].Read)
		assert.Equal(t, "tmp-2", conv.Messages[1].ID)
	})

	t.Run("unknown conversation is ignored", func(t *testing.T) {
		s := seeded()
		s.RenameMessageID("missing", "tmp-1", "srv-9")

		assert.Len(t, s.Snapshot().Conversations, 2)
	})

	t.Run("unknown old id is ignored", func(t *testing.T) {
		s := seeded()
		s.AppendMessage("456", domain.Message{ID: "m1"}, false)

		s.RenameMessageID("c1", "tmp-1", "srv-9")

		assert.Equal(t, "m1", s.Snapshot().Conversation("456").Messages[0].ID)
	})
}

func TestMarkRead(t *testing.T) {
	t.Run("flips only messages authored by others than the reader", func(t *testing.T) {
		s := seeded()
		s.AppendMessage("456", domain.Message{ID: "a1", SenderID: "123"}, false)
		s.AppendMessage("456", domain.Message{ID: "b1", SenderID: "456"}, false)
		s.AppendMessage("456", domain.Message{ID: "a2", SenderID: "123"}, false)

		s.MarkRead("c1", "456")

		conv := s.Snapshot().Conversation("456")
		assert.True(t, conv.Messages[0].Read, "counterpart read my message")
		assert.False(t, conv.Messages[1].Read, "reader's own message untouched")
		assert.True(t, conv.Messages[2].Read)
	})

	t.Run("read never transitions backward", func(t *testing.T) {
		s := seeded()
		s.AppendMessage("456", domain.Message{ID: "a1", SenderID: "123"}, false)
		s.MarkRead("c1", "456")

		// A later broadcast from the other party must not clear the flag.
		s.MarkRead("c1", "123")

		assert.True(t, s.Snapshot().Conversation("456").Messages[0].Read)
	})

	t.Run("unknown conversation is ignored", func(t *testing.T) {
		s := seeded()
		s.MarkRead("missing", "456")
	})
}

func TestSelect(t *testing.T) {
	s := seeded()
	s.AppendMessage("456", domain.Message{ID: "m1", SenderID: "456"}, true)
	s.AppendMessage("456", domain.Message{ID: "m2", SenderID: "456"}, true)
	require.Equal(t, 2, s.Snapshot().Conversation("456").UnreadCount)

	s.Select("456")

	assert.Equal(t, "456", s.Selected())
	assert.Equal(t, 0, s.Snapshot().Conversation("456").UnreadCount)

	s.Select("")
	assert.Empty(t, s.Selected())
}

func TestSubscribe(t *testing.T) {
	t.Run("subscriber sees every published snapshot", func(t *testing.T) {
		s := store.New()

		var seen []*domain.Snapshot
		cancel := s.Subscribe(func(snap *domain.Snapshot) {
			seen = append(seen, snap)
		})
		defer cancel()

		s.SetOnline("456", true)
		s.SetTyping("456", true)

		require.Len(t, seen, 2)
		assert.True(t, seen[0].IsOnline("456"))
		assert.False(t, seen[0].IsTyping("456"))
		assert.True(t, seen[1].IsTyping("456"))
	})

	t.Run("cancel stops notifications", func(t *testing.T) {
		s := store.New()

		calls := 0
		cancel := s.Subscribe(func(*domain.Snapshot) { calls++ })
		s.SetOnline("456", true)
		cancel()
		s.SetOnline("789", true)

		assert.Equal(t, 1, calls)
	})

	t.Run("published snapshots are isolated from later mutations", func(t *testing.T) {
		s := store.New()

		var first *domain.Snapshot
		cancel := s.Subscribe(func(snap *domain.Snapshot) {
			if first == nil {
				first = snap
			}
		})
		defer cancel()

		s.SetOnline("456", true)
		s.SetOnline("999", true)

		require.NotNil(t, first)
		assert.False(t, first.IsOnline("999"), "earlier snapshot unaffected by later writes")
	})
}
