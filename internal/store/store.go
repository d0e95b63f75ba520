// Package store holds the shared conversation state consumed by UI
// collaborators: the conversation list, the online and typing sets, and the
// current selection. Every mutation builds a fresh snapshot (copy-on-write)
// and atomically replaces the published one, so readers never observe a
// partially-updated structure. Only the reconciler and UI-triggered setters
// mutate the store.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/openforum/chatsync/internal/domain"
)

// Store publishes immutable domain.Snapshot values and notifies subscribers
// after every change.
type Store struct {
	current atomic.Pointer[domain.Snapshot]

	mu      sync.Mutex // serializes writers and subscriber bookkeeping
	subs    map[int]func(*domain.Snapshot)
	nextSub int
}

// New creates an empty store.
func New() *Store {
	s := &Store{subs: make(map[int]func(*domain.Snapshot))}
	s.current.Store(domain.EmptySnapshot())
	return s
}

// Snapshot returns the currently published snapshot. Published snapshots are
// immutable; callers must not mutate the returned value.
func (s *Store) Snapshot() *domain.Snapshot {
	return s.current.Load()
}

// Selected returns the counterpart id of the currently open conversation.
// Event handling calls this at processing time so it always sees the live
// selection, never a value captured earlier.
func (s *Store) Selected() string {
	return s.current.Load().SelectedUserID
}

// Subscribe registers fn to be called with every newly published snapshot.
// The returned cancel function removes the subscription.
func (s *Store) Subscribe(fn func(*domain.Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// mutate clones the current snapshot, applies fn to the clone, publishes it,
// and notifies subscribers. Notification happens outside the writer lock so
// subscribers may call back into the store.
func (s *Store) mutate(fn func(next *domain.Snapshot)) {
	s.mu.Lock()
	next := s.current.Load().Clone()
	fn(next)
	s.current.Store(next)
	listeners := make([]func(*domain.Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		listeners = append(listeners, sub)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

// SeedConversations replaces the conversation list with the roster loader's
// output. Called once before the engine starts.
func (s *Store) SeedConversations(convs []domain.Conversation) {
	s.mutate(func(next *domain.Snapshot) {
		next.Conversations = make([]domain.Conversation, len(convs))
		copy(next.Conversations, convs)
	})
}

// ReplaceOnline replaces the whole online-user set.
func (s *Store) ReplaceOnline(ids []string) {
	s.mutate(func(next *domain.Snapshot) {
		next.Online = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			next.Online[id] = struct{}{}
		}
	})
}

// SetOnline adds or removes a single user from the online set. Adding a
// present id or removing an absent one leaves the set unchanged.
func (s *Store) SetOnline(userID string, online bool) {
	s.mutate(func(next *domain.Snapshot) {
		if online {
			next.Online[userID] = struct{}{}
		} else {
			delete(next.Online, userID)
		}
	})
}

// SetTyping adds or removes a user from the typing set.
func (s *Store) SetTyping(userID string, typing bool) {
	s.mutate(func(next *domain.Snapshot) {
		if typing {
			next.Typing[userID] = struct{}{}
		} else {
			delete(next.Typing, userID)
		}
	})
}

// AppendMessage appends msg to the conversation with counterpartID,
// creating the conversation when the sender is not yet known (its chat uuid
// stays empty until the roster learns it). Messages are never reordered or
// deleted.
func (s *Store) AppendMessage(counterpartID string, msg domain.Message, incrementUnread bool) {
	s.mutate(func(next *domain.Snapshot) {
		conv := next.Conversation(counterpartID)
		if conv == nil {
			next.Conversations = append(next.Conversations, domain.Conversation{
				CounterpartID: counterpartID,
			})
			conv = &next.Conversations[len(next.Conversations)-1]
		}
		conv.Messages = append(conv.Messages, msg)
		if incrementUnread {
			conv.UnreadCount++
		}
	})
}

// RenameMessageID rewrites the id of the message known as oldID within the
// named conversation to the server-assigned newID. At most one message is
// rewritten and no other field changes. Unknown conversations or ids are
// ignored: the confirmation may outlive the state it refers to.
func (s *Store) RenameMessageID(chatUUID, oldID, newID string) {
	s.mutate(func(next *domain.Snapshot) {
		conv := next.ConversationByChat(chatUUID)
		if conv == nil {
			return
		}
		for i := range conv.Messages {
			if conv.Messages[i].ID == oldID {
				conv.Messages[i].ID = newID
				return
			}
		}
	})
}

// MarkRead flips Read to true on every message in the conversation that was
// authored by someone other than readerID. A reader's own broadcast must
// never mark the reader's messages.
func (s *Store) MarkRead(chatUUID, readerID string) {
	s.mutate(func(next *domain.Snapshot) {
		conv := next.ConversationByChat(chatUUID)
		if conv == nil {
			return
		}
		for i := range conv.Messages {
			if conv.Messages[i].SenderID != readerID {
				conv.Messages[i].Read = true
			}
		}
	})
}

// Select records counterpartID as the open conversation and clears its
// unread count. Pass an empty id to deselect.
func (s *Store) Select(counterpartID string) {
	s.mutate(func(next *domain.Snapshot) {
		next.SelectedUserID = counterpartID
		if conv := next.Conversation(counterpartID); conv != nil {
			conv.UnreadCount = 0
		}
	})
}
