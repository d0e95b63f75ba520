// Package domain contains pure business logic and types.
// No external dependencies allowed - this is the innermost ring of Clean Architecture.
package domain

// Message is a single chat message inside a Conversation.
//
// ID is client-generated (temporary) when the message is created by an
// optimistic local send, and is rewritten to the server-assigned id once the
// delivery confirmation arrives. Read transitions only false -> true.
type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Conversation is a direct chat between the local user and one counterpart.
// Messages is append-only insertion order; UnreadCount is always >= 0.
type Conversation struct {
	CounterpartID string    `json:"counterpart_id"`
	ChatUUID      string    `json:"chat_uuid"`
	Messages      []Message `json:"messages"`
	UnreadCount   int       `json:"unread_count"`
}

// Snapshot is the immutable value published by the conversation store.
// A Snapshot is never mutated after publication; the store builds a new one
// for every change (copy-on-write), so readers never see partial updates.
type Snapshot struct {
	// Conversations in their seeded order, plus any conversations created
	// on the fly for previously unknown senders, appended at the end.
	Conversations []Conversation

	// Online holds the ids of users currently connected server-side.
	Online map[string]struct{}

	// Typing holds the ids of users currently composing a message to the
	// local user.
	Typing map[string]struct{}

	// SelectedUserID is the counterpart of the currently open conversation,
	// empty when none is open. Event handling reads this live value, never a
	// copy captured earlier.
	SelectedUserID string
}

// Conversation returns the conversation whose counterpart is userID,
// or nil when none exists. The returned pointer aliases the snapshot's
// backing array and must not be mutated.
func (s *Snapshot) Conversation(userID string) *Conversation {
	for i := range s.Conversations {
		if s.Conversations[i].CounterpartID == userID {
			return &s.Conversations[i]
		}
	}
	return nil
}

// ConversationByChat returns the conversation with the given chat uuid,
// or nil when none exists.
func (s *Snapshot) ConversationByChat(chatUUID string) *Conversation {
	for i := range s.Conversations {
		if s.Conversations[i].ChatUUID == chatUUID {
			return &s.Conversations[i]
		}
	}
	return nil
}

// IsOnline reports whether userID is in the online set.
func (s *Snapshot) IsOnline(userID string) bool {
	_, ok := s.Online[userID]
	return ok
}

// IsTyping reports whether userID is in the typing set.
func (s *Snapshot) IsTyping(userID string) bool {
	_, ok := s.Typing[userID]
	return ok
}

// Clone returns a deep copy of the snapshot. Mutating the clone never
// affects the original.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Conversations:  make([]Conversation, len(s.Conversations)),
		Online:         make(map[string]struct{}, len(s.Online)),
		Typing:         make(map[string]struct{}, len(s.Typing)),
		SelectedUserID: s.SelectedUserID,
	}
	for i, conv := range s.Conversations {
		msgs := make([]Message, len(conv.Messages))
		copy(msgs, conv.Messages)
		conv.Messages = msgs
		out.Conversations[i] = conv
	}
	for id := range s.Online {
		out.Online[id] = struct{}{}
	}
	for id := range s.Typing {
		out.Typing[id] = struct{}{}
	}
	return out
}

// EmptySnapshot returns a snapshot with no conversations and empty sets.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Online: make(map[string]struct{}),
		Typing: make(map[string]struct{}),
	}
}
