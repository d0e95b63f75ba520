// Package protocol defines the chat synchronization wire format.
// Every WebSocket text message is a single flat JSON object carrying a
// "type" discriminator; these types are used for client-server
// communication over WebSocket.
package protocol

// MessageType identifies the kind of wire message.
type MessageType string

const (
	// Outbound commands (client -> server)
	TypeChatMessage      MessageType = "chat_message"
	TypeTypingStatus     MessageType = "typing_status"
	TypeMarkMessagesRead MessageType = "mark_messages_read"
	TypeUserDisconnect   MessageType = "user_disconnect"

	// Inbound events (server -> client). chat_message flows both ways
	// with different field sets.
	TypeUserList        MessageType = "user_list"
	TypeStatus          MessageType = "status"
	TypeMessageDelivery MessageType = "message_delivery"
	TypeMessagesRead    MessageType = "messages_read"
	TypeTyping          MessageType = "typing"
)

// Command is the sealed union of all outbound wire messages.
// The unexported marker keeps the set closed so Encode can switch
// exhaustively.
type Command interface {
	command() MessageType
}

// Event is the sealed union of all inbound wire messages.
type Event interface {
	event() MessageType
}

// ChatMessage asks the server to deliver a message to a recipient.
// MessageID is the client-generated temporary id; the server echoes it back
// in MessageDelivery together with the permanent id.
type ChatMessage struct {
	Type        MessageType `json:"type"`
	ChatUUID    string      `json:"chat_uuid"`
	RecipientID string      `json:"recipient_id"`
	Content     string      `json:"content"`
	Timestamp   string      `json:"timestamp"`
	MessageID   string      `json:"message_id"`
}

func (ChatMessage) command() MessageType { return TypeChatMessage }

// TypingStatus reports that the local user started or stopped composing.
// The idle-timeout policy that decides when IsTyping flips to false is owned
// by the caller.
type TypingStatus struct {
	Type        MessageType `json:"type"`
	IsTyping    bool        `json:"is_typing"`
	RecipientID string      `json:"recipient_id"`
	ChatUUID    string      `json:"chat_uuid"`
}

func (TypingStatus) command() MessageType { return TypeTypingStatus }

// MarkMessagesRead tells the server the local user has read every message
// from SenderID in the given conversation.
type MarkMessagesRead struct {
	Type          MessageType `json:"type"`
	SenderID      string      `json:"sender_id"`
	ChatUUID      string      `json:"chat_uuid"`
	CurrentUserID string      `json:"current_user_id"`
}

func (MarkMessagesRead) command() MessageType { return TypeMarkMessagesRead }

// UserDisconnect is the best-effort notice sent before a user-initiated
// close.
type UserDisconnect struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp string      `json:"timestamp"`
}

func (UserDisconnect) command() MessageType { return TypeUserDisconnect }

// UserList replaces the whole online-user set.
type UserList struct {
	Users []string `json:"users"`
}

func (UserList) event() MessageType { return TypeUserList }

// Status adds or removes a single user from the online set.
type Status struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

func (Status) event() MessageType { return TypeStatus }

// InboundChatMessage delivers a message from another user. Note the field
// set differs from the outbound ChatMessage: the server addresses it with
// sender_id and carries the body under "message".
type InboundChatMessage struct {
	SenderID  string `json:"sender_id"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (InboundChatMessage) event() MessageType { return TypeChatMessage }

// MessageDelivery confirms a sent message was persisted: the message known
// locally as OldMessageID now has the server-assigned MessageID.
type MessageDelivery struct {
	OldMessageID string `json:"old_message_id"`
	MessageID    string `json:"message_id"`
	ChatUUID     string `json:"chat_uuid"`
}

func (MessageDelivery) event() MessageType { return TypeMessageDelivery }

// MessagesRead reports that ReaderID has read the conversation; it applies
// only to messages authored by someone other than the reader.
type MessagesRead struct {
	ChatUUID string `json:"chat_uuid"`
	ReaderID string `json:"reader_id"`
}

func (MessagesRead) event() MessageType { return TypeMessagesRead }

// Typing adds or removes a user from the set of users composing a message
// to the local user.
type Typing struct {
	SenderID string `json:"sender_id"`
	IsTyping bool   `json:"is_typing"`
}

func (Typing) event() MessageType { return TypeTyping }
