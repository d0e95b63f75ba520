package engine

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openforum/chatsync/internal/domain"
	"github.com/openforum/chatsync/pkg/protocol"
)

// handleFrame decodes one inbound wire message and applies it to the store.
// Malformed or unknown messages are counted and dropped; they never close
// the connection.
func (e *Engine) handleFrame(data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, protocol.ErrUnknownType) {
			reason = "unknown_type"
		}
		decodeFailuresTotal.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("reason", reason)))
		e.logger.Warn("dropping inbound message", "reason", reason, "error", err)
		return
	}

	framesReceivedTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("type", string(protocol.EventType(ev)))))
	e.applyEvent(ev)
}

// applyEvent reconciles one decoded event into the shared store.
func (e *Engine) applyEvent(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.UserList:
		e.st.ReplaceOnline(ev.Users)

	case protocol.Status:
		e.st.SetOnline(ev.UserID, ev.IsOnline)

	case protocol.Typing:
		e.st.SetTyping(ev.SenderID, ev.IsTyping)

	case protocol.InboundChatMessage:
		e.applyInboundMessage(ev)

	case protocol.MessageDelivery:
		e.st.RenameMessageID(ev.ChatUUID, ev.OldMessageID, ev.MessageID)

	case protocol.MessagesRead:
		e.st.MarkRead(ev.ChatUUID, ev.ReaderID)
	}
}

// applyInboundMessage appends a remote message to the sender's conversation.
// The selection is read at processing time, never a value captured earlier:
// when the sender's conversation is the one currently open, the unread count
// stays untouched and a read receipt goes straight back out; otherwise the
// unread count increments.
func (e *Engine) applyInboundMessage(ev protocol.InboundChatMessage) {
	selected := e.st.Selected() == ev.SenderID

	e.st.AppendMessage(ev.SenderID, domain.Message{
		ID:        ev.MessageID,
		SenderID:  ev.SenderID,
		Content:   ev.Message,
		Timestamp: ev.Timestamp,
	}, !selected)

	if !selected {
		return
	}

	chatUUID := ""
	if conv := e.st.Snapshot().Conversation(ev.SenderID); conv != nil {
		chatUUID = conv.ChatUUID
	}
	if err := e.Send(protocol.MarkMessagesRead{
		SenderID:      ev.SenderID,
		ChatUUID:      chatUUID,
		CurrentUserID: e.UserID(),
	}); err != nil {
		e.logger.Warn("auto read receipt not sent", "sender_id", ev.SenderID, "error", err)
	}
}
