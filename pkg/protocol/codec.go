package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decode and Encode sentinels. Both conditions are recoverable per message:
// callers drop the offending frame and keep the connection open.
var (
	ErrMalformedMessage = errors.New("malformed wire message")
	ErrUnknownType      = errors.New("unknown message type")
)

// Encode serializes an outbound command, stamping its type discriminator.
func Encode(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case ChatMessage:
		c.Type = TypeChatMessage
		return json.Marshal(c)
	case TypingStatus:
		c.Type = TypeTypingStatus
		return json.Marshal(c)
	case MarkMessagesRead:
		c.Type = TypeMarkMessagesRead
		return json.Marshal(c)
	case UserDisconnect:
		c.Type = TypeUserDisconnect
		return json.Marshal(c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, cmd)
	}
}

// Decode parses an inbound wire message into its typed event.
// Malformed JSON yields ErrMalformedMessage; a type the client does not
// handle yields ErrUnknownType. Neither should tear down the connection.
func Decode(data []byte) (Event, error) {
	var probe struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch probe.Type {
	case TypeUserList:
		return decodeAs[UserList](data)
	case TypeStatus:
		return decodeAs[Status](data)
	case TypeChatMessage:
		return decodeAs[InboundChatMessage](data)
	case TypeMessageDelivery:
		return decodeAs[MessageDelivery](data)
	case TypeMessagesRead:
		return decodeAs[MessagesRead](data)
	case TypeTyping:
		return decodeAs[Typing](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
	}
}

// EventType returns the wire discriminator of a decoded event.
func EventType(ev Event) MessageType {
	return ev.event()
}

func decodeAs[E Event](data []byte) (Event, error) {
	var ev E
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return ev, nil
}
