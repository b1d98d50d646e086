package notify

import (
	"encoding/json"
	"fmt"
)

// Event types streamed to subscribers.
const (
	// EventConnected is the first event of every stream.
	EventConnected = "connected"
	// EventMessageCreated carries a newly posted message.
	EventMessageCreated = "message.created"
	// EventChatUpdated carries a chat after a rename or member change.
	EventChatUpdated = "chat.updated"
	// EventChatDeleted carries the id of a removed chat.
	EventChatDeleted = "chat.deleted"
)

// Event is a chat change addressed to a set of users.
type Event struct {
	Type string
	// Recipients are the user ids the event is delivered to.
	Recipients []int64
	// Data is serialized as the JSON payload of the event.
	Data any
}

// ChatRef is the payload of EventChatDeleted.
type ChatRef struct {
	ChatID int64 `json:"chatId"`
}

// MessagePayload is the payload of EventMessageCreated.
type MessagePayload struct {
	ChatID  int64 `json:"chatId"`
	Message any   `json:"message"`
}

// MessageCreated builds the event for a message posted to chatID.
func MessageCreated(chatID int64, members []int64, message any) Event {
	return Event{
		Type:       EventMessageCreated,
		Recipients: members,
		Data:       MessagePayload{ChatID: chatID, Message: message},
	}
}

// ChatUpdated builds the event for a changed chat. Members should include
// users removed by the change so they learn about it.
func ChatUpdated(members []int64, chat any) Event {
	return Event{Type: EventChatUpdated, Recipients: members, Data: chat}
}

// ChatDeleted builds the event for a removed chat.
func ChatDeleted(chatID int64, members []int64) Event {
	return Event{Type: EventChatDeleted, Recipients: members, Data: ChatRef{ChatID: chatID}}
}

// Encode renders the event as an SSE frame.
func Encode(eventType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload)), nil
}
