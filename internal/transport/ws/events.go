package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
)

// Event types - Client → Server
const (
	EventTypePing = "ping"
)

// Event types - Server → Client
const (
	EventTypeIncomingRequests = "friend_requests.incoming"
	EventTypeFriendsUpdated   = "friends.updated"
	EventTypeChatMessage      = "chat.message"
	EventTypeSyncError        = "sync.error"
	EventTypePong             = "pong"
	EventTypeError            = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Server → Client payloads ---

// IncomingRequestsPayload is the full current set of pending requests
// addressed to the user, not a delta.
type IncomingRequestsPayload struct {
	Requests []domain.FriendRequest `json:"requests"`
}

type FriendsUpdatedPayload struct {
	Added []uuid.UUID `json:"added"`
}

type ChatMessagePayload struct {
	domain.ChatMessage
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
