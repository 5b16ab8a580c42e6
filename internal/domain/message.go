package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage belongs to the single shared channel. IDs are ULIDs so they sort by time.
type ChatMessage struct {
	ID         string    `json:"id" bson:"_id"`
	SenderID   uuid.UUID `json:"sender_id" bson:"sender_id"`
	SenderName string    `json:"sender_name" bson:"sender_name"`
	Text       string    `json:"text" bson:"text"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
