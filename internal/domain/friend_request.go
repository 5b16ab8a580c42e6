package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// Direction of an existing pending request relative to the caller.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

type FriendRequest struct {
	ID          uuid.UUID     `json:"id" bson:"_id"`
	SenderID    uuid.UUID     `json:"sender_id" bson:"sender_id"`
	RecipientID uuid.UUID     `json:"recipient_id" bson:"recipient_id"`
	Status      RequestStatus `json:"status" bson:"status"`
	PairKey     string        `json:"-" bson:"pair_key"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
}

// PairKey is the order-independent key for two identities.
func PairKey(a, b uuid.UUID) string {
	if a.String() > b.String() {
		a, b = b, a
	}
	return a.String() + ":" + b.String()
}

// RequestOutcome is returned by request creation.
type RequestOutcome struct {
	Exists    bool           `json:"exists"`
	Direction Direction      `json:"direction,omitempty"`
	Request   *FriendRequest `json:"request,omitempty"`
}
