// Package changefeed delivers "something changed" notifications between
// writers and standing queries. Notifications carry only the topic; watchers
// re-read the store to build the next snapshot.
package changefeed

import (
	"context"

	"github.com/google/uuid"
)

// Feed publishes and subscribes to change topics.
type Feed interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topics ...string) (Subscription, error)
}

// Subscription receives the topic of every change published after Subscribe
// returned. Bursts may be coalesced: a notification is only dropped when
// another one is already waiting to be read.
type Subscription interface {
	C() <-chan string
	Close() error
}

const subscriptionBuffer = 16

// RequestsTopic carries changes to friend requests sent or received by userID.
func RequestsTopic(userID uuid.UUID) string {
	return "huddle:friend_requests:" + userID.String()
}

// UserTopic carries changes to the profile document of userID.
func UserTopic(userID uuid.UUID) string {
	return "huddle:users:" + userID.String()
}

func offer(ch chan string, topic string) {
	select {
	case ch <- topic:
	default:
	}
}
