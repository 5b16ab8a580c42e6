package changefeed

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
)

const changedPayload = "changed"

// Redis fans notifications out over redis pub/sub so every server instance
// sees writes made by any other instance or by huddlectl.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, topic string) error {
	if err := r.client.Publish(ctx, topic, changedPayload).Err(); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topics ...string) (Subscription, error) {
	ps := r.client.Subscribe(ctx, topics...)
	// Wait for the subscription to be confirmed so no publish after this
	// point is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to %v: %w", topics, err)
	}

	sub := &redisSub{ps: ps, ch: make(chan string, subscriptionBuffer), done: make(chan struct{})}
	go sub.pump(ps.Channel())
	return sub, nil
}

type redisSub struct {
	ps   *redis.PubSub
	ch   chan string
	done chan struct{}
}

func (s *redisSub) C() <-chan string { return s.ch }

func (s *redisSub) Close() error {
	err := s.ps.Close()
	<-s.done
	return err
}

func (s *redisSub) pump(in <-chan *redis.Message) {
	defer close(s.done)
	for msg := range in {
		glog.V(2).Infof("[changefeed] %s", msg.Channel)
		offer(s.ch, msg.Channel)
	}
}
