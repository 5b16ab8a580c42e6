package changefeed

import (
	"context"
	"sync"
)

// Local is an in-process Feed for single-instance deployments and tests.
type Local struct {
	mu   sync.Mutex
	subs map[string]map[*localSub]struct{}
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[*localSub]struct{})}
}

func (l *Local) Publish(_ context.Context, topic string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sub := range l.subs[topic] {
		offer(sub.ch, topic)
	}
	return nil
}

func (l *Local) Subscribe(_ context.Context, topics ...string) (Subscription, error) {
	sub := &localSub{feed: l, topics: topics, ch: make(chan string, subscriptionBuffer)}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range topics {
		if l.subs[t] == nil {
			l.subs[t] = make(map[*localSub]struct{})
		}
		l.subs[t][sub] = struct{}{}
	}
	return sub, nil
}

type localSub struct {
	feed   *Local
	topics []string
	ch     chan string
	once   sync.Once
}

func (s *localSub) C() <-chan string { return s.ch }

func (s *localSub) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		for _, t := range s.topics {
			delete(s.feed.subs[t], s)
			if len(s.feed.subs[t]) == 0 {
				delete(s.feed.subs, t)
			}
		}
	})
	return nil
}
