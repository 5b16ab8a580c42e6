package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/changefeed"
	"github.com/vedran77/huddle/internal/domain"
	"golang.org/x/sync/errgroup"
)

// SessionSink receives what a running session sync observes. Calls for one
// session never overlap within a method but may overlap across methods.
type SessionSink interface {
	IncomingRequests(reqs []domain.FriendRequest)
	FriendsAdded(ids []uuid.UUID)
	SyncError(err error)
}

// SyncManager runs the standing subscriptions of signed-in sessions.
type SyncManager struct {
	friends *FriendService
}

func NewSyncManager(friends *FriendService) *SyncManager {
	return &SyncManager{friends: friends}
}

// SessionSync is the handle of one session's subscriptions.
type SessionSync struct {
	cancel   context.CancelFunc
	group    *errgroup.Group
	outgoing *changefeed.Stream[domain.FriendRequest]
	incoming *changefeed.Stream[domain.FriendRequest]
	once     sync.Once
}

// Start subscribes to the session's accepted outgoing requests and pending
// incoming requests. Every outgoing snapshot, including the initial one, is
// reconciled into the session's friend set. Stop must be called to release
// the subscriptions.
func (m *SyncManager) Start(ctx context.Context, sess domain.Session, sink SessionSink) (*SessionSync, error) {
	ctx, cancel := context.WithCancel(ctx)

	outgoing, err := m.friends.WatchOutgoingAccepted(ctx, sess)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watching accepted requests: %w", err)
	}
	incoming, err := m.friends.WatchIncomingPending(ctx, sess)
	if err != nil {
		outgoing.Close()
		cancel()
		return nil, fmt.Errorf("watching incoming requests: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consume(outgoing, sink, func(reqs []domain.FriendRequest) {
			added, err := m.friends.ReconcileAccepted(gctx, sess, reqs)
			if len(added) > 0 {
				sink.FriendsAdded(added)
			}
			if err != nil {
				sink.SyncError(err)
			}
		})
	})
	g.Go(func() error {
		return consume(incoming, sink, sink.IncomingRequests)
	})

	glog.V(1).Infof("[sync] started for %s", sess.UserID)
	return &SessionSync{cancel: cancel, group: g, outgoing: outgoing, incoming: incoming}, nil
}

// Stop releases both subscriptions and waits for in-flight handling to end.
// It is safe to call more than once.
func (s *SessionSync) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.outgoing.Close()
		s.incoming.Close()
		_ = s.group.Wait()
	})
}

func consume(stream *changefeed.Stream[domain.FriendRequest], sink SessionSink, handle func([]domain.FriendRequest)) error {
	snapshots, errs := stream.Snapshots, stream.Errors
	for snapshots != nil || errs != nil {
		select {
		case reqs, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			handle(reqs)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			sink.SyncError(err)
		}
	}
	return nil
}
