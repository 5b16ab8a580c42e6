package changefeed

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
)

// ObserveRequests wraps repo so every successful write publishes to the
// request topics of both parties.
func ObserveRequests(repo repository.FriendRequestRepository, feed Feed) repository.FriendRequestRepository {
	return &observedRequests{FriendRequestRepository: repo, feed: feed}
}

// ObserveUsers wraps repo so every successful profile write publishes to the
// user's topic.
func ObserveUsers(repo repository.UserRepository, feed Feed) repository.UserRepository {
	return &observedUsers{UserRepository: repo, feed: feed}
}

type observedRequests struct {
	repository.FriendRequestRepository
	feed Feed
}

func (o *observedRequests) Create(ctx context.Context, req *domain.FriendRequest) error {
	if err := o.FriendRequestRepository.Create(ctx, req); err != nil {
		return err
	}
	publish(ctx, o.feed, RequestsTopic(req.SenderID), RequestsTopic(req.RecipientID))
	return nil
}

func (o *observedRequests) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus) (*domain.FriendRequest, error) {
	req, err := o.FriendRequestRepository.SetStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	publish(ctx, o.feed, RequestsTopic(req.SenderID), RequestsTopic(req.RecipientID))
	return req, nil
}

// DeleteResolvedBefore publishes nothing: only resolved records are removed
// and no standing query depends on their absence.
func (o *observedRequests) DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error) {
	return o.FriendRequestRepository.DeleteResolvedBefore(ctx, before)
}

type observedUsers struct {
	repository.UserRepository
	feed Feed
}

func (o *observedUsers) Create(ctx context.Context, user *domain.User) error {
	if err := o.UserRepository.Create(ctx, user); err != nil {
		return err
	}
	publish(ctx, o.feed, UserTopic(user.ID))
	return nil
}

func (o *observedUsers) Update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	u, err := o.UserRepository.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	publish(ctx, o.feed, UserTopic(id))
	return u, nil
}

// publish never fails the write it follows; a lost notification only delays
// convergence until the next change or session start.
func publish(ctx context.Context, feed Feed, topics ...string) {
	for _, t := range topics {
		if err := feed.Publish(ctx, t); err != nil {
			glog.Warningf("[changefeed] publish %s: %v", t, err)
		}
	}
}
