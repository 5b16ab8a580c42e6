package changefeed

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository/memory"
)

type recordingFeed struct {
	topics []string
	err    error
}

func (f *recordingFeed) Publish(_ context.Context, topic string) error {
	f.topics = append(f.topics, topic)
	return f.err
}

func (f *recordingFeed) Subscribe(context.Context, ...string) (Subscription, error) {
	return nil, errors.New("not supported")
}

func TestObserveRequests_PublishesBothParties(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	feed := &recordingFeed{}
	repo := ObserveRequests(store.Requests, feed)

	sender, recipient := uuid.New(), uuid.New()
	req := &domain.FriendRequest{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Status:      domain.RequestPending,
		PairKey:     domain.PairKey(sender, recipient),
	}
	assert.Equal(t, repo.Create(ctx, req), nil)
	assert.Equal(t, feed.topics, []string{RequestsTopic(sender), RequestsTopic(recipient)})

	feed.topics = nil
	_, err := repo.SetStatus(ctx, req.ID, domain.RequestPending, domain.RequestAccepted)
	assert.Equal(t, err, nil)
	assert.Equal(t, feed.topics, []string{RequestsTopic(sender), RequestsTopic(recipient)})
}

func TestObserveRequests_FailedWritePublishesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	feed := &recordingFeed{}
	repo := ObserveRequests(store.Requests, feed)

	_, err := repo.SetStatus(ctx, uuid.New(), domain.RequestPending, domain.RequestAccepted)
	assert.Equal(t, err != nil, true)
	assert.Equal(t, len(feed.topics), 0)
}

func TestObserveUsers_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	feed := &recordingFeed{err: errors.New("redis down")}
	repo := ObserveUsers(store.Users, feed)

	user := &domain.User{ID: uuid.New(), DisplayName: "alice", DisplayNameLower: "alice"}
	assert.Equal(t, repo.Create(ctx, user), nil)

	bio := "hello"
	updated, err := repo.Update(ctx, user.ID, domain.UserPatch{Bio: &bio})
	assert.Equal(t, err, nil)
	assert.Equal(t, updated.Bio, "hello")
	assert.Equal(t, feed.topics, []string{UserTopic(user.ID), UserTopic(user.ID)})
}
