package service

import (
	"context"
	"errors"
	"flag"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/changefeed"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/policy"
	"github.com/vedran77/huddle/internal/repository"
	"github.com/vedran77/huddle/internal/repository/memory"
)

func init() {
	flag.Set("logtostderr", "true")
	flag.Set("v", "0")
}

var errInjected = errors.New("injected failure")

// flakyUsers fails Update for the ids in failUpdate.
type flakyUsers struct {
	repository.UserRepository
	mu         sync.Mutex
	failUpdate map[uuid.UUID]bool
}

func (f *flakyUsers) failFor(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failUpdate[id] = true
}

func (f *flakyUsers) Update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	f.mu.Lock()
	fail := f.failUpdate[id]
	f.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return f.UserRepository.Update(ctx, id, patch)
}

// blindRequests hides matches from the first hideFinds calls to Find, which
// makes the pending check miss a record that is already stored. GetByID
// serves the snapshots in stale instead of the stored record.
type blindRequests struct {
	repository.FriendRequestRepository
	mu        sync.Mutex
	hideFinds int
	stale     map[uuid.UUID]domain.FriendRequest
}

func (b *blindRequests) freeze(req domain.FriendRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stale == nil {
		b.stale = map[uuid.UUID]domain.FriendRequest{}
	}
	b.stale[req.ID] = req
}

func (b *blindRequests) GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	b.mu.Lock()
	snap, ok := b.stale[id]
	b.mu.Unlock()
	if ok {
		return &snap, nil
	}
	return b.FriendRequestRepository.GetByID(ctx, id)
}

func (b *blindRequests) Find(ctx context.Context, filter repository.RequestFilter) ([]domain.FriendRequest, error) {
	b.mu.Lock()
	hide := b.hideFinds > 0
	if hide {
		b.hideFinds--
	}
	b.mu.Unlock()
	if hide {
		return []domain.FriendRequest{}, nil
	}
	return b.FriendRequestRepository.Find(ctx, filter)
}

type fixture struct {
	store    *repository.Store
	feed     *changefeed.Local
	users    *flakyUsers
	requests *blindRequests
	friends  *FriendService
	profiles *ProfileService
	sync     *SyncManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine, err := policy.New(context.Background())
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}

	store := memory.NewStore()
	feed := changefeed.NewLocal()
	users := &flakyUsers{
		UserRepository: changefeed.ObserveUsers(store.Users, feed),
		failUpdate:     map[uuid.UUID]bool{},
	}
	requests := &blindRequests{FriendRequestRepository: changefeed.ObserveRequests(store.Requests, feed)}
	friends := NewFriendService(users, requests, feed, engine)

	return &fixture{
		store:    store,
		feed:     feed,
		users:    users,
		requests: requests,
		friends:  friends,
		profiles: NewProfileService(users, nil),
		sync:     NewSyncManager(friends),
	}
}

func (f *fixture) addUser(t *testing.T, name string) domain.Session {
	t.Helper()
	id := uuid.New()
	if err := f.store.Users.Create(context.Background(), &domain.User{ID: id, DisplayName: name}); err != nil {
		t.Fatalf("creating user %s: %v", name, err)
	}
	return domain.Session{UserID: id}
}

func (f *fixture) friendsOf(t *testing.T, sess domain.Session) []uuid.UUID {
	t.Helper()
	u, err := f.store.Users.GetByID(context.Background(), sess.UserID)
	if err != nil || u == nil {
		t.Fatalf("loading user %s: %v", sess.UserID, err)
	}
	return u.Friends
}

func (f *fixture) requestsBetween(t *testing.T, sender, recipient domain.Session) []domain.FriendRequest {
	t.Helper()
	reqs, err := f.store.Requests.Find(context.Background(), repository.RequestFilter{
		SenderID:    repository.ID(sender.UserID),
		RecipientID: repository.ID(recipient.UserID),
	})
	if err != nil {
		t.Fatalf("finding requests: %v", err)
	}
	return reqs
}

func within[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}
