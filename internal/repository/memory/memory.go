// Package memory is an in-process store used by tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
)

// DB holds every collection behind one lock.
type DB struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	users    map[uuid.UUID]domain.User
	requests map[uuid.UUID]domain.FriendRequest
	messages []domain.ChatMessage

	now func() time.Time
}

func New() *DB {
	return &DB{
		accounts: make(map[string]domain.Account),
		users:    make(map[uuid.UUID]domain.User),
		requests: make(map[uuid.UUID]domain.FriendRequest),
		now:      time.Now,
	}
}

func NewStore() *repository.Store {
	db := New()
	return db.Store()
}

func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Accounts: &AccountRepo{db: db},
		Users:    &UserRepo{db: db},
		Requests: &FriendRequestRepo{db: db},
		Messages: &MessageRepo{db: db},
		Close:    func(context.Context) error { return nil },
	}
}

type AccountRepo struct{ db *DB }

func (r *AccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.accounts[account.Email]; ok {
		return repository.ErrEmailTaken
	}
	r.db.accounts[account.Email] = *account
	return nil
}

func (r *AccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	a, ok := r.db.accounts[email]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

type UserRepo struct{ db *DB }

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; ok {
		return repository.ErrUserExists
	}
	lower := strings.ToLower(user.DisplayName)
	if r.db.displayNameTaken(lower, user.ID) {
		return repository.ErrDisplayNameTaken
	}
	now := r.db.now()
	user.DisplayNameLower = lower
	user.Friends = domain.NormalizeFriends(user.Friends, user.ID)
	user.CreatedAt, user.UpdatedAt = now, now
	r.db.users[user.ID] = *cloneUser(*user)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetByDisplayName(_ context.Context, displayName string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	lower := strings.ToLower(strings.TrimSpace(displayName))
	for _, u := range r.db.users {
		if u.DisplayNameLower == lower {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *UserRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	users := []domain.User{}
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			users = append(users, *cloneUser(u))
		}
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return strings.Compare(a.DisplayNameLower, b.DisplayNameLower)
	})
	return users, nil
}

func (r *UserRepo) Update(_ context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.DisplayName != nil {
		lower := strings.ToLower(*patch.DisplayName)
		if r.db.displayNameTaken(lower, id) {
			return nil, repository.ErrDisplayNameTaken
		}
		u.DisplayName = *patch.DisplayName
		u.DisplayNameLower = lower
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.AvatarURL != nil {
		url := *patch.AvatarURL
		u.AvatarURL = &url
	}
	if patch.Friends != nil {
		u.Friends = domain.NormalizeFriends(patch.Friends, id)
	}
	u.UpdatedAt = r.db.now()
	r.db.users[id] = u
	return cloneUser(u), nil
}

func (db *DB) displayNameTaken(lower string, self uuid.UUID) bool {
	for _, u := range db.users {
		if u.ID != self && u.DisplayNameLower == lower {
			return true
		}
	}
	return false
}

func cloneUser(u domain.User) *domain.User {
	u.Friends = slices.Clone(u.Friends)
	if u.Friends == nil {
		u.Friends = []uuid.UUID{}
	}
	return &u
}

type FriendRequestRepo struct{ db *DB }

func (r *FriendRequestRepo) Create(_ context.Context, req *domain.FriendRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := domain.PairKey(req.SenderID, req.RecipientID)
	if req.Status == domain.RequestPending {
		for _, existing := range r.db.requests {
			if existing.PairKey == key && existing.Status == domain.RequestPending {
				return repository.ErrDuplicatePending
			}
		}
	}
	req.PairKey = key
	req.CreatedAt = r.db.now()
	r.db.requests[req.ID] = *req
	return nil
}

func (r *FriendRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	req, ok := r.db.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r *FriendRequestRepo) Find(_ context.Context, filter repository.RequestFilter) ([]domain.FriendRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	reqs := []domain.FriendRequest{}
	for _, req := range r.db.requests {
		if filter.Matches(&req) {
			reqs = append(reqs, req)
		}
	}
	slices.SortFunc(reqs, func(a, b domain.FriendRequest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return reqs, nil
}

func (r *FriendRequestRepo) SetStatus(_ context.Context, id uuid.UUID, from, to domain.RequestStatus) (*domain.FriendRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req, ok := r.db.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.Status != from {
		return nil, repository.ErrStatusChanged
	}
	now := r.db.now()
	req.Status = to
	req.RespondedAt = &now
	r.db.requests[id] = req
	return &req, nil
}

func (r *FriendRequestRepo) DeleteResolvedBefore(_ context.Context, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, req := range r.db.requests {
		if req.Status != domain.RequestPending && req.RespondedAt != nil && req.RespondedAt.Before(before) {
			delete(r.db.requests, id)
			n++
		}
	}
	return n, nil
}

type MessageRepo struct{ db *DB }

func (r *MessageRepo) Create(_ context.Context, msg *domain.ChatMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.db.now()
	}
	r.db.messages = append(r.db.messages, *msg)
	return nil
}

func (r *MessageRepo) ListRecent(_ context.Context, limit int) ([]domain.ChatMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	msgs := slices.Clone(r.db.messages)
	slices.SortFunc(msgs, func(a, b domain.ChatMessage) int { return strings.Compare(a.ID, b.ID) })
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs, nil
}
