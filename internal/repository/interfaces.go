package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
)

// Lookups return (nil, nil) when nothing matches. Writes against a missing
// key return ErrNotFound.
var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicatePending is returned when a second pending request for the
	// same pair is rejected by the store.
	ErrDuplicatePending = errors.New("pending request already exists for pair")
	// ErrDisplayNameTaken is returned when another profile holds the same
	// lowercased display name.
	ErrDisplayNameTaken = errors.New("display name taken")
	ErrEmailTaken       = errors.New("email taken")
	// ErrUserExists is returned when a profile with the same id already exists.
	ErrUserExists = errors.New("user already exists")
	// ErrStatusChanged is returned by SetStatus when the request is no longer
	// in the expected status.
	ErrStatusChanged = errors.New("request status changed")
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
	// Update merges the non-nil patch fields and stamps updated_at. A non-nil
	// empty Friends slice clears the set.
	Update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error)
}

// RequestFilter is a conjunction of equality predicates. Nil fields match anything.
type RequestFilter struct {
	SenderID    *uuid.UUID
	RecipientID *uuid.UUID
	Status      *domain.RequestStatus
}

type FriendRequestRepository interface {
	Create(ctx context.Context, req *domain.FriendRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error)
	Find(ctx context.Context, filter RequestFilter) ([]domain.FriendRequest, error)
	// SetStatus moves the request from status from to status to and stamps
	// responded_at. It returns ErrStatusChanged when the stored status is not
	// from, and ErrNotFound when the request does not exist.
	SetStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus) (*domain.FriendRequest, error)
	DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	ListRecent(ctx context.Context, limit int) ([]domain.ChatMessage, error)
}

// Store groups the repositories of one backend.
type Store struct {
	Accounts AccountRepository
	Users    UserRepository
	Requests FriendRequestRepository
	Messages MessageRepository
	Close    func(ctx context.Context) error
}

func Status(s domain.RequestStatus) *domain.RequestStatus { return &s }

func ID(id uuid.UUID) *uuid.UUID { return &id }

// Matches reports whether req satisfies every predicate of f.
func (f RequestFilter) Matches(req *domain.FriendRequest) bool {
	if f.SenderID != nil && req.SenderID != *f.SenderID {
		return false
	}
	if f.RecipientID != nil && req.RecipientID != *f.RecipientID {
		return false
	}
	if f.Status != nil && req.Status != *f.Status {
		return false
	}
	return true
}
