package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
)

func newRequest() *domain.FriendRequest {
	return &domain.FriendRequest{
		ID:          uuid.New(),
		SenderID:    uuid.New(),
		RecipientID: uuid.New(),
		Status:      domain.RequestPending,
		CreatedAt:   time.Now(),
	}
}

func TestFriendRequestRepo_CreateMapsPendingPairViolation(t *testing.T) {
	ctx := context.Background()
	db := &fakeQuerier{execErr: uniqueErr(constraintPendingPair)}
	repo := NewFriendRequestRepo(db)
	req := newRequest()

	assert.Equal(t, repo.Create(ctx, req), repository.ErrDuplicatePending)
	args := db.last().args
	assert.Equal(t, args[4], domain.PairKey(req.SenderID, req.RecipientID))
}

func TestFriendRequestRepo_CreatePassesOtherErrorsThrough(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
	}{
		{"other unique constraint", uniqueErr("friend_requests_pkey")},
		{"foreign key on pair constraint name", &pgconn.PgError{Code: "23503", ConstraintName: constraintPendingPair}},
		{"connection", errors.New("conn closed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFriendRequestRepo(&fakeQuerier{execErr: tt.err})
			err := repo.Create(ctx, newRequest())
			assert.Equal(t, err == tt.err, true)
			assert.Equal(t, errors.Is(err, repository.ErrDuplicatePending), false)
		})
	}

	repo := NewFriendRequestRepo(&fakeQuerier{})
	assert.Equal(t, repo.Create(ctx, newRequest()), nil)
}

func TestFriendRequestRepo_FindBuildsQueryFromFilter(t *testing.T) {
	ctx := context.Background()
	sender, recipient := uuid.New(), uuid.New()
	selectAll := "SELECT " + requestColumns + " FROM friend_requests"
	order := " ORDER BY created_at DESC"

	tests := []struct {
		name   string
		filter repository.RequestFilter
		where  string
		args   []any
	}{
		{
			name: "no predicates",
		},
		{
			name:   "sender",
			filter: repository.RequestFilter{SenderID: repository.ID(sender)},
			where:  " WHERE sender_id = $1",
			args:   []any{sender},
		},
		{
			name:   "recipient",
			filter: repository.RequestFilter{RecipientID: repository.ID(recipient)},
			where:  " WHERE recipient_id = $1",
			args:   []any{recipient},
		},
		{
			name:   "status",
			filter: repository.RequestFilter{Status: repository.Status(domain.RequestPending)},
			where:  " WHERE status = $1",
			args:   []any{"pending"},
		},
		{
			name: "recipient and status",
			filter: repository.RequestFilter{
				RecipientID: repository.ID(recipient),
				Status:      repository.Status(domain.RequestAccepted),
			},
			where: " WHERE recipient_id = $1 AND status = $2",
			args:  []any{recipient, "accepted"},
		},
		{
			name: "all three",
			filter: repository.RequestFilter{
				SenderID:    repository.ID(sender),
				RecipientID: repository.ID(recipient),
				Status:      repository.Status(domain.RequestDeclined),
			},
			where: " WHERE sender_id = $1 AND recipient_id = $2 AND status = $3",
			args:  []any{sender, recipient, "declined"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeQuerier{}
			got, err := NewFriendRequestRepo(db).Find(ctx, tt.filter)
			assert.Equal(t, err, nil)
			assert.Equal(t, len(got), 0)
			assert.Equal(t, got != nil, true)

			q := db.last()
			assert.Equal(t, q.sql, selectAll+tt.where+order)
			assert.Equal(t, len(q.args), len(tt.args))
			for i := range tt.args {
				assert.Equal(t, q.args[i], tt.args[i])
			}
		})
	}
}

func TestFriendRequestRepo_FindScansRows(t *testing.T) {
	ctx := context.Background()
	req := newRequest()
	responded := time.Now()
	db := &fakeQuerier{rows: &fakeRows{rows: [][]any{
		{req.ID, req.SenderID, req.RecipientID, "accepted", "k", req.CreatedAt, &responded},
	}}}

	got, err := NewFriendRequestRepo(db).Find(ctx, repository.RequestFilter{})
	assert.Equal(t, err, nil)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].ID, req.ID)
	assert.Equal(t, got[0].Status, domain.RequestAccepted)
	assert.Equal(t, got[0].RespondedAt.Equal(responded), true)
}

func TestFriendRequestRepo_SetStatusIsGuardedByCurrentStatus(t *testing.T) {
	ctx := context.Background()
	req := newRequest()
	exists := func(v bool) func(dest ...any) error { return values(v) }

	t.Run("matching status", func(t *testing.T) {
		now := time.Now()
		db := &fakeQuerier{rowFuncs: []func(dest ...any) error{
			values(req.ID, req.SenderID, req.RecipientID, "accepted", "k", req.CreatedAt, &now),
		}}
		got, err := NewFriendRequestRepo(db).SetStatus(ctx, req.ID, domain.RequestPending, domain.RequestAccepted)
		assert.Equal(t, err, nil)
		assert.Equal(t, got.Status, domain.RequestAccepted)
		assert.Equal(t, len(db.calls), 1)

		q := db.calls[0]
		assert.Equal(t, len(q.args), 3)
		assert.Equal(t, q.args[0], req.ID)
		assert.Equal(t, q.args[1], "accepted")
		assert.Equal(t, q.args[2], "pending")
	})

	t.Run("already resolved", func(t *testing.T) {
		db := &fakeQuerier{rowFuncs: []func(dest ...any) error{noRows, exists(true)}}
		_, err := NewFriendRequestRepo(db).SetStatus(ctx, req.ID, domain.RequestPending, domain.RequestAccepted)
		assert.Equal(t, err, repository.ErrStatusChanged)
		assert.Equal(t, len(db.calls), 2)
	})

	t.Run("missing", func(t *testing.T) {
		db := &fakeQuerier{rowFuncs: []func(dest ...any) error{noRows, exists(false)}}
		_, err := NewFriendRequestRepo(db).SetStatus(ctx, req.ID, domain.RequestPending, domain.RequestAccepted)
		assert.Equal(t, err, repository.ErrNotFound)
	})
}
