package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
)

const requestColumns = `id, sender_id, recipient_id, status, pair_key, created_at, responded_at`

type FriendRequestRepo struct {
	db Querier
}

func NewFriendRequestRepo(db Querier) *FriendRequestRepo {
	return &FriendRequestRepo{db: db}
}

func (r *FriendRequestRepo) Create(ctx context.Context, req *domain.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, sender_id, recipient_id, status, pair_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query,
		req.ID, req.SenderID, req.RecipientID, req.Status,
		domain.PairKey(req.SenderID, req.RecipientID), req.CreatedAt,
	)
	if name, ok := uniqueConstraint(err); ok && name == constraintPendingPair {
		return repository.ErrDuplicatePending
	}
	return err
}

func (r *FriendRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx,
		"SELECT "+requestColumns+" FROM friend_requests WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// Find builds a WHERE clause from the set predicates of filter.
func (r *FriendRequestRepo) Find(ctx context.Context, filter repository.RequestFilter) ([]domain.FriendRequest, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.SenderID != nil {
		add("sender_id", *filter.SenderID)
	}
	if filter.RecipientID != nil {
		add("recipient_id", *filter.RecipientID)
	}
	if filter.Status != nil {
		add("status", string(*filter.Status))
	}

	query := "SELECT " + requestColumns + " FROM friend_requests"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []domain.FriendRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

func (r *FriendRequestRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus) (*domain.FriendRequest, error) {
	query := `
		UPDATE friend_requests SET status = $2, responded_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + requestColumns
	req, err := scanRequest(r.db.QueryRow(ctx, query, id, string(to), string(from)))
	if !errors.Is(err, pgx.ErrNoRows) {
		return req, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM friend_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrStatusChanged
	}
	return nil, repository.ErrNotFound
}

func (r *FriendRequestRepo) DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM friend_requests WHERE status <> 'pending' AND responded_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRequest(row pgx.Row) (*domain.FriendRequest, error) {
	var (
		req    domain.FriendRequest
		status string
	)
	if err := row.Scan(
		&req.ID, &req.SenderID, &req.RecipientID, &status,
		&req.PairKey, &req.CreatedAt, &req.RespondedAt,
	); err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	return &req, nil
}
