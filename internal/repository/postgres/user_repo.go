package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
)

const userColumns = `id, display_name, display_name_lower, bio, avatar_url, friends, created_at, updated_at`

type UserRepo struct {
	db Querier
}

func NewUserRepo(db Querier) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, display_name, display_name_lower, bio, avatar_url, friends, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	friends := domain.NormalizeFriends(user.Friends, user.ID)
	_, err := r.db.Exec(ctx, query,
		user.ID, user.DisplayName, strings.ToLower(user.DisplayName), user.Bio,
		user.AvatarURL, friends, user.CreatedAt, user.UpdatedAt,
	)
	name, ok := uniqueConstraint(err)
	switch {
	case ok && name == constraintDisplayName:
		return repository.ErrDisplayNameTaken
	case ok && name == constraintUserPK:
		return repository.ErrUserExists
	}
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *UserRepo) GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error) {
	return r.scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE display_name_lower = $1",
		strings.ToLower(strings.TrimSpace(displayName)),
	))
}

func (r *UserRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}

	rows, err := r.db.Query(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ANY($1) ORDER BY display_name_lower ASC", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	var friends []uuid.UUID
	if patch.Friends != nil {
		friends = domain.NormalizeFriends(patch.Friends, id)
	}

	var lower *string
	if patch.DisplayName != nil {
		l := strings.ToLower(*patch.DisplayName)
		lower = &l
	}

	query := `
		UPDATE users SET
			display_name = COALESCE($2, display_name),
			display_name_lower = COALESCE($3, display_name_lower),
			bio = COALESCE($4, bio),
			avatar_url = COALESCE($5, avatar_url),
			friends = COALESCE($6, friends),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := r.scanUser(r.db.QueryRow(ctx, query,
		id, patch.DisplayName, lower, patch.Bio, patch.AvatarURL, friends,
	))
	if name, ok := uniqueConstraint(err); ok && name == constraintDisplayName {
		return nil, repository.ErrDisplayNameTaken
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.DisplayName, &u.DisplayNameLower, &u.Bio,
		&u.AvatarURL, &u.Friends, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.Friends == nil {
		u.Friends = []uuid.UUID{}
	}
	return &u, nil
}
