package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/huddle/internal/repository"
)

// NewStore wires every repository to one pool. Close releases the pool.
func NewStore(pool *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Accounts: NewAccountRepo(pool),
		Users:    NewUserRepo(pool),
		Requests: NewFriendRequestRepo(pool),
		Messages: NewMessageRepo(pool),
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}
}
