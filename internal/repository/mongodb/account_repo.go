package mongodb

import (
	"context"
	"errors"

	"github.com/vedran77/huddle/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AccountRepo struct {
	collection *mongo.Collection
}

func NewAccountRepo(db *mongo.Database) *AccountRepo {
	return &AccountRepo{collection: db.Collection(accountsCollection)}
}

func (r *AccountRepo) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.collection.InsertOne(ctx, account)
	return accountInsertError(err)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
