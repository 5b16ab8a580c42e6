// Package mongodb stores profiles and friend requests as documents, with the
// friend set kept as an array field on the user document.
package mongodb

import (
	"context"
	"fmt"

	"github.com/vedran77/huddle/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection = "accounts"
	usersCollection    = "users"
	requestsCollection = "friend_requests"
	messagesCollection = "chat_messages"
)

// NewStore wires every repository to one database. Close disconnects the client.
func NewStore(db *mongo.Database) *repository.Store {
	return &repository.Store{
		Accounts: NewAccountRepo(db),
		Users:    NewUserRepo(db),
		Requests: NewFriendRequestRepo(db),
		Messages: NewMessageRepo(db),
		Close: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	}
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		accountsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(indexEmail).SetUnique(true)},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "display_name_lower", Value: 1}}, Options: options.Index().SetName(indexDisplayName).SetUnique(true)},
		},
		requestsCollection: {
			{
				Keys: bson.D{{Key: "pair_key", Value: 1}},
				Options: options.Index().
					SetName(indexPendingPair).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "pending"}),
			},
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "status", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}
	return nil
}
