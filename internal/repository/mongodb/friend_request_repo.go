package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FriendRequestRepo struct {
	collection *mongo.Collection
}

func NewFriendRequestRepo(db *mongo.Database) *FriendRequestRepo {
	return &FriendRequestRepo{collection: db.Collection(requestsCollection)}
}

func (r *FriendRequestRepo) Create(ctx context.Context, req *domain.FriendRequest) error {
	doc := *req
	doc.PairKey = domain.PairKey(req.SenderID, req.RecipientID)

	_, err := r.collection.InsertOne(ctx, doc)
	return requestInsertError(err)
}

func (r *FriendRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *FriendRequestRepo) Find(ctx context.Context, filter repository.RequestFilter) ([]domain.FriendRequest, error) {
	query := bson.D{}
	if filter.SenderID != nil {
		query = append(query, bson.E{Key: "sender_id", Value: *filter.SenderID})
	}
	if filter.RecipientID != nil {
		query = append(query, bson.E{Key: "recipient_id", Value: *filter.RecipientID})
	}
	if filter.Status != nil {
		query = append(query, bson.E{Key: "status", Value: string(*filter.Status)})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reqs := []domain.FriendRequest{}
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *FriendRequestRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus) (*domain.FriendRequest, error) {
	filter := bson.M{"_id": id, "status": string(from)}
	update := bson.M{"$set": bson.M{"status": string(to), "responded_at": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req domain.FriendRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, cerr
		}
		return nil, missingOrChanged(n > 0)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *FriendRequestRepo) DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"status":       bson.M{"$ne": string(domain.RequestPending)},
		"responded_at": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
