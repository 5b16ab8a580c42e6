package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepo struct {
	collection *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{collection: db.Collection(usersCollection)}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	doc := *user
	doc.DisplayNameLower = strings.ToLower(user.DisplayName)
	doc.Friends = domain.NormalizeFriends(user.Friends, user.ID)

	_, err := r.collection.InsertOne(ctx, doc)
	return userInsertError(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"display_name_lower": strings.ToLower(strings.TrimSpace(displayName))})
}

func (r *UserRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "display_name_lower", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []domain.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Friends == nil {
			users[i].Friends = []uuid.UUID{}
		}
	}
	return users, nil
}

// Update applies the patch as a single $set so concurrent writers to other
// fields are not clobbered.
func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	set := bson.M{"updated_at": time.Now()}
	if patch.DisplayName != nil {
		set["display_name"] = *patch.DisplayName
		set["display_name_lower"] = strings.ToLower(*patch.DisplayName)
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.AvatarURL != nil {
		set["avatar_url"] = *patch.AvatarURL
	}
	if patch.Friends != nil {
		set["friends"] = domain.NormalizeFriends(patch.Friends, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u domain.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, repository.ErrDisplayNameTaken
	}
	if err != nil {
		return nil, err
	}
	if u.Friends == nil {
		u.Friends = []uuid.UUID{}
	}
	return &u, nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var u domain.User
	err := r.collection.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
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
