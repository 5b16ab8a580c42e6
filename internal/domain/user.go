package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// User is the profile record owned by a single identity.
type User struct {
	ID               uuid.UUID   `json:"id" bson:"_id"`
	DisplayName      string      `json:"display_name" bson:"display_name"`
	DisplayNameLower string      `json:"-" bson:"display_name_lower"`
	Bio              string      `json:"bio" bson:"bio"`
	AvatarURL        *string     `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	Friends          []uuid.UUID `json:"friends" bson:"friends"`
	CreatedAt        time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" bson:"updated_at"`
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
	Friends     []uuid.UUID
}

// Account is the identity provider's credential record.
type Account struct {
	ID           uuid.UUID `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// HasFriend reports whether id is in the user's friend set.
func (u *User) HasFriend(id uuid.UUID) bool {
	return slices.Contains(u.Friends, id)
}

// AddFriend returns the friend set with id added. The second return value is
// false when nothing changed. The owner's own id is never added.
func AddFriend(friends []uuid.UUID, owner, id uuid.UUID) ([]uuid.UUID, bool) {
	set := NormalizeFriends(friends, owner)
	if id == owner || slices.Contains(set, id) {
		return set, len(set) != len(friends)
	}
	return append(set, id), true
}

// RemoveFriend returns the friend set without id.
func RemoveFriend(friends []uuid.UUID, owner, id uuid.UUID) ([]uuid.UUID, bool) {
	set := NormalizeFriends(friends, owner)
	out := slices.DeleteFunc(slices.Clone(set), func(f uuid.UUID) bool { return f == id })
	return out, len(out) != len(friends)
}

// NormalizeFriends drops duplicates, nil ids and the owner, keeping first-seen order.
func NormalizeFriends(friends []uuid.UUID, owner uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(friends))
	out := make([]uuid.UUID, 0, len(friends))
	for _, f := range friends {
		if f == owner || f == uuid.Nil {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
