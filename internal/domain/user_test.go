package domain

import (
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
)

func TestAddFriend(t *testing.T) {
	owner, a, b := uuid.New(), uuid.New(), uuid.New()

	set, changed := AddFriend([]uuid.UUID{a}, owner, b)
	assert.Equal(t, changed, true)
	assert.Equal(t, set, []uuid.UUID{a, b})

	set, changed = AddFriend(set, owner, a)
	assert.Equal(t, changed, false)
	assert.Equal(t, set, []uuid.UUID{a, b})

	set, changed = AddFriend(set, owner, owner)
	assert.Equal(t, changed, false)
	assert.Equal(t, len(set), 2)
}

func TestAddFriend_RepairsStoredSet(t *testing.T) {
	owner, a := uuid.New(), uuid.New()

	set, changed := AddFriend([]uuid.UUID{a, owner, a}, owner, a)
	assert.Equal(t, changed, true)
	assert.Equal(t, set, []uuid.UUID{a})
}

func TestRemoveFriend(t *testing.T) {
	owner, a, b := uuid.New(), uuid.New(), uuid.New()

	set, changed := RemoveFriend([]uuid.UUID{a, b}, owner, a)
	assert.Equal(t, changed, true)
	assert.Equal(t, set, []uuid.UUID{b})

	set, changed = RemoveFriend(set, owner, a)
	assert.Equal(t, changed, false)
	assert.Equal(t, set, []uuid.UUID{b})
}

func TestNormalizeFriends_NeverNil(t *testing.T) {
	owner := uuid.New()
	set := NormalizeFriends(nil, owner)
	assert.Equal(t, set != nil, true)
	assert.Equal(t, len(NormalizeFriends([]uuid.UUID{uuid.Nil, owner}, owner)), 0)
}

func TestPairKey_OrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.NotEqual(t, PairKey(a, b), PairKey(a, uuid.New()))
}
