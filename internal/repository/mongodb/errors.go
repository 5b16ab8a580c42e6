package mongodb

import (
	"errors"
	"strings"

	"github.com/vedran77/huddle/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

const duplicateKey = 11000

// Index names set in EnsureIndexes. The primary key index is always _id_.
const (
	indexPrimary     = "_id_"
	indexEmail       = "email_unique"
	indexDisplayName = "display_name_lower_unique"
	indexPendingPair = "pending_pair_key"
)

// duplicateIndex reports the name of the unique index a write collided with.
func duplicateIndex(err error) (string, bool) {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return "", false
	}
	for _, e := range we.WriteErrors {
		if e.Code == duplicateKey {
			return indexName(e.Message), true
		}
	}
	return "", false
}

// indexName pulls the index out of "E11000 duplicate key error collection: db.c index: NAME dup key: {...}".
func indexName(msg string) string {
	_, rest, ok := strings.Cut(msg, " index: ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

func accountInsertError(err error) error {
	if name, ok := duplicateIndex(err); ok && name == indexEmail {
		return repository.ErrEmailTaken
	}
	return err
}

func userInsertError(err error) error {
	name, ok := duplicateIndex(err)
	switch {
	case !ok:
		return err
	case name == indexDisplayName:
		return repository.ErrDisplayNameTaken
	case name == indexPrimary:
		return repository.ErrUserExists
	}
	return err
}

func requestInsertError(err error) error {
	if name, ok := duplicateIndex(err); ok && name == indexPendingPair {
		return repository.ErrDuplicatePending
	}
	return err
}

// missingOrChanged explains a guarded update that matched nothing.
func missingOrChanged(exists bool) error {
	if exists {
		return repository.ErrStatusChanged
	}
	return repository.ErrNotFound
}
