package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDisplayNameTaken = errors.New("display name already taken")
)

const (
	defaultNameMin = 3
	defaultNameMax = 30
)

// ImageUploader stores an image and returns its stable URL.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, pathHint string) (string, error)
}

type ProfileService struct {
	users  repository.UserRepository
	images ImageUploader
}

func NewProfileService(users repository.UserRepository, images ImageUploader) *ProfileService {
	return &ProfileService{users: users, images: images}
}

type UpdateProfileInput struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// EnsureProfile returns the session's profile, creating it from the account
// email on first sign-in.
func (s *ProfileService) EnsureProfile(ctx context.Context, sess domain.Session, email string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if user != nil {
		return user, nil
	}

	base := defaultDisplayName(email)
	name := base
	for attempt := 0; attempt < 5; attempt++ {
		now := time.Now()
		user = &domain.User{
			ID:          sess.UserID,
			DisplayName: name,
			Friends:     []uuid.UUID{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = s.users.Create(ctx, user)
		if err == nil {
			glog.Infof("[profile] created profile %s (%s)", user.ID, user.DisplayName)
			return user, nil
		}
		if errors.Is(err, repository.ErrUserExists) {
			// A concurrent first login created it.
			return s.Get(ctx, sess.UserID)
		}
		if !errors.Is(err, repository.ErrDisplayNameTaken) {
			return nil, fmt.Errorf("creating profile: %w", err)
		}
		name = withSuffix(base, uuid.NewString()[:4])
	}
	return nil, fmt.Errorf("creating profile: %w", ErrDisplayNameTaken)
}

func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// FindByName looks a profile up by case-insensitive display name.
func (s *ProfileService) FindByName(ctx context.Context, displayName string) (*domain.User, error) {
	user, err := s.users.GetByDisplayName(ctx, displayName)
	if err != nil {
		return nil, fmt.Errorf("looking up profile: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *ProfileService) Update(ctx context.Context, sess domain.Session, input UpdateProfileInput) (*domain.User, error) {
	var patch domain.UserPatch
	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		patch.DisplayName = &name
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		patch.Bio = &bio
	}
	return s.update(ctx, sess.UserID, patch)
}

// SetAvatar uploads data to the image host and stores the returned URL.
func (s *ProfileService) SetAvatar(ctx context.Context, sess domain.Session, data []byte) (*domain.User, error) {
	url, err := s.images.Upload(ctx, data, "avatars/"+sess.UserID.String())
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sess.UserID, domain.UserPatch{AvatarURL: &url})
}

func (s *ProfileService) update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	user, err := s.users.Update(ctx, id, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, repository.ErrDisplayNameTaken):
		return nil, ErrDisplayNameTaken
	case err != nil:
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}

// defaultDisplayName derives a valid display name from the email local part.
func defaultDisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			b.WriteRune(r)
		case r == '.' || r == '+':
			b.WriteRune('_')
		}
	}
	name := []rune(b.String())
	if len(name) > defaultNameMax {
		name = name[:defaultNameMax]
	}
	for len(name) < defaultNameMin {
		name = append(name, '_')
	}
	return string(name)
}

func withSuffix(base, suffix string) string {
	name := []rune(base)
	if keep := defaultNameMax - len(suffix) - 1; len(name) > keep {
		name = name[:keep]
	}
	return string(name) + "-" + suffix
}
