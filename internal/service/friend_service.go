package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/changefeed"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/policy"
	"github.com/vedran77/huddle/internal/repository"
)

var (
	ErrCannotRequestSelf   = errors.New("cannot send a friend request to yourself")
	ErrCannotUnfriendSelf  = errors.New("cannot unfriend yourself")
	ErrAlreadyFriends      = errors.New("you are already friends")
	ErrRequestNotFound     = errors.New("friend request not found")
	ErrNotRequestRecipient = errors.New("only the request recipient can perform this action")
	ErrNotRequestSender    = errors.New("only the request sender can cancel")
	ErrRequestNotPending   = errors.New("friend request is no longer pending")
	ErrSenderMismatch      = errors.New("sender does not match the request")
)

// Authorizer decides whether a session may act on friend requests.
type Authorizer interface {
	Send(ctx context.Context, actor, target uuid.UUID, actorFriends []uuid.UUID) (policy.Decision, error)
	Resolve(ctx context.Context, actor uuid.UUID, req *domain.FriendRequest) (policy.Decision, error)
	Cancel(ctx context.Context, actor uuid.UUID, req *domain.FriendRequest) (policy.Decision, error)
}

// FriendService keeps friend sets of two independently owned user records in
// step using request records. Every write touches a single record; the
// sender's side of an acceptance is applied by the sender's own session in
// ReconcileAccepted.
type FriendService struct {
	users    repository.UserRepository
	requests repository.FriendRequestRepository
	feed     changefeed.Feed
	authz    Authorizer
	now      func() time.Time
}

func NewFriendService(
	users repository.UserRepository,
	requests repository.FriendRequestRepository,
	feed changefeed.Feed,
	authz Authorizer,
) *FriendService {
	return &FriendService{
		users:    users,
		requests: requests,
		feed:     feed,
		authz:    authz,
		now:      time.Now,
	}
}

// SendRequest creates a pending request from the session to targetID. When a
// pending request already exists between the two in either direction, its
// direction is reported and nothing is written.
func (s *FriendService) SendRequest(ctx context.Context, sess domain.Session, targetID uuid.UUID) (*domain.RequestOutcome, error) {
	if targetID == sess.UserID {
		return nil, ErrCannotRequestSelf
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	me, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	var friends []uuid.UUID
	if me != nil {
		friends = me.Friends
	}

	decision, err := s.authz.Send(ctx, sess.UserID, targetID, friends)
	if err != nil {
		return nil, err
	}
	switch {
	case decision.Has(policy.ReasonSelf):
		return nil, ErrCannotRequestSelf
	case decision.Has(policy.ReasonAlreadyFriends):
		return nil, ErrAlreadyFriends
	}

	existing, err := s.pendingBetween(ctx, sess.UserID, targetID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	req := &domain.FriendRequest{
		ID:          uuid.New(),
		SenderID:    sess.UserID,
		RecipientID: targetID,
		Status:      domain.RequestPending,
		PairKey:     domain.PairKey(sess.UserID, targetID),
		CreatedAt:   s.now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		if !errors.Is(err, repository.ErrDuplicatePending) {
			return nil, fmt.Errorf("creating friend request: %w", err)
		}
		// Lost a race with a concurrent submit for the same pair.
		existing, checkErr := s.pendingBetween(ctx, sess.UserID, targetID)
		if checkErr != nil {
			return nil, checkErr
		}
		if existing == nil {
			return nil, fmt.Errorf("creating friend request: %w", err)
		}
		return existing, nil
	}

	glog.V(1).Infof("[friends] request %s: %s -> %s", req.ID, req.SenderID, req.RecipientID)
	return &domain.RequestOutcome{Request: req}, nil
}

// SendRequestByName resolves the target by case-insensitive display name.
func (s *FriendService) SendRequestByName(ctx context.Context, sess domain.Session, displayName string) (*domain.RequestOutcome, error) {
	target, err := s.users.GetByDisplayName(ctx, displayName)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	return s.SendRequest(ctx, sess, target.ID)
}

func (s *FriendService) pendingBetween(ctx context.Context, me, other uuid.UUID) (*domain.RequestOutcome, error) {
	checks := []struct {
		sender, recipient uuid.UUID
		direction         domain.Direction
	}{
		{me, other, domain.DirectionOutgoing},
		{other, me, domain.DirectionIncoming},
	}
	for _, c := range checks {
		found, err := s.requests.Find(ctx, repository.RequestFilter{
			SenderID:    repository.ID(c.sender),
			RecipientID: repository.ID(c.recipient),
			Status:      repository.Status(domain.RequestPending),
		})
		if err != nil {
			return nil, fmt.Errorf("checking pending requests: %w", err)
		}
		if len(found) > 0 {
			return &domain.RequestOutcome{Exists: true, Direction: c.direction, Request: &found[0]}, nil
		}
	}
	return nil, nil
}

// AcceptRequest marks the request accepted and then adds the sender to the
// recipient's own friend set. The second write failing leaves the request
// accepted and is reported as a warning.
func (s *FriendService) AcceptRequest(ctx context.Context, sess domain.Session, requestID, senderID uuid.UUID) (domain.Result, error) {
	var res domain.Result

	req, err := s.resolvable(ctx, sess, requestID)
	if err != nil {
		return res, err
	}
	if req.SenderID != senderID {
		return res, ErrSenderMismatch
	}

	if err := s.resolvePending(ctx, req.ID, domain.RequestAccepted); err != nil {
		return res, fmt.Errorf("accepting friend request: %w", err)
	}

	if _, err := s.addFriend(ctx, sess.UserID, req.SenderID); err != nil {
		glog.Warningf("[friends] request %s accepted but adding %s to %s failed: %v", req.ID, req.SenderID, sess.UserID, err)
		res.Warn(fmt.Sprintf("request accepted, but updating your friend list failed: %v", err))
	}
	return res, nil
}

func (s *FriendService) DeclineRequest(ctx context.Context, sess domain.Session, requestID uuid.UUID) error {
	req, err := s.resolvable(ctx, sess, requestID)
	if err != nil {
		return err
	}
	if err := s.resolvePending(ctx, req.ID, domain.RequestDeclined); err != nil {
		return fmt.Errorf("declining friend request: %w", err)
	}
	return nil
}

// CancelRequest withdraws the session's own pending request. The record is
// kept and marked declined.
func (s *FriendService) CancelRequest(ctx context.Context, sess domain.Session, requestID uuid.UUID) error {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return err
	}

	decision, err := s.authz.Cancel(ctx, sess.UserID, req)
	if err != nil {
		return err
	}
	switch {
	case decision.Has(policy.ReasonNotSender):
		return ErrNotRequestSender
	case decision.Has(policy.ReasonNotPending):
		return ErrRequestNotPending
	}

	if err := s.resolvePending(ctx, req.ID, domain.RequestDeclined); err != nil {
		return fmt.Errorf("cancelling friend request: %w", err)
	}
	return nil
}

// resolvePending moves a pending request to its final status. A request
// resolved by someone else since it was read reports ErrRequestNotPending.
func (s *FriendService) resolvePending(ctx context.Context, id uuid.UUID, to domain.RequestStatus) error {
	_, err := s.requests.SetStatus(ctx, id, domain.RequestPending, to)
	if errors.Is(err, repository.ErrStatusChanged) {
		return ErrRequestNotPending
	}
	return err
}

func (s *FriendService) resolvable(ctx context.Context, sess domain.Session, requestID uuid.UUID) (*domain.FriendRequest, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	decision, err := s.authz.Resolve(ctx, sess.UserID, req)
	if err != nil {
		return nil, err
	}
	switch {
	case decision.Has(policy.ReasonNotRecipient):
		return nil, ErrNotRequestRecipient
	case decision.Has(policy.ReasonNotPending):
		return nil, ErrRequestNotPending
	}
	return req, nil
}

func (s *FriendService) getRequest(ctx context.Context, requestID uuid.UUID) (*domain.FriendRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("loading friend request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// ReconcileAccepted applies the sender's side of every accepted request in
// requests: the recipient is added to the session's friend set when absent.
// Records the session did not send, or that are not accepted, are ignored.
// Running it again on the same records writes nothing. It returns the ids
// that were added.
func (s *FriendService) ReconcileAccepted(ctx context.Context, sess domain.Session, requests []domain.FriendRequest) ([]uuid.UUID, error) {
	added := []uuid.UUID{}
	var errs []error
	for _, req := range requests {
		if req.SenderID != sess.UserID || req.Status != domain.RequestAccepted {
			continue
		}
		changed, err := s.addFriend(ctx, sess.UserID, req.RecipientID)
		if err != nil {
			glog.Warningf("[friends] reconciling request %s for %s: %v", req.ID, sess.UserID, err)
			errs = append(errs, fmt.Errorf("request %s: %w", req.ID, err))
			continue
		}
		if changed {
			added = append(added, req.RecipientID)
		}
	}
	if len(added) > 0 {
		glog.V(1).Infof("[friends] reconciled %s: added %v", sess.UserID, added)
	}
	return added, errors.Join(errs...)
}

// ReconcileNow reads the session's accepted outgoing requests and reconciles
// them once.
func (s *FriendService) ReconcileNow(ctx context.Context, sess domain.Session) ([]uuid.UUID, error) {
	accepted, err := s.outgoingAccepted(sess)(ctx)
	if err != nil {
		return nil, err
	}
	return s.ReconcileAccepted(ctx, sess, accepted)
}

// addFriend reads owner's friend set and writes it back with friend added.
// Nothing is written when friend is already present.
func (s *FriendService) addFriend(ctx context.Context, owner, friend uuid.UUID) (bool, error) {
	user, err := s.users.GetByID(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("loading profile: %w", err)
	}
	if user == nil {
		return false, ErrUserNotFound
	}

	friends, changed := domain.AddFriend(user.Friends, owner, friend)
	if !changed {
		return false, nil
	}
	if _, err := s.users.Update(ctx, owner, domain.UserPatch{Friends: friends}); err != nil {
		return false, fmt.Errorf("updating friends: %w", err)
	}
	return true, nil
}

// WatchOutgoingAccepted streams the session's sent requests that have been
// accepted.
func (s *FriendService) WatchOutgoingAccepted(ctx context.Context, sess domain.Session) (*changefeed.Stream[domain.FriendRequest], error) {
	return changefeed.Watch(ctx, s.feed,
		[]string{changefeed.RequestsTopic(sess.UserID)},
		s.outgoingAccepted(sess))
}

// WatchIncomingPending streams the requests awaiting the session's answer.
func (s *FriendService) WatchIncomingPending(ctx context.Context, sess domain.Session) (*changefeed.Stream[domain.FriendRequest], error) {
	return changefeed.Watch(ctx, s.feed,
		[]string{changefeed.RequestsTopic(sess.UserID)},
		func(ctx context.Context) ([]domain.FriendRequest, error) {
			return s.ListIncoming(ctx, sess)
		})
}

func (s *FriendService) outgoingAccepted(sess domain.Session) changefeed.QueryFunc[domain.FriendRequest] {
	return func(ctx context.Context) ([]domain.FriendRequest, error) {
		reqs, err := s.requests.Find(ctx, repository.RequestFilter{
			SenderID: repository.ID(sess.UserID),
			Status:   repository.Status(domain.RequestAccepted),
		})
		if err != nil {
			return nil, fmt.Errorf("listing accepted requests: %w", err)
		}
		return reqs, nil
	}
}

// Unfriend removes targetID from the session's friend set, then tries to
// remove the session from the target's set. Only the own-set write can fail
// the call; the others are reported as warnings.
//
// Accepted requests between the pair are retired first (marked declined) so
// that a later reconciliation does not add the friend back.
func (s *FriendService) Unfriend(ctx context.Context, sess domain.Session, targetID uuid.UUID) (domain.Result, error) {
	var res domain.Result
	if targetID == sess.UserID {
		return res, ErrCannotUnfriendSelf
	}

	if err := s.retireAccepted(ctx, sess.UserID, targetID); err != nil {
		glog.Warningf("[friends] retiring accepted requests between %s and %s: %v", sess.UserID, targetID, err)
		res.Warn(fmt.Sprintf("old friend requests could not be retired: %v", err))
	}

	me, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return res, fmt.Errorf("loading profile: %w", err)
	}
	if me == nil {
		return res, ErrUserNotFound
	}

	friends, _ := domain.RemoveFriend(me.Friends, sess.UserID, targetID)
	if _, err := s.users.Update(ctx, sess.UserID, domain.UserPatch{Friends: friends}); err != nil {
		return res, fmt.Errorf("updating friends: %w", err)
	}

	if err := s.removeReciprocal(ctx, targetID, sess.UserID); err != nil {
		glog.Warningf("[friends] %s unfriended %s but reciprocal removal failed: %v", sess.UserID, targetID, err)
		res.Warn(fmt.Sprintf("removed from your friends, but their friend list could not be updated: %v", err))
	}
	return res, nil
}

func (s *FriendService) retireAccepted(ctx context.Context, a, b uuid.UUID) error {
	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		reqs, err := s.requests.Find(ctx, repository.RequestFilter{
			SenderID:    repository.ID(pair[0]),
			RecipientID: repository.ID(pair[1]),
			Status:      repository.Status(domain.RequestAccepted),
		})
		if err != nil {
			return fmt.Errorf("listing accepted requests: %w", err)
		}
		for _, req := range reqs {
			_, err := s.requests.SetStatus(ctx, req.ID, domain.RequestAccepted, domain.RequestDeclined)
			if err != nil && !errors.Is(err, repository.ErrStatusChanged) {
				return fmt.Errorf("retiring request %s: %w", req.ID, err)
			}
		}
	}
	return nil
}

func (s *FriendService) removeReciprocal(ctx context.Context, owner, friend uuid.UUID) error {
	user, err := s.users.GetByID(ctx, owner)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	friends, changed := domain.RemoveFriend(user.Friends, owner, friend)
	if !changed {
		return nil
	}
	if _, err := s.users.Update(ctx, owner, domain.UserPatch{Friends: friends}); err != nil {
		return fmt.Errorf("updating friends: %w", err)
	}
	return nil
}

// ListFriends returns the profiles in the session's friend set. Ids without a
// profile are skipped.
func (s *FriendService) ListFriends(ctx context.Context, sess domain.Session) ([]domain.User, error) {
	me, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if me == nil {
		return nil, ErrUserNotFound
	}

	friends, err := s.users.ListByIDs(ctx, me.Friends)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	return friends, nil
}

func (s *FriendService) ListIncoming(ctx context.Context, sess domain.Session) ([]domain.FriendRequest, error) {
	reqs, err := s.requests.Find(ctx, repository.RequestFilter{
		RecipientID: repository.ID(sess.UserID),
		Status:      repository.Status(domain.RequestPending),
	})
	if err != nil {
		return nil, fmt.Errorf("listing incoming requests: %w", err)
	}
	return reqs, nil
}

func (s *FriendService) ListOutgoing(ctx context.Context, sess domain.Session) ([]domain.FriendRequest, error) {
	reqs, err := s.requests.Find(ctx, repository.RequestFilter{
		SenderID: repository.ID(sess.UserID),
		Status:   repository.Status(domain.RequestPending),
	})
	if err != nil {
		return nil, fmt.Errorf("listing outgoing requests: %w", err)
	}
	return reqs, nil
}

// PruneResolved deletes accepted and declined requests answered more than
// olderThan ago.
func (s *FriendService) PruneResolved(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("prune window must be positive, got %s", olderThan)
	}
	n, err := s.requests.DeleteResolvedBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("pruning resolved requests: %w", err)
	}
	glog.Infof("[friends] pruned %d resolved requests older than %s", n, olderThan)
	return n, nil
}
