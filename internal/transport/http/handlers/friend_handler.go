package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/service"
	"github.com/vedran77/huddle/internal/transport/http/middleware"
	"github.com/vedran77/huddle/pkg/validator"
)

type FriendHandler struct {
	friendService *service.FriendService
}

func NewFriendHandler(friendService *service.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type sendRequestInput struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type acceptInput struct {
	SenderID string `json:"sender_id"`
}

func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friendService.ListFriends(r.Context(), middleware.GetSession(r.Context()))
	if err != nil {
		internalError(w, "list friends", err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (h *FriendHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	res, err := h.friendService.Unfriend(r.Context(), middleware.GetSession(r.Context()), targetID)
	if err != nil {
		h.handleError(w, "unfriend", err)
		return
	}
	writeResult(w, res)
}

// SendRequest targets either user_id or display_name. An existing pending
// request between the pair is reported with 200 instead of creating another.
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	var input sendRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	input.UserID = strings.TrimSpace(input.UserID)
	input.DisplayName = strings.TrimSpace(input.DisplayName)

	if errs := validator.ValidateFriendRequest(input.UserID, input.DisplayName); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	sess := middleware.GetSession(r.Context())
	var (
		outcome *domain.RequestOutcome
		err     error
	)
	if input.UserID != "" {
		outcome, err = h.friendService.SendRequest(r.Context(), sess, uuid.MustParse(input.UserID))
	} else {
		outcome, err = h.friendService.SendRequestByName(r.Context(), sess, input.DisplayName)
	}
	if err != nil {
		h.handleError(w, "send friend request", err)
		return
	}

	if outcome.Exists {
		writeJSON(w, http.StatusOK, outcome)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

func (h *FriendHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.friendService.ListIncoming(r.Context(), middleware.GetSession(r.Context()))
	if err != nil {
		internalError(w, "list incoming requests", err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *FriendHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.friendService.ListOutgoing(r.Context(), middleware.GetSession(r.Context()))
	if err != nil {
		internalError(w, "list outgoing requests", err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid request ID")
		return
	}

	var input acceptInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	senderID, err := uuid.Parse(strings.TrimSpace(input.SenderID))
	if err != nil {
		writeValidationErrors(w, validator.ValidationErrors{"sender_id": "must be a valid user ID"})
		return
	}

	res, err := h.friendService.AcceptRequest(r.Context(), middleware.GetSession(r.Context()), requestID, senderID)
	if err != nil {
		h.handleError(w, "accept friend request", err)
		return
	}
	writeResult(w, res)
}

func (h *FriendHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid request ID")
		return
	}

	if err := h.friendService.DeclineRequest(r.Context(), middleware.GetSession(r.Context()), requestID); err != nil {
		h.handleError(w, "decline friend request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FriendHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid request ID")
		return
	}

	if err := h.friendService.CancelRequest(r.Context(), middleware.GetSession(r.Context()), requestID); err != nil {
		h.handleError(w, "cancel friend request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FriendHandler) handleError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrCannotRequestSelf):
		writeError(w, http.StatusBadRequest, "CANNOT_REQUEST_SELF", "Cannot send a request to yourself")
	case errors.Is(err, service.ErrCannotUnfriendSelf):
		writeError(w, http.StatusBadRequest, "CANNOT_UNFRIEND_SELF", "Cannot unfriend yourself")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "REQUEST_NOT_FOUND", "Friend request not found")
	case errors.Is(err, service.ErrAlreadyFriends):
		writeError(w, http.StatusConflict, "ALREADY_FRIENDS", "You are already friends")
	case errors.Is(err, service.ErrRequestNotPending):
		writeError(w, http.StatusConflict, "REQUEST_NOT_PENDING", "Friend request is no longer pending")
	case errors.Is(err, service.ErrSenderMismatch):
		writeError(w, http.StatusBadRequest, "SENDER_MISMATCH", "Sender does not match the request")
	case errors.Is(err, service.ErrNotRequestRecipient), errors.Is(err, service.ErrNotRequestSender):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		internalError(w, op, err)
	}
}

// writeResult always renders warnings as a list.
func writeResult(w http.ResponseWriter, res domain.Result) {
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}
