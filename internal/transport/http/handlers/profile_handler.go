package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/imagehost"
	"github.com/vedran77/huddle/internal/service"
	"github.com/vedran77/huddle/internal/transport/http/middleware"
	"github.com/vedran77/huddle/pkg/validator"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.profileService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		input.DisplayName = &name
	}
	if errs := validator.ValidateProfile(input.DisplayName, input.Bio); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.profileService.Update(r.Context(), middleware.GetSession(r.Context()), input)
	if err != nil {
		h.handleError(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// SetAvatar takes the raw image as the request body.
func (h *ProfileHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, imagehost.MaxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Could not read upload")
		return
	}

	user, err := h.profileService.SetAvatar(r.Context(), middleware.GetSession(r.Context()), data)
	if err != nil {
		var hostErr *imagehost.HostError
		switch {
		case errors.Is(err, imagehost.ErrEmptyUpload):
			writeError(w, http.StatusBadRequest, "EMPTY_UPLOAD", "No image provided")
		case errors.Is(err, imagehost.ErrInvalidImage):
			writeError(w, http.StatusBadRequest, "INVALID_IMAGE", "Image could not be decoded")
		case errors.Is(err, imagehost.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "Image must be 5 MB or smaller")
		case errors.Is(err, imagehost.ErrTooManyPixels):
			writeError(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "Image must be at most 4096x4096 pixels")
		case errors.Is(err, imagehost.ErrUnsupportedType):
			writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_IMAGE", "Only PNG, JPEG and WebP images are accepted")
		case errors.Is(err, imagehost.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "UPLOADS_DISABLED", "Image uploads are not configured")
		case errors.As(err, &hostErr):
			writeError(w, http.StatusBadGateway, "IMAGE_HOST_ERROR", hostErr.Error())
		default:
			h.handleError(w, "set avatar", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	user, err := h.profileService.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Lookup finds a profile by display name, ignoring case.
func (h *ProfileHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if errs := validator.ValidateDisplayName(name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.profileService.FindByName(r.Context(), name)
	if err != nil {
		h.handleError(w, "lookup user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) handleError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrDisplayNameTaken):
		writeError(w, http.StatusConflict, "DISPLAY_NAME_TAKEN", "Display name is already taken")
	default:
		internalError(w, op, err)
	}
}
