package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/imagehost"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _ := env.signUp(t, "ana@example.com")

	rec := env.do(t, http.MethodPatch, "/api/v1/profile", token, map[string]string{
		"display_name": "  Ana B  ",
		"bio":          "hello",
	})
	assert.Equal(t, rec.Code, http.StatusOK)

	var user domain.User
	decode(t, rec, &user)
	assert.Equal(t, user.DisplayName, "Ana B")
	assert.Equal(t, user.Bio, "hello")
}

func TestUpdateProfileValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _ := env.signUp(t, "ana@example.com")

	rec := env.do(t, http.MethodPatch, "/api/v1/profile", token, map[string]string{"display_name": "a!"})
	assert.Equal(t, rec.Code, http.StatusBadRequest)
	assert.Equal(t, errorCode(t, rec), "VALIDATION_ERROR")
}

func TestUpdateProfileNameTaken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signUp(t, "ana@example.com")
	token, _ := env.signUp(t, "bob@example.com")

	rec := env.do(t, http.MethodPatch, "/api/v1/profile", token, map[string]string{"display_name": "ANA"})
	assert.Equal(t, rec.Code, http.StatusConflict)
	assert.Equal(t, errorCode(t, rec), "DISPLAY_NAME_TAKEN")
}

func TestGetAndLookupUser(t *testing.T) {
	env := newTestEnv(t, nil)
	_, ana := env.signUp(t, "ana@example.com")
	token, _ := env.signUp(t, "bob@example.com")

	rec := env.do(t, http.MethodGet, "/api/v1/users/"+ana.ID.String(), token, nil)
	assert.Equal(t, rec.Code, http.StatusOK)

	rec = env.do(t, http.MethodGet, "/api/v1/users?name=ANA", token, nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	var found domain.User
	decode(t, rec, &found)
	assert.Equal(t, found.ID, ana.ID)

	rec = env.do(t, http.MethodGet, "/api/v1/users?name=nobody", token, nil)
	assert.Equal(t, rec.Code, http.StatusNotFound)

	rec = env.do(t, http.MethodGet, "/api/v1/users/not-a-uuid", token, nil)
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestSetAvatar(t *testing.T) {
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "https://img.example/a.png"})
	}))
	defer host.Close()

	env := newTestEnv(t, imagehost.NewClient(host.URL, "key"))
	token, _ := env.signUp(t, "ana@example.com")

	rec := env.do(t, http.MethodPut, "/api/v1/profile/avatar", token, pngBytes(t))
	assert.Equal(t, rec.Code, http.StatusOK)

	var user domain.User
	decode(t, rec, &user)
	assert.Equal(t, *user.AvatarURL, "https://img.example/a.png")
}

func TestSetAvatarRejections(t *testing.T) {
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer host.Close()

	env := newTestEnv(t, imagehost.NewClient(host.URL, "key"))
	token, _ := env.signUp(t, "ana@example.com")

	rec := env.do(t, http.MethodPut, "/api/v1/profile/avatar", token, []byte("plain text, not an image"))
	assert.Equal(t, rec.Code, http.StatusUnsupportedMediaType)

	rec = env.do(t, http.MethodPut, "/api/v1/profile/avatar", token, make([]byte, imagehost.MaxUploadSize+10))
	assert.Equal(t, rec.Code, http.StatusRequestEntityTooLarge)

	rec = env.do(t, http.MethodPut, "/api/v1/profile/avatar", token, pngBytes(t))
	assert.Equal(t, rec.Code, http.StatusBadGateway)
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	decode(t, rec, &body)
	assert.Equal(t, body.Error.Message, "quota exceeded")
}

func TestSetAvatarNotConfigured(t *testing.T) {
	env := newTestEnv(t, imagehost.NewClient("", ""))
	token, _ := env.signUp(t, "ana@example.com")

	rec := env.do(t, http.MethodPut, "/api/v1/profile/avatar", token, pngBytes(t))
	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)
}
