package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vedran77/huddle/internal/changefeed"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/policy"
	"github.com/vedran77/huddle/internal/repository"
	"github.com/vedran77/huddle/internal/repository/memory"
	"github.com/vedran77/huddle/internal/service"
	"github.com/vedran77/huddle/internal/transport/http/middleware"
)

func init() {
	flag.Set("logtostderr", "true")
}

type testEnv struct {
	handler http.Handler
	store   *repository.Store
}

func newTestEnv(t *testing.T, images service.ImageUploader) *testEnv {
	t.Helper()

	engine, err := policy.New(context.Background())
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}

	store := memory.NewStore()
	feed := changefeed.NewLocal()
	users := changefeed.ObserveUsers(store.Users, feed)
	requests := changefeed.ObserveRequests(store.Requests, feed)

	profiles := service.NewProfileService(users, images)
	authSvc := service.NewAuthService(store.Accounts, profiles, "test-secret", time.Hour)
	friends := service.NewFriendService(users, requests, feed, engine)
	chat := service.NewChatService(store.Messages, users)

	routes := Routes{
		Auth:        NewAuthHandler(authSvc),
		Profile:     NewProfileHandler(profiles),
		Friends:     NewFriendHandler(friends),
		Chat:        NewChatHandler(chat),
		RequireAuth: middleware.Auth(authSvc),
	}
	return &testEnv{handler: routes.Mux(), store: store}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signUp registers and logs in, returning the token and the created profile.
func (e *testEnv) signUp(t *testing.T, email string) (string, domain.User) {
	t.Helper()

	creds := map[string]string{"email": email, "password": "Secret123"}
	if rec := e.do(t, http.MethodPost, "/api/v1/auth/register", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body.String())
	}
	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}

	var resp service.AuthResponse
	decode(t, rec, &resp)
	return resp.AccessToken, *resp.User
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error.Code
}
