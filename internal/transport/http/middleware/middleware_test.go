package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/service"
)

type fakeParser struct {
	sess domain.Session
	err  error
}

func (f fakeParser) ParseToken(string) (domain.Session, error) {
	return f.sess, f.err
}

func sessionEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetUserID(r.Context()).String()))
	})
}

func TestAuth(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		header string
		parser fakeParser
		status int
		body   string
	}{
		{"missing header", "", fakeParser{}, http.StatusUnauthorized, `{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid token"}}`},
		{"not bearer", "Basic abc", fakeParser{}, http.StatusUnauthorized, `{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid token"}}`},
		{"expired", "Bearer t", fakeParser{err: service.ErrSessionExpired}, http.StatusUnauthorized, `{"error":{"code":"SESSION_EXPIRED","message":"Session expired, please sign in again"}}`},
		{"invalid", "Bearer t", fakeParser{err: errors.New("bad signature")}, http.StatusUnauthorized, `{"error":{"code":"UNAUTHORIZED","message":"Invalid token"}}`},
		{"valid", "Bearer t", fakeParser{sess: domain.Session{UserID: id}}, http.StatusOK, id.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(tt.parser)(sessionEcho()).ServeHTTP(rec, req)

			assert.Equal(t, rec.Code, tt.status)
			assert.Equal(t, rec.Body.String(), tt.body)
		})
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORS([]string{"http://localhost:3000"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusNoContent)
	assert.Equal(t, rec.Header().Get("Access-Control-Allow-Origin"), "http://localhost:3000")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusTeapot)
	assert.Equal(t, rec.Header().Get("Access-Control-Allow-Origin"), "")
}

func TestCORSWildcard(t *testing.T) {
	handler := CORS([]string{"*"})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anything.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, rec.Header().Get("Access-Control-Allow-Origin"), "http://anything.example")
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, rec.Code, http.StatusConflict)
}

func TestRateLimiterWithoutRedisPassesThrough(t *testing.T) {
	rl := NewRateLimiter(nil, 1, time.Minute, "test", false, nil)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, rec.Code, http.StatusOK)
	}
}

func TestRateLimiterRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	NewRateLimiter(client, 1, time.Minute, "test", true, nil).Middleware(next).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, rec.Code, http.StatusOK)

	rec = httptest.NewRecorder()
	NewRateLimiter(client, 1, time.Minute, "test", false, nil).Middleware(next).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)
}

func TestClientIP_IgnoresForwardingHeadersFromUntrustedPeers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.Header.Set("X-Real-IP", "198.51.100.2")

	var none TrustedProxies
	assert.Equal(t, none.ClientIP(req), "203.0.113.7")

	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	assert.Equal(t, err, nil)
	assert.Equal(t, proxies.ClientIP(req), "203.0.113.7")
}

func TestClientIP_BehindTrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 "})
	assert.Equal(t, err, nil)
	assert.Equal(t, len(proxies), 2)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, proxies.ClientIP(req), "10.0.0.1")

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, proxies.ClientIP(req), "198.51.100.2")

	// A client-supplied leftmost hop cannot displace the address the proxy saw.
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 198.51.100.3, 192.0.2.1")
	assert.Equal(t, proxies.ClientIP(req), "198.51.100.3")

	req.Header.Set("X-Forwarded-For", "10.0.0.9, 192.0.2.1")
	req.Header.Del("X-Real-IP")
	assert.Equal(t, proxies.ClientIP(req), "10.0.0.1")

	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, proxies.ClientIP(req), "10.0.0.1")
}

func TestParseTrustedProxies_RejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Equal(t, err != nil, true)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Equal(t, err != nil, true)
}
