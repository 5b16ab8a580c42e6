package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/service"
)

type contextKey string

const SessionKey contextKey = "session"

// SessionParser turns a bearer token into a session.
type SessionParser interface {
	ParseToken(token string) (domain.Session, error)
}

func Auth(parser SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid token")
				return
			}

			sess, err := parser.ParseToken(strings.TrimPrefix(header, "Bearer "))
			if errors.Is(err, service.ErrSessionExpired) {
				writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired, please sign in again")
				return
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession extracts the session from request context
func GetSession(ctx context.Context) domain.Session {
	sess, _ := ctx.Value(SessionKey).(domain.Session)
	return sess
}

func GetUserID(ctx context.Context) uuid.UUID {
	return GetSession(ctx).UserID
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
