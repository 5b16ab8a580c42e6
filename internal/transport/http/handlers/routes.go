package handlers

import (
	"net/http"
)

// Routes bundles the handlers and the middleware the router applies.
// Nil limiters let requests through.
type Routes struct {
	Auth    *AuthHandler
	Profile *ProfileHandler
	Friends *FriendHandler
	Chat    *ChatHandler
	WS      http.Handler

	RequireAuth   func(http.Handler) http.Handler
	LimitRequests func(http.Handler) http.Handler
	LimitMessages func(http.Handler) http.Handler
}

func (rt Routes) Mux() *http.ServeMux {
	auth := rt.RequireAuth
	limitRequests := orPassThrough(rt.LimitRequests)
	limitMessages := orPassThrough(rt.LimitMessages)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth routes (public)
	mux.HandleFunc("POST /api/v1/auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", rt.Auth.Login)

	// Profile routes (protected)
	mux.Handle("GET /api/v1/profile", auth(http.HandlerFunc(rt.Profile.Me)))
	mux.Handle("PATCH /api/v1/profile", auth(http.HandlerFunc(rt.Profile.Update)))
	mux.Handle("PUT /api/v1/profile/avatar", auth(http.HandlerFunc(rt.Profile.SetAvatar)))
	mux.Handle("GET /api/v1/users/{id}", auth(http.HandlerFunc(rt.Profile.GetUser)))
	mux.Handle("GET /api/v1/users", auth(http.HandlerFunc(rt.Profile.Lookup)))

	// Friend routes (protected)
	mux.Handle("GET /api/v1/friends", auth(http.HandlerFunc(rt.Friends.ListFriends)))
	mux.Handle("DELETE /api/v1/friends/{id}", auth(http.HandlerFunc(rt.Friends.Unfriend)))
	mux.Handle("POST /api/v1/friends/requests", auth(limitRequests(http.HandlerFunc(rt.Friends.SendRequest))))
	mux.Handle("GET /api/v1/friends/requests/incoming", auth(http.HandlerFunc(rt.Friends.ListIncoming)))
	mux.Handle("GET /api/v1/friends/requests/outgoing", auth(http.HandlerFunc(rt.Friends.ListOutgoing)))
	mux.Handle("POST /api/v1/friends/requests/{id}/accept", auth(http.HandlerFunc(rt.Friends.AcceptRequest)))
	mux.Handle("POST /api/v1/friends/requests/{id}/decline", auth(http.HandlerFunc(rt.Friends.DeclineRequest)))
	mux.Handle("DELETE /api/v1/friends/requests/{id}", auth(http.HandlerFunc(rt.Friends.CancelRequest)))

	// Chat routes (protected)
	mux.Handle("GET /api/v1/chat/messages", auth(http.HandlerFunc(rt.Chat.List)))
	mux.Handle("POST /api/v1/chat/messages", auth(limitMessages(http.HandlerFunc(rt.Chat.Send))))

	if rt.WS != nil {
		mux.Handle("GET /ws", rt.WS)
	}

	return mux
}

func orPassThrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
