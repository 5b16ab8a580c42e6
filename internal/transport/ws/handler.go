package ws

import (
	"context"
	"net/http"
	"net/url"

	"github.com/golang/glog"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/service"
	"nhooyr.io/websocket"
)

type TokenParser interface {
	ParseToken(token string) (domain.Session, error)
}

// ServeWS returns an HTTP handler that upgrades to WebSocket and runs the
// session's friend sync for as long as the connection lives.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(hub *Hub, auth TokenParser, syncMgr *service.SyncManager, allowedOrigins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		sess, err := auth.ParseToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, acceptOptions(allowedOrigins))
		if err != nil {
			glog.Warningf("[ws] accept error: %v", err)
			return
		}

		client := NewClient(hub, conn, sess.UserID)
		hub.register <- client

		// The request context ends when this handler returns.
		client.sync, err = syncMgr.Start(context.Background(), sess, client)
		if err != nil {
			glog.Errorf("[ws] starting sync for %s: %v", sess.UserID, err)
			client.SyncError(err)
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

// acceptOptions turns CORS origins into the host patterns the websocket
// origin check expects. "*" disables the check.
func acceptOptions(allowedOrigins []string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			origin = u.Host
		}
		opts.OriginPatterns = append(opts.OriginPatterns, origin)
	}
	return opts
}
