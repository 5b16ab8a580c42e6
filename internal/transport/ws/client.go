package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/service"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a single WebSocket connection. It is also the sink of
// the session's friend sync, so events reach only this connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID

	sync *service.SessionSync

	mu     sync.Mutex
	closed bool
	send   chan []byte
	done   chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
	}
}

// ReadPump reads messages from the WebSocket until the connection drops,
// then releases the session's subscriptions.
func (c *Client) ReadPump() {
	defer func() {
		if c.sync != nil {
			c.sync.Stop()
		}
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				glog.V(1).Infof("[ws] client %s disconnected", c.userID)
			} else {
				glog.V(1).Infof("[ws] read error from %s: %v", c.userID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				glog.Warningf("[ws] write error to %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				glog.V(1).Infof("[ws] ping error to %s: %v", c.userID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypePing:
		c.emit(EventTypePong, struct{}{})
	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) IncomingRequests(reqs []domain.FriendRequest) {
	if reqs == nil {
		reqs = []domain.FriendRequest{}
	}
	c.emit(EventTypeIncomingRequests, IncomingRequestsPayload{Requests: reqs})
}

func (c *Client) FriendsAdded(ids []uuid.UUID) {
	c.emit(EventTypeFriendsUpdated, FriendsUpdatedPayload{Added: ids})
}

func (c *Client) SyncError(err error) {
	c.emit(EventTypeSyncError, ErrorPayload{Code: "SYNC_FAILED", Message: err.Error()})
}

func (c *Client) sendError(code, message string) {
	c.emit(EventTypeError, ErrorPayload{Code: code, Message: message})
}

func (c *Client) emit(eventType string, payload any) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		glog.Errorf("[ws] marshal %s: %v", eventType, err)
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		glog.Errorf("[ws] marshal %s: %v", eventType, err)
		return
	}
	c.enqueue(data)
}

// enqueue drops the message when the buffer is full or the client is gone.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	close(c.done)
}
