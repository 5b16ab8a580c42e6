package ws

import (
	"encoding/json"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// Hub tracks live connections and fans chat events out to them. A user may
// hold several connections at once.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
}

type broadcastMsg struct {
	data   []byte
	userID *uuid.UUID // nil: everyone
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			glog.V(1).Infof("[ws] user %s connected (%d total)", client.userID, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				glog.V(1).Infof("[ws] user %s disconnected (%d total)", client.userID, len(h.clients))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if msg.userID != nil && client.userID != *msg.userID {
					continue
				}
				if !client.enqueue(msg.data) {
					// Client buffer full - disconnect
					glog.Warningf("[ws] dropping slow client %s", client.userID)
					delete(h.clients, client)
					client.close()
				}
			}
		}
	}
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event *Event) {
	h.send(event, nil)
}

// BroadcastToUser sends an event to every connection of one user.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event *Event) {
	h.send(event, &userID)
}

func (h *Hub) send(event *Event, userID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		glog.Errorf("[ws] marshal error: %v", err)
		return
	}
	h.broadcast <- &broadcastMsg{data: data, userID: userID}
}
