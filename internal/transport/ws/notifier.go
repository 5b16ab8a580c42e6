package ws

import (
	"github.com/golang/glog"
	"github.com/vedran77/huddle/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyChatMessage(msg *domain.ChatMessage) {
	evt, err := NewEvent(EventTypeChatMessage, ChatMessagePayload{ChatMessage: *msg})
	if err != nil {
		glog.Errorf("[ws] notifier marshal error: %v", err)
		return
	}
	n.hub.Broadcast(evt)
}
