package hub

import (
	"encoding/json"
	"log"
	"sync"
)

// Subscription narrows what a browser receives. An empty ElectionID means all
// elections.
type Subscription struct {
	ElectionID string
}

type Client struct {
	ID           string
	SessionID    string
	// Kind is the session kind ("admin" or "voter"), used for reporting.
	Kind         string
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

type SubscribeMessage struct {
	Action     string `json:"action"`
	ElectionID string `json:"election_id"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Counts reports connected clients per Kind.
func (h *Hub) Counts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int)
	for _, client := range h.clients {
		out[client.Kind]++
	}
	return out
}

func (h *Hub) Broadcast(payload []byte, meta Subscription) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client.Subscription, meta) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("realtime drop client=%s session_kind=%s", client.ID, client.Kind)
		}
	}
}

// DisconnectSession closes every client opened by a session, used on logout.
func (h *Hub) DisconnectSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		if client.SessionID == sessionID {
			delete(h.clients, id)
			close(client.Send)
		}
	}
}

func match(sub Subscription, meta Subscription) bool {
	if sub.ElectionID != "" && meta.ElectionID != "" && meta.ElectionID != sub.ElectionID {
		return false
	}
	return true
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
