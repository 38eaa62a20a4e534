package ws

import (
	"context"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/service"
)

// Hub tracks the connected WebSocket clients and gives them access to the
// streaming services.
type Hub struct {
	messages      *service.MessageService
	conversations *service.ConversationService

	// clients maps userID → that user's open sockets.
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	// base parents every client context; it is cancelled when Run returns.
	base     context.Context
	shutdown context.CancelFunc
	done     chan struct{}
}

func NewHub(messages *service.MessageService, conversations *service.ConversationService) *Hub {
	base, shutdown := context.WithCancel(context.Background())
	return &Hub{
		messages:      messages,
		conversations: conversations,
		clients:       make(map[string]map[*Client]struct{}),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		base:          base,
		shutdown:      shutdown,
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's main event loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.shutdown()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			total := h.countLocked()
			h.mu.Unlock()
			jww.INFO.Printf("ws hub: user %s connected (%d total)", client.userID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[client.userID]; ok {
				delete(set, client)
				if len(set) == 0 {
					delete(h.clients, client.userID)
				}
			}
			total := h.countLocked()
			h.mu.Unlock()
			jww.INFO.Printf("ws hub: user %s disconnected (%d total)", client.userID, total)

		case <-ctx.Done():
			h.mu.Lock()
			n := h.countLocked()
			h.clients = make(map[string]map[*Client]struct{})
			h.mu.Unlock()
			jww.INFO.Printf("ws hub: shutting down, closing %d clients", n)
			return nil
		}
	}
}

// join registers c; it reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ConnectedUsers returns how many distinct users have an open socket.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
