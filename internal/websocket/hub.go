package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"taskboard/internal/docstore"
	"taskboard/pkg/logger"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one websocket listener on one collection. A scoped client is fed
// by its own filtered subscription and never gets the shared broadcast.
type Client struct {
	Conn       Conn
	Collection string
	Scoped     bool
	Mu         sync.Mutex
}

func (c *Client) send(message []byte) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, message)
}

// Message is a payload for every client of one collection.
type Message struct {
	Collection string
	Payload    []byte
}

// Hub fans snapshots out to websocket clients. Run owns the client registry;
// everything else talks to it through the channels.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client

	// latest payload per collection, replayed to new clients
	latest map[string][]byte
	// closed when Run returns
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan Message, 16),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		latest:     make(map[string][]byte),
		done:       make(chan struct{}),
	}
}

// Join registers client. It reports false, and closes the connection, once
// the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		client.Conn.Close()
		return false
	}
}

// Leave unregisters client; after shutdown Run has already closed it.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Run serves the registry until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.Clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.Clients[client] = true
			if client.Scoped {
				continue
			}
			if msg, ok := h.latest[client.Collection]; ok {
				if err := client.send(msg); err != nil {
					h.drop(client)
				}
			}
		case client := <-h.Unregister:
			h.drop(client)
		case message := <-h.Broadcast:
			h.latest[message.Collection] = message.Payload
			for client := range h.Clients {
				if client.Scoped || client.Collection != message.Collection {
					continue
				}
				if err := client.send(message.Payload); err != nil {
					logger.ErrorLogger.Error("Websocket write failed",
						zap.String("collection", client.Collection), zap.Error(err))
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		client.Conn.Close()
	}
}

// StreamableCollections may be watched over websocket. Credentials,
// settings and HR feedback never are.
var StreamableCollections = []string{
	docstore.Tasks, docstore.Projects, docstore.Employees, docstore.Teams, docstore.Tickets,
}

func Streamable(collection string) bool {
	for _, c := range StreamableCollections {
		if c == collection {
			return true
		}
	}
	return false
}

type snapshotMessage struct {
	Type       string           `json:"type"`
	Collection string           `json:"collection"`
	Stale      bool             `json:"stale"`
	Error      string           `json:"error,omitempty"`
	Documents  []map[string]any `json:"documents"`
}

// EncodeSnapshot renders a snapshot for the wire. Stale snapshots carry the
// error that made them stale.
func EncodeSnapshot(s docstore.Snapshot) ([]byte, error) {
	msg := snapshotMessage{
		Type:       "snapshot",
		Collection: s.Collection,
		Stale:      s.Stale,
		Documents:  make([]map[string]any, 0, len(s.Documents)),
	}
	if s.Err != nil {
		msg.Error = s.Err.Error()
	}
	for _, doc := range s.Documents {
		msg.Documents = append(msg.Documents, doc.Flatten())
	}
	return json.Marshal(msg)
}

// Feed subscribes to each collection and broadcasts every snapshot. The
// subscriptions end with ctx.
func (h *Hub) Feed(ctx context.Context, subs *docstore.Subscriptions, collections ...string) error {
	for _, collection := range collections {
		_, err := subs.Subscribe(ctx, collection, nil, func(s docstore.Snapshot) {
			payload, err := EncodeSnapshot(s)
			if err != nil {
				logger.ErrorLogger.Error("Encode snapshot failed", zap.String("collection", s.Collection), zap.Error(err))
				return
			}
			select {
			case h.Broadcast <- Message{Collection: s.Collection, Payload: payload}:
			case <-ctx.Done():
			}
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

// Stream feeds client from its own subscription narrowed by filters, for
// listeners that may only see part of a collection. It marks the client
// scoped, so call it before Join. Cancel the returned func when the client
// leaves.
func Stream(ctx context.Context, subs *docstore.Subscriptions, client *Client, filters ...docstore.Filter) (context.CancelFunc, error) {
	client.Scoped = true
	return subs.Subscribe(ctx, client.Collection, filters, func(s docstore.Snapshot) {
		payload, err := EncodeSnapshot(s)
		if err != nil {
			logger.ErrorLogger.Error("Encode snapshot failed", zap.String("collection", s.Collection), zap.Error(err))
			return
		}
		if err := client.send(payload); err != nil {
			logger.ErrorLogger.Warn("Websocket write failed",
				zap.String("collection", client.Collection), zap.Error(err))
		}
	}, nil)
}
