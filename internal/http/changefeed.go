package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/example/roombook/internal/persistence"
)

// ChangeEvent tells connected clients that a collection was replaced and a
// re-fetch is in order. Records are never pushed over the feed.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	At         time.Time `json:"at"`
}

type feedClient struct {
	id   string
	conn *websocket.Conn
	send chan ChangeEvent
}

// ChangeFeed bridges the persistence layer's change notifications onto
// websocket clients so UI layers refresh without polling.
type ChangeFeed struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*feedClient
	cancels []func()
}

// NewChangeFeed subscribes to the given collections on the notifier.
func NewChangeFeed(notifier persistence.ChangeNotifier, collections []string, logger *slog.Logger) *ChangeFeed {
	f := &ChangeFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  defaultLogger(logger),
		now:     time.Now,
		clients: make(map[string]*feedClient),
	}

	for _, name := range collections {
		f.cancels = append(f.cancels, notifier.OnCollectionChanged(name, f.broadcast))
	}

	return f
}

// Close cancels the subscriptions and disconnects every client.
func (f *ChangeFeed) Close() {
	for _, cancel := range f.cancels {
		cancel()
	}
	f.cancels = nil

	f.mu.Lock()
	clients := make([]*feedClient, 0, len(f.clients))
	for _, client := range f.clients {
		clients = append(clients, client)
	}
	f.clients = make(map[string]*feedClient)
	f.mu.Unlock()

	for _, client := range clients {
		close(client.send)
	}
}

func (f *ChangeFeed) broadcast(collection string) {
	event := ChangeEvent{Collection: collection, At: f.now()}

	f.mu.Lock()
	defer f.mu.Unlock()

	for id, client := range f.clients {
		select {
		case client.send <- event:
		default:
			// The client is not draining its queue; drop it rather than
			// block the persistence callback.
			delete(f.clients, id)
			close(client.send)
			f.logger.Warn("dropped slow change feed client", "client_id", id)
		}
	}
}

// Handle upgrades the connection and streams change events until the client
// disconnects.
func (f *ChangeFeed) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	client := &feedClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan ChangeEvent, 16),
	}

	f.mu.Lock()
	f.clients[client.id] = client
	f.mu.Unlock()
	f.logger.InfoContext(r.Context(), "change feed client connected", "client_id", client.id)

	go f.writePump(client)
	f.readPump(client)
}

func (f *ChangeFeed) writePump(client *feedClient) {
	for event := range client.send {
		if err := client.conn.WriteJSON(event); err != nil {
			f.logger.Warn("failed to write change event", "client_id", client.id, "error", err)
			break
		}
	}
	_ = client.conn.Close()
}

// readPump discards inbound frames; its job is noticing the disconnect.
func (f *ChangeFeed) readPump(client *feedClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	if _, ok := f.clients[client.id]; ok {
		delete(f.clients, client.id)
		close(client.send)
	}
	f.mu.Unlock()

	f.logger.Info("change feed client disconnected", "client_id", client.id)
}
