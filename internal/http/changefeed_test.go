package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/roombook/internal/persistence"
	"github.com/example/roombook/internal/persistence/memory"
)

func newFeedServer(t *testing.T, backend *memory.Store, collections []string) (*httptest.Server, *ChangeFeed) {
	t.Helper()

	feed := NewChangeFeed(backend, collections, nil)
	t.Cleanup(feed.Close)

	server := httptest.NewServer(NewRouter(RouterConfig{ChangeFeed: feed}))
	t.Cleanup(server.Close)
	return server, feed
}

func dialFeed(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial change feed: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForClientCount blocks until the feed has registered the expected number
// of clients; the dial returns before the server side finishes registration.
func waitForClientCount(t *testing.T, feed *ChangeFeed, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		feed.mu.Lock()
		got := len(feed.clients)
		feed.mu.Unlock()
		if got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("feed never reached %d connected clients", want)
}

func TestChangeFeed_DeliversCollectionChanges(t *testing.T) {
	backend := memory.Open()
	server, feed := newFeedServer(t, backend, []string{persistence.CollectionRoomReservations})

	conn := dialFeed(t, server)
	waitForClientCount(t, feed, 1)

	ctx := context.Background()
	record := json.RawMessage(`{"id":1}`)
	if err := backend.SaveCollection(ctx, persistence.CollectionRoomReservations, []json.RawMessage{record}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event ChangeEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read change event: %v", err)
	}
	if event.Collection != persistence.CollectionRoomReservations {
		t.Fatalf("unexpected collection %q", event.Collection)
	}
	if event.At.IsZero() {
		t.Fatal("expected the event to carry a timestamp")
	}

	// Saves against unsubscribed collections reach nobody.
	if err := backend.SaveCollection(ctx, persistence.CollectionResources, nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
	if err := conn.ReadJSON(&event); err == nil {
		t.Fatalf("unexpected event for an unsubscribed collection: %+v", event)
	}
}

func TestChangeFeed_CloseDisconnectsClients(t *testing.T) {
	backend := memory.Open()
	server, feed := newFeedServer(t, backend, []string{persistence.CollectionRoomReservations})

	conn := dialFeed(t, server)
	waitForClientCount(t, feed, 1)

	feed.Close()
	waitForClientCount(t, feed, 0)

	// The subscription is cancelled, so a save after Close is not broadcast
	// and the client sees its connection go away.
	if err := backend.SaveCollection(context.Background(), persistence.CollectionRoomReservations, nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to be closed after Close")
	}
}

func TestChangeFeed_DropsSlowClients(t *testing.T) {
	feed := NewChangeFeed(memory.Open(), nil, nil)
	t.Cleanup(feed.Close)

	// A client with no running write pump never drains its queue. Once the
	// queue is full, broadcast must drop the client instead of blocking the
	// persistence callback.
	stalled := &feedClient{id: "stalled", send: make(chan ChangeEvent, 16)}
	feed.mu.Lock()
	feed.clients[stalled.id] = stalled
	feed.mu.Unlock()

	for i := 0; i <= cap(stalled.send); i++ {
		feed.broadcast(persistence.CollectionRoomReservations)
	}

	feed.mu.Lock()
	_, connected := feed.clients[stalled.id]
	feed.mu.Unlock()
	if connected {
		t.Fatal("expected the stalled client to be dropped")
	}

	// The queue holds the events delivered before the drop and was closed so
	// a write pump would terminate.
	var delivered int
	for range stalled.send {
		delivered++
	}
	if delivered != cap(stalled.send) {
		t.Fatalf("expected %d queued events, got %d", cap(stalled.send), delivered)
	}
}
