package memory

import (
	"context"
	"encoding/json"
	"testing"
)

func TestStore_SaveAndLoadCollection(t *testing.T) {
	store := Open()
	ctx := context.Background()

	loaded, err := store.LoadCollection(ctx, "resources")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(loaded))
	}

	records := []json.RawMessage{
		json.RawMessage(`{"id":1}`),
		json.RawMessage(`{"id":2}`),
	}
	if err := store.SaveCollection(ctx, "resources", records); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err = store.LoadCollection(ctx, "resources")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if string(loaded[0]) != `{"id":1}` || string(loaded[1]) != `{"id":2}` {
		t.Fatalf("records came back out of order or mutated: %s %s", loaded[0], loaded[1])
	}
}

func TestStore_LoadReturnsCopies(t *testing.T) {
	store := Open()
	ctx := context.Background()

	if err := store.SaveCollection(ctx, "resources", []json.RawMessage{json.RawMessage(`{"id":1}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	first, _ := store.LoadCollection(ctx, "resources")
	first[0][0] = 'X'

	second, _ := store.LoadCollection(ctx, "resources")
	if string(second[0]) != `{"id":1}` {
		t.Fatalf("mutating a loaded record leaked into the store: %s", second[0])
	}
}

func TestStore_OnCollectionChanged(t *testing.T) {
	store := Open()
	ctx := context.Background()

	var notified []string
	cancel := store.OnCollectionChanged("room_reservations", func(name string) {
		notified = append(notified, name)
	})

	if err := store.SaveCollection(ctx, "room_reservations", nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveCollection(ctx, "resources", nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if len(notified) != 1 || notified[0] != "room_reservations" {
		t.Fatalf("expected a single notification for room_reservations, got %v", notified)
	}

	cancel()
	cancel() // second cancel is a no-op

	if err := store.SaveCollection(ctx, "room_reservations", nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if len(notified) != 1 {
		t.Fatalf("expected no notification after cancel, got %v", notified)
	}
}

func TestStore_NotificationObservesNewContent(t *testing.T) {
	store := Open()
	ctx := context.Background()

	var seen int
	store.OnCollectionChanged("resources", func(name string) {
		records, err := store.LoadCollection(ctx, name)
		if err != nil {
			t.Errorf("load inside callback failed: %v", err)
			return
		}
		seen = len(records)
	})

	if err := store.SaveCollection(ctx, "resources", []json.RawMessage{json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if seen != 1 {
		t.Fatalf("callback observed %d records, want 1", seen)
	}
}
