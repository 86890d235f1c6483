package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "roombook_test.db")
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	loaded, err := store.LoadCollection(ctx, "resources")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(loaded))
	}

	records := []json.RawMessage{
		json.RawMessage(`{"id":1,"name":"Meeting Room A"}`),
		json.RawMessage(`{"id":2,"name":"Meeting Room B"}`),
		json.RawMessage(`{"id":3,"name":"Meeting Room C"}`),
	}
	if err := store.SaveCollection(ctx, "resources", records); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err = store.LoadCollection(ctx, "resources")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(loaded))
	}
	for i := range records {
		if string(loaded[i]) != string(records[i]) {
			t.Fatalf("record %d mismatch: got %s, want %s", i, loaded[i], records[i])
		}
	}
}

func TestStore_SaveReplacesContent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := []json.RawMessage{
		json.RawMessage(`{"id":1}`),
		json.RawMessage(`{"id":2}`),
	}
	if err := store.SaveCollection(ctx, "room_reservations", first); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	second := []json.RawMessage{json.RawMessage(`{"id":2}`)}
	if err := store.SaveCollection(ctx, "room_reservations", second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.LoadCollection(ctx, "room_reservations")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 1 || string(loaded[0]) != `{"id":2}` {
		t.Fatalf("expected the replacement content, got %v", loaded)
	}
}

func TestStore_CollectionsAreIndependent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveCollection(ctx, "room_reservations", []json.RawMessage{json.RawMessage(`{"id":1}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveCollection(ctx, "virtual_reservations", []json.RawMessage{json.RawMessage(`{"id":9}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	rooms, err := store.LoadCollection(ctx, "room_reservations")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	virtual, err := store.LoadCollection(ctx, "virtual_reservations")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(rooms) != 1 || string(rooms[0]) != `{"id":1}` {
		t.Fatalf("room collection polluted: %v", rooms)
	}
	if len(virtual) != 1 || string(virtual[0]) != `{"id":9}` {
		t.Fatalf("virtual collection polluted: %v", virtual)
	}
}

func TestStore_Ping(t *testing.T) {
	store := openTestStore(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}
