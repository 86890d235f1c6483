package persistence

import (
	"context"
	"encoding/json"
)

// Collection names owned by the booking core.
const (
	CollectionResources           = "resources"
	CollectionRoomReservations    = "room_reservations"
	CollectionVirtualReservations = "virtual_reservations"
)

// CollectionStore is the persistence collaborator: an ordered collection of
// JSON documents addressable by a collection name. Implementations decide
// durability; the booking core only relies on load returning the records of
// the most recent successful save in their saved order.
type CollectionStore interface {
	LoadCollection(ctx context.Context, name string) ([]json.RawMessage, error)
	SaveCollection(ctx context.Context, name string, records []json.RawMessage) error
}

// ChangeNotifier is an optional push mechanism. Stores backed by a realtime
// synchronized backend implement it to tell subscribers that a collection was
// replaced; callbacks fire after the new content is observable through
// LoadCollection. Callers that need the update re-load the collection rather
// than receiving records in the callback. Backends without change feeds simply
// do not implement the interface and callers fall back to polling.
type ChangeNotifier interface {
	OnCollectionChanged(name string, fn func(name string)) (cancel func())
}
