package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/example/roombook/internal/persistence"
)

// ResourceRegistry holds the catalog of bookable rooms. The catalog is loaded
// from the "resources" collection at construction and kept in memory; rooms
// are added by seeding or administrative action and never mutated or deleted
// afterwards.
type ResourceRegistry struct {
	mu        sync.RWMutex
	store     persistence.CollectionStore
	resources []Resource
	logger    *slog.Logger
}

// NewResourceRegistry loads the catalog from the collection store.
func NewResourceRegistry(ctx context.Context, store persistence.CollectionStore, logger *slog.Logger) (*ResourceRegistry, error) {
	r := &ResourceRegistry{store: store, logger: defaultLogger(logger)}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ResourceRegistry) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, r.logger, "ResourceRegistry", operation, attrs...)
}

// Refresh reloads the catalog from the collection store.
func (r *ResourceRegistry) Refresh(ctx context.Context) error {
	records, err := r.store.LoadCollection(ctx, persistence.CollectionResources)
	if err != nil {
		return mapStoreError(err)
	}

	resources := make([]Resource, 0, len(records))
	for _, record := range records {
		var resource Resource
		if err := json.Unmarshal(record, &resource); err != nil {
			return fmt.Errorf("malformed resource record: %w", err)
		}
		resources = append(resources, resource)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })

	r.mu.Lock()
	r.resources = resources
	r.mu.Unlock()
	return nil
}

// ListResources returns all resources in stable id order.
func (r *ResourceRegistry) ListResources(ctx context.Context) ([]Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Resource, len(r.resources))
	copy(out, r.resources)
	return out, nil
}

// GetResource looks up a resource by id.
func (r *ResourceRegistry) GetResource(ctx context.Context, id int64) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, resource := range r.resources {
		if resource.ID == id {
			return resource, nil
		}
	}
	return Resource{}, fmt.Errorf("%w: id %d", ErrUnknownResource, id)
}

// CreateResource validates input and appends a new room to the catalog.
func (r *ResourceRegistry) CreateResource(ctx context.Context, input ResourceInput) (resource Resource, err error) {
	logger := r.loggerWith(ctx, "CreateResource", "resource_name", input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID).InfoContext(ctx, "resource created")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Location) == "" {
		vErr.add("location", "location is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var lastID int64
	for _, existing := range r.resources {
		if existing.ID > lastID {
			lastID = existing.ID
		}
	}

	resource = Resource{
		ID:         lastID + 1,
		Name:       strings.TrimSpace(input.Name),
		Capacity:   input.Capacity,
		Location:   strings.TrimSpace(input.Location),
		Facilities: append([]string(nil), input.Facilities...),
	}

	r.resources = append(r.resources, resource)
	if err = r.persistLocked(ctx); err != nil {
		r.resources = r.resources[:len(r.resources)-1]
		resource = Resource{}
		return
	}

	return
}

// EnsureDefaultSeed populates an empty catalog with the starter rooms and
// persists them. Calling it against a non-empty catalog is a no-op.
func (r *ResourceRegistry) EnsureDefaultSeed(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.resources) > 0 {
		return nil
	}

	logger := r.loggerWith(ctx, "EnsureDefaultSeed")

	r.resources = defaultResources()
	if err := r.persistLocked(ctx); err != nil {
		r.resources = nil
		logger.ErrorContext(ctx, "failed to seed resource catalog", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.With("resource_count", len(r.resources)).InfoContext(ctx, "resource catalog seeded")
	return nil
}

func (r *ResourceRegistry) persistLocked(ctx context.Context) error {
	records := make([]json.RawMessage, 0, len(r.resources))
	for _, resource := range r.resources {
		record, err := json.Marshal(resource)
		if err != nil {
			return fmt.Errorf("failed to encode resource %d: %w", resource.ID, err)
		}
		records = append(records, record)
	}
	if err := r.store.SaveCollection(ctx, persistence.CollectionResources, records); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func defaultResources() []Resource {
	return []Resource{
		{ID: 1, Name: "Meeting Room A", Capacity: 4, Location: "Room 1701", Facilities: []string{"Projector", "Whiteboard"}},
		{ID: 2, Name: "Meeting Room B", Capacity: 6, Location: "Room 1701", Facilities: []string{"Projector", "Whiteboard"}},
		{ID: 3, Name: "Meeting Room C", Capacity: 8, Location: "Room 1703", Facilities: []string{"Projector", "Whiteboard"}},
		{ID: 4, Name: "Large Conference Room", Capacity: 20, Location: "Room 1701", Facilities: []string{"Projector", "Whiteboard", "Conference Phone", "AV System"}},
	}
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	return err
}
