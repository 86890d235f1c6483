package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/roombook/internal/persistence"
	"github.com/example/roombook/internal/timeslot"
)

// ResourceCatalog exposes the room lookups the store needs.
type ResourceCatalog interface {
	GetResource(ctx context.Context, id int64) (Resource, error)
}

// ReservationStore is the sole authority for conflict checking and mutation
// of the two reservation pools: per-room bookings and the single shared
// virtual-meeting pool. Both pools are loaded from the collection store at
// construction and kept in memory; every check-then-act sequence runs under
// one mutex, which is the serialization point the read-check-write pattern
// requires. Mutations persist synchronously and roll back the in-memory
// change when the save fails, so a read after a committed write always
// observes that write.
type ReservationStore struct {
	mu      sync.Mutex
	store   persistence.CollectionStore
	catalog ResourceCatalog
	rooms   []Reservation
	virtual []VirtualReservation

	lastRoomID    int64
	lastVirtualID int64

	now    func() time.Time
	logger *slog.Logger

	// suppress is set while the store runs its own SaveCollection, so the
	// change subscription does not re-enter Refresh under the held mutex.
	suppress atomic.Bool
	cancels  []func()
}

// NewReservationStore loads both pools and, when the collection store
// supports change notification, subscribes so external writes refresh the
// in-memory snapshot. Without a notifier the caller polls via Refresh.
func NewReservationStore(ctx context.Context, store persistence.CollectionStore, catalog ResourceCatalog, now func() time.Time, logger *slog.Logger) (*ReservationStore, error) {
	if now == nil {
		now = time.Now
	}
	s := &ReservationStore{
		store:   store,
		catalog: catalog,
		now:     now,
		logger:  defaultLogger(logger),
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	if notifier, ok := store.(persistence.ChangeNotifier); ok {
		for _, name := range []string{persistence.CollectionRoomReservations, persistence.CollectionVirtualReservations} {
			s.cancels = append(s.cancels, notifier.OnCollectionChanged(name, s.handleCollectionChanged))
		}
	}

	return s, nil
}

// Close cancels the change subscriptions.
func (s *ReservationStore) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

func (s *ReservationStore) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationStore", operation, attrs...)
}

func (s *ReservationStore) handleCollectionChanged(name string) {
	if s.suppress.Load() {
		return
	}
	if err := s.Refresh(context.Background()); err != nil {
		s.logger.Error("failed to refresh after collection change", "collection", name, "error", err)
	}
}

// Refresh reloads both pools from the collection store. It is the polling
// fallback for backends without change notification. The mutex is held
// across the load and the swap: a snapshot taken before a concurrent create
// commits must not replace the pools after that create, or the committed
// reservation would briefly vanish from memory.
func (s *ReservationStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomRecords, err := s.store.LoadCollection(ctx, persistence.CollectionRoomReservations)
	if err != nil {
		return mapStoreError(err)
	}
	virtualRecords, err := s.store.LoadCollection(ctx, persistence.CollectionVirtualReservations)
	if err != nil {
		return mapStoreError(err)
	}

	rooms := make([]Reservation, 0, len(roomRecords))
	for _, record := range roomRecords {
		var reservation Reservation
		if err := json.Unmarshal(record, &reservation); err != nil {
			return fmt.Errorf("malformed room reservation record: %w", err)
		}
		rooms = append(rooms, reservation)
	}

	virtual := make([]VirtualReservation, 0, len(virtualRecords))
	for _, record := range virtualRecords {
		var reservation VirtualReservation
		if err := json.Unmarshal(record, &reservation); err != nil {
			return fmt.Errorf("malformed virtual reservation record: %w", err)
		}
		virtual = append(virtual, reservation)
	}

	s.rooms = rooms
	s.virtual = virtual
	for _, reservation := range rooms {
		if reservation.ID > s.lastRoomID {
			s.lastRoomID = reservation.ID
		}
	}
	for _, reservation := range virtual {
		if reservation.ID > s.lastVirtualID {
			s.lastVirtualID = reservation.ID
		}
	}
	return nil
}

// IsRoomSlotAvailable reports whether the range is free for the given room on
// the given date. Reservations for other rooms or other dates never conflict.
func (s *ReservationStore) IsRoomSlotAvailable(ctx context.Context, resourceID int64, date, start, end string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateSlotFields(date, start, end); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := timeslot.Slot{Scope: timeslot.RoomScope(resourceID), Date: date, Start: start, End: end}
	return len(timeslot.FindConflicts(s.roomSlotsLocked(), candidate)) == 0, nil
}

// IsVirtualSlotAvailable reports whether the range is free in the global
// virtual-meeting pool, regardless of which room any existing entry is
// linked to.
func (s *ReservationStore) IsVirtualSlotAvailable(ctx context.Context, date, start, end string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateSlotFields(date, start, end); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := timeslot.Slot{Scope: timeslot.ScopeVirtual, Date: date, Start: start, End: end}
	return len(timeslot.FindConflicts(s.virtualSlotsLocked(), candidate)) == 0, nil
}

// CreateRoomReservation validates the candidate, checks the room's pool for
// conflicts, and commits the reservation.
func (s *ReservationStore) CreateRoomReservation(ctx context.Context, input ReservationInput) (reservation Reservation, err error) {
	logger := s.loggerWith(ctx, "CreateRoomReservation",
		"resource_id", input.ResourceID,
		"date", input.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "room reservation created")
	}()

	if err = validateBookingInput(input.Date, input.StartTime, input.EndTime, input.BookedBy); err != nil {
		return
	}

	if _, err = s.catalog.GetResource(ctx, input.ResourceID); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := timeslot.Slot{
		Scope: timeslot.RoomScope(input.ResourceID),
		Date:  input.Date,
		Start: input.StartTime,
		End:   input.EndTime,
	}
	if conflicts := timeslot.FindConflicts(s.roomSlotsLocked(), candidate); len(conflicts) > 0 {
		err = fmt.Errorf("%w: overlaps reservation %d", ErrSlotConflict, conflicts[0].WithSlotID)
		return
	}

	now := s.now()
	reservation = Reservation{
		ID:               nextID(now, s.lastRoomID),
		ResourceID:       input.ResourceID,
		Date:             input.Date,
		StartTime:        input.StartTime,
		EndTime:          input.EndTime,
		BookedBy:         strings.TrimSpace(input.BookedBy),
		Attendees:        strings.TrimSpace(input.Attendees),
		Purpose:          strings.TrimSpace(input.Purpose),
		CreatedAt:        now,
		WantsVirtualLink: input.WantsVirtualLink,
	}

	s.rooms = append(s.rooms, reservation)
	if err = s.persistRoomsLocked(ctx); err != nil {
		s.rooms = s.rooms[:len(s.rooms)-1]
		reservation = Reservation{}
		return
	}
	s.lastRoomID = reservation.ID

	return
}

// CreateVirtualReservation validates the candidate, checks the global pool
// for conflicts, and commits the reservation.
func (s *ReservationStore) CreateVirtualReservation(ctx context.Context, input VirtualReservationInput) (reservation VirtualReservation, err error) {
	logger := s.loggerWith(ctx, "CreateVirtualReservation", "date", input.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create virtual reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "virtual reservation created")
	}()

	if err = validateBookingInput(input.Date, input.StartTime, input.EndTime, input.BookedBy); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := timeslot.Slot{
		Scope: timeslot.ScopeVirtual,
		Date:  input.Date,
		Start: input.StartTime,
		End:   input.EndTime,
	}
	if conflicts := timeslot.FindConflicts(s.virtualSlotsLocked(), candidate); len(conflicts) > 0 {
		err = fmt.Errorf("%w: overlaps reservation %d", ErrSlotConflict, conflicts[0].WithSlotID)
		return
	}

	now := s.now()
	reservation = VirtualReservation{
		ID:                 nextID(now, s.lastVirtualID),
		Date:               input.Date,
		StartTime:          input.StartTime,
		EndTime:            input.EndTime,
		BookedBy:           strings.TrimSpace(input.BookedBy),
		Attendees:          strings.TrimSpace(input.Attendees),
		Purpose:            strings.TrimSpace(input.Purpose),
		CreatedAt:          now,
		LinkedResourceName: strings.TrimSpace(input.LinkedResourceName),
	}

	s.virtual = append(s.virtual, reservation)
	if err = s.persistVirtualLocked(ctx); err != nil {
		s.virtual = s.virtual[:len(s.virtual)-1]
		reservation = VirtualReservation{}
		return
	}
	s.lastVirtualID = reservation.ID

	return
}

// CreateCompoundReservation books a room and a companion virtual-meeting
// reservation for the same window. The room half is attempted first; when it
// succeeds but the virtual pool is unavailable, the room booking stays
// committed and the result carries a partial-compound warning instead of the
// virtual record. The compound request is deliberately best-effort, not a
// transaction.
func (s *ReservationStore) CreateCompoundReservation(ctx context.Context, input ReservationInput) (CompoundBookingResult, error) {
	input.WantsVirtualLink = true

	room, err := s.CreateRoomReservation(ctx, input)
	if err != nil {
		return CompoundBookingResult{}, err
	}

	var linkedName string
	if resource, err := s.catalog.GetResource(ctx, input.ResourceID); err == nil {
		linkedName = resource.Name
	}

	virtual, err := s.CreateVirtualReservation(ctx, VirtualReservationInput{
		Date:               input.Date,
		StartTime:          input.StartTime,
		EndTime:            input.EndTime,
		BookedBy:           input.BookedBy,
		Attendees:          input.Attendees,
		Purpose:            input.Purpose,
		LinkedResourceName: linkedName,
	})
	if err != nil {
		s.loggerWith(ctx, "CreateCompoundReservation",
			"resource_id", input.ResourceID,
			"date", input.Date,
			"reservation_id", room.ID,
		).WarnContext(ctx, "virtual half of compound booking skipped", "error", err, "error_kind", ErrorKind(err))

		return CompoundBookingResult{
			Room:     room,
			Warnings: []BookingWarning{{Kind: WarningPartialCompoundBooking, Reason: ErrorKind(err)}},
		}, nil
	}

	return CompoundBookingResult{Room: room, Virtual: &virtual}, nil
}

// DeleteRoomReservation removes a room reservation by id. Deleting an id that
// does not exist is a no-op.
func (s *ReservationStore) DeleteRoomReservation(ctx context.Context, id int64) error {
	logger := s.loggerWith(ctx, "DeleteRoomReservation", "reservation_id", id)

	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := make([]Reservation, 0, len(s.rooms))
	for _, reservation := range s.rooms {
		if reservation.ID != id {
			remaining = append(remaining, reservation)
		}
	}
	if len(remaining) == len(s.rooms) {
		logger.InfoContext(ctx, "room reservation already absent")
		return nil
	}

	previous := s.rooms
	s.rooms = remaining
	if err := s.persistRoomsLocked(ctx); err != nil {
		s.rooms = previous
		logger.ErrorContext(ctx, "failed to delete room reservation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "room reservation deleted")
	return nil
}

// DeleteVirtualReservation removes a virtual reservation by id. Deleting an
// id that does not exist is a no-op.
func (s *ReservationStore) DeleteVirtualReservation(ctx context.Context, id int64) error {
	logger := s.loggerWith(ctx, "DeleteVirtualReservation", "reservation_id", id)

	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := make([]VirtualReservation, 0, len(s.virtual))
	for _, reservation := range s.virtual {
		if reservation.ID != id {
			remaining = append(remaining, reservation)
		}
	}
	if len(remaining) == len(s.virtual) {
		logger.InfoContext(ctx, "virtual reservation already absent")
		return nil
	}

	previous := s.virtual
	s.virtual = remaining
	if err := s.persistVirtualLocked(ctx); err != nil {
		s.virtual = previous
		logger.ErrorContext(ctx, "failed to delete virtual reservation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "virtual reservation deleted")
	return nil
}

// ListReservationsFor returns the room reservations for one resource on one
// date, ordered by start time.
func (s *ReservationStore) ListReservationsFor(ctx context.Context, resourceID int64, date string) ([]Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Reservation
	for _, reservation := range s.rooms {
		if reservation.ResourceID == resourceID && reservation.Date == date {
			out = append(out, reservation)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// ListRoomReservations returns every room reservation.
func (s *ReservationStore) ListRoomReservations(ctx context.Context) ([]Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Reservation, len(s.rooms))
	copy(out, s.rooms)
	return out, nil
}

// ListVirtualReservations returns every virtual-pool reservation.
func (s *ReservationStore) ListVirtualReservations(ctx context.Context) ([]VirtualReservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]VirtualReservation, len(s.virtual))
	copy(out, s.virtual)
	return out, nil
}

// ListCombined flattens both pools for display, sorted by date then start
// time. Entries sharing a date and start time keep no particular order.
func (s *ReservationStore) ListCombined(ctx context.Context) ([]DisplayEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rooms := make([]Reservation, len(s.rooms))
	copy(rooms, s.rooms)
	virtual := make([]VirtualReservation, len(s.virtual))
	copy(virtual, s.virtual)
	s.mu.Unlock()

	entries := make([]DisplayEntry, 0, len(rooms)+len(virtual))
	for _, reservation := range rooms {
		entry := DisplayEntry{
			Kind:       EntryKindRoom,
			ID:         reservation.ID,
			ResourceID: reservation.ResourceID,
			Date:       reservation.Date,
			StartTime:  reservation.StartTime,
			EndTime:    reservation.EndTime,
			BookedBy:   reservation.BookedBy,
			Attendees:  reservation.Attendees,
			Purpose:    reservation.Purpose,
		}
		if resource, err := s.catalog.GetResource(ctx, reservation.ResourceID); err == nil {
			entry.ResourceName = resource.Name
		}
		entries = append(entries, entry)
	}
	for _, reservation := range virtual {
		entries = append(entries, DisplayEntry{
			Kind:         EntryKindVirtual,
			ID:           reservation.ID,
			ResourceName: reservation.LinkedResourceName,
			Date:         reservation.Date,
			StartTime:    reservation.StartTime,
			EndTime:      reservation.EndTime,
			BookedBy:     reservation.BookedBy,
			Attendees:    reservation.Attendees,
			Purpose:      reservation.Purpose,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date == entries[j].Date {
			return entries[i].StartTime < entries[j].StartTime
		}
		return entries[i].Date < entries[j].Date
	})
	return entries, nil
}

// DailyCounts aggregates reservations per day for a "YYYY-MM" month,
// feeding month calendar views.
func (s *ReservationStore) DailyCounts(ctx context.Context, month string) (map[string]DayCounts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		vErr := &ValidationError{}
		vErr.add("month", `month must be formatted as "YYYY-MM"`)
		return nil, vErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := month + "-"
	counts := make(map[string]DayCounts)
	for _, reservation := range s.rooms {
		if strings.HasPrefix(reservation.Date, prefix) {
			day := counts[reservation.Date]
			day.Rooms++
			counts[reservation.Date] = day
		}
	}
	for _, reservation := range s.virtual {
		if strings.HasPrefix(reservation.Date, prefix) {
			day := counts[reservation.Date]
			day.Virtual++
			counts[reservation.Date] = day
		}
	}
	return counts, nil
}

func (s *ReservationStore) roomSlotsLocked() []timeslot.Slot {
	slots := make([]timeslot.Slot, 0, len(s.rooms))
	for _, reservation := range s.rooms {
		slots = append(slots, timeslot.Slot{
			ID:    reservation.ID,
			Scope: timeslot.RoomScope(reservation.ResourceID),
			Date:  reservation.Date,
			Start: reservation.StartTime,
			End:   reservation.EndTime,
		})
	}
	return slots
}

func (s *ReservationStore) virtualSlotsLocked() []timeslot.Slot {
	slots := make([]timeslot.Slot, 0, len(s.virtual))
	for _, reservation := range s.virtual {
		slots = append(slots, timeslot.Slot{
			ID:    reservation.ID,
			Scope: timeslot.ScopeVirtual,
			Date:  reservation.Date,
			Start: reservation.StartTime,
			End:   reservation.EndTime,
		})
	}
	return slots
}

func (s *ReservationStore) persistRoomsLocked(ctx context.Context) error {
	records := make([]json.RawMessage, 0, len(s.rooms))
	for _, reservation := range s.rooms {
		record, err := json.Marshal(reservation)
		if err != nil {
			return fmt.Errorf("failed to encode reservation %d: %w", reservation.ID, err)
		}
		records = append(records, record)
	}

	s.suppress.Store(true)
	defer s.suppress.Store(false)
	if err := s.store.SaveCollection(ctx, persistence.CollectionRoomReservations, records); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *ReservationStore) persistVirtualLocked(ctx context.Context) error {
	records := make([]json.RawMessage, 0, len(s.virtual))
	for _, reservation := range s.virtual {
		record, err := json.Marshal(reservation)
		if err != nil {
			return fmt.Errorf("failed to encode reservation %d: %w", reservation.ID, err)
		}
		records = append(records, record)
	}

	s.suppress.Store(true)
	defer s.suppress.Store(false)
	if err := s.store.SaveCollection(ctx, persistence.CollectionVirtualReservations, records); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// nextID derives a fresh identifier from the wall clock in unix milliseconds,
// bumped past the last issued id so identifiers stay strictly increasing and
// are never reused even when the clock stands still or runs backwards.
func nextID(now time.Time, last int64) int64 {
	id := now.UnixMilli()
	if id <= last {
		id = last + 1
	}
	return id
}

func validateSlotFields(date, start, end string) error {
	vErr := &ValidationError{}
	if err := timeslot.ValidateDate(date); err != nil {
		vErr.add("date", `date must be formatted as "YYYY-MM-DD"`)
	}
	if err := timeslot.ValidateTime(start); err != nil {
		vErr.add("startTime", `startTime must be formatted as "HH:MM"`)
	}
	if err := timeslot.ValidateTime(end); err != nil {
		vErr.add("endTime", `endTime must be formatted as "HH:MM"`)
	}
	if vErr.HasErrors() {
		return vErr
	}
	// Every field is individually valid here, so only the ordering rule can
	// still fail.
	if err := timeslot.ValidateRange(date, start, end); err != nil {
		return fmt.Errorf("%w: %s-%s", ErrInvalidRange, start, end)
	}
	return nil
}

func validateBookingInput(date, start, end, bookedBy string) error {
	if err := validateSlotFields(date, start, end); err != nil {
		return err
	}
	if strings.TrimSpace(bookedBy) == "" {
		vErr := &ValidationError{}
		vErr.add("bookedBy", "bookedBy is required")
		return vErr
	}
	return nil
}
