package booking

import "time"

// Resource represents a bookable physical room in the catalog.
type Resource struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Capacity   int      `json:"capacity"`
	Location   string   `json:"location"`
	Facilities []string `json:"facilities"`
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	Name       string
	Capacity   int
	Location   string
	Facilities []string
}

// Reservation represents a committed booking of a room for a date and time
// range. Date holds "YYYY-MM-DD"; StartTime and EndTime hold 24h local
// wall-clock "HH:MM" values with the end exclusive.
type Reservation struct {
	ID               int64     `json:"id"`
	ResourceID       int64     `json:"resourceId"`
	Date             string    `json:"date"`
	StartTime        string    `json:"startTime"`
	EndTime          string    `json:"endTime"`
	BookedBy         string    `json:"bookedBy"`
	Attendees        string    `json:"attendees,omitempty"`
	Purpose          string    `json:"purpose,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	WantsVirtualLink bool      `json:"wantsVirtualLink"`
}

// VirtualReservation represents a committed booking of the shared
// virtual-meeting pool. LinkedResourceName carries the room label when the
// reservation was created as the companion of a room booking.
type VirtualReservation struct {
	ID                 int64     `json:"id"`
	Date               string    `json:"date"`
	StartTime          string    `json:"startTime"`
	EndTime            string    `json:"endTime"`
	BookedBy           string    `json:"bookedBy"`
	Attendees          string    `json:"attendees,omitempty"`
	Purpose            string    `json:"purpose,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	LinkedResourceName string    `json:"linkedResourceName,omitempty"`
}

// ReservationInput captures caller provided room booking fields.
type ReservationInput struct {
	ResourceID       int64
	Date             string
	StartTime        string
	EndTime          string
	BookedBy         string
	Attendees        string
	Purpose          string
	WantsVirtualLink bool
}

// VirtualReservationInput captures caller provided virtual booking fields.
type VirtualReservationInput struct {
	Date               string
	StartTime          string
	EndTime            string
	BookedBy           string
	Attendees          string
	Purpose            string
	LinkedResourceName string
}

// WarningKind labels non-fatal booking outcomes.
type WarningKind string

const (
	// WarningPartialCompoundBooking signals that the room half of a compound
	// request was committed while the virtual half was skipped.
	WarningPartialCompoundBooking WarningKind = "partial_compound_booking"
)

// BookingWarning describes a non-fatal outcome surfaced alongside a result.
type BookingWarning struct {
	Kind   WarningKind `json:"kind"`
	Reason string      `json:"reason"`
}

// CompoundBookingResult carries the outcome of a room-plus-virtual request.
// Virtual is nil when the companion reservation was skipped; Warnings then
// explains why. An empty Warnings slice means total success.
type CompoundBookingResult struct {
	Room     Reservation
	Virtual  *VirtualReservation
	Warnings []BookingWarning
}

// EntryKind distinguishes the pool a display entry came from.
type EntryKind string

const (
	EntryKindRoom    EntryKind = "room"
	EntryKindVirtual EntryKind = "virtual"
)

// DisplayEntry is a reservation from either pool flattened for listing.
type DisplayEntry struct {
	Kind         EntryKind `json:"kind"`
	ID           int64     `json:"id"`
	ResourceID   int64     `json:"resourceId,omitempty"`
	ResourceName string    `json:"resourceName,omitempty"`
	Date         string    `json:"date"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	BookedBy     string    `json:"bookedBy"`
	Attendees    string    `json:"attendees,omitempty"`
	Purpose      string    `json:"purpose,omitempty"`
}

// DayCounts aggregates reservations per calendar day for month views.
type DayCounts struct {
	Rooms   int `json:"rooms"`
	Virtual int `json:"virtual"`
}
