package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/roombook/internal/booking"
)

type reservationService interface {
	IsRoomSlotAvailable(ctx context.Context, resourceID int64, date, start, end string) (bool, error)
	CreateRoomReservation(ctx context.Context, input booking.ReservationInput) (booking.Reservation, error)
	CreateCompoundReservation(ctx context.Context, input booking.ReservationInput) (booking.CompoundBookingResult, error)
	DeleteRoomReservation(ctx context.Context, id int64) error
	ListReservationsFor(ctx context.Context, resourceID int64, date string) ([]booking.Reservation, error)
	ListCombined(ctx context.Context) ([]booking.DisplayEntry, error)
	DailyCounts(ctx context.Context, month string) (map[string]booking.DayCounts, error)
}

// ReservationHandler serves room bookings, the combined display list, and the
// month calendar aggregation.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

type reservationRequest struct {
	ResourceID       int64  `json:"resourceId"`
	Date             string `json:"date"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	BookedBy         string `json:"bookedBy"`
	Attendees        string `json:"attendees"`
	Purpose          string `json:"purpose"`
	WantsVirtualLink bool   `json:"wantsVirtualLink"`
}

func (req reservationRequest) toInput() booking.ReservationInput {
	return booking.ReservationInput{
		ResourceID:       req.ResourceID,
		Date:             req.Date,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		BookedBy:         req.BookedBy,
		Attendees:        req.Attendees,
		Purpose:          req.Purpose,
		WantsVirtualLink: req.WantsVirtualLink,
	}
}

type reservationResponse struct {
	Reservation        booking.Reservation         `json:"reservation"`
	VirtualReservation *booking.VirtualReservation `json:"virtualReservation,omitempty"`
	Warnings           []booking.BookingWarning    `json:"warnings,omitempty"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

// Create books a room; when the request asks for a virtual link it runs the
// compound flow and reports partial success through the warnings field.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if req.WantsVirtualLink {
		result, err := h.service.CreateCompoundReservation(r.Context(), req.toInput())
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{
			Reservation:        result.Room,
			VirtualReservation: result.Virtual,
			Warnings:           result.Warnings,
		})
		return
	}

	reservation, err := h.service.CreateRoomReservation(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: reservation})
}

// Delete cancels a reservation. Unknown ids still answer 204: cancellation is
// idempotent and the caller cannot tell "already gone" from "never existed".
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "reservationID"), 10, 64)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	if err := h.service.DeleteRoomReservation(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List returns the combined room and virtual reservations for display.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListCombined(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if entries == nil {
		entries = []booking.DisplayEntry{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, entries)
}

// ListForRoom returns the reservations of one room on one date.
func (h *ReservationHandler) ListForRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("date query parameter is required"))
		return
	}

	reservations, err := h.service.ListReservationsFor(r.Context(), id, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if reservations == nil {
		reservations = []booking.Reservation{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservations)
}

// Availability answers whether a room slot is free.
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	query := r.URL.Query()
	available, err := h.service.IsRoomSlotAvailable(r.Context(), id,
		query.Get("date"), query.Get("start"), query.Get("end"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Available: available})
}

// Calendar returns per-day reservation counts for a "YYYY-MM" month.
func (h *ReservationHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")

	counts, err := h.service.DailyCounts(r.Context(), month)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, counts)
}
