package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/example/roombook/internal/booking"
)

type virtualService interface {
	IsVirtualSlotAvailable(ctx context.Context, date, start, end string) (bool, error)
	CreateVirtualReservation(ctx context.Context, input booking.VirtualReservationInput) (booking.VirtualReservation, error)
	DeleteVirtualReservation(ctx context.Context, id int64) error
	ListVirtualReservations(ctx context.Context) ([]booking.VirtualReservation, error)
}

// VirtualHandler serves the shared virtual-meeting pool.
type VirtualHandler struct {
	service   virtualService
	responder responder
	logger    *slog.Logger
}

func NewVirtualHandler(service virtualService, logger *slog.Logger) *VirtualHandler {
	base := defaultLogger(logger)
	return &VirtualHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *VirtualHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "VirtualHandler", operation, attrs...)
}

type virtualReservationRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	BookedBy  string `json:"bookedBy"`
	Attendees string `json:"attendees"`
	Purpose   string `json:"purpose"`
}

func (h *VirtualHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req virtualReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode virtual reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reservation, err := h.service.CreateVirtualReservation(r.Context(), booking.VirtualReservationInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		BookedBy:  req.BookedBy,
		Attendees: req.Attendees,
		Purpose:   req.Purpose,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservation)
}

func (h *VirtualHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "reservationID"), 10, 64)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	if err := h.service.DeleteVirtualReservation(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *VirtualHandler) List(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.ListVirtualReservations(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if reservations == nil {
		reservations = []booking.VirtualReservation{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservations)
}

func (h *VirtualHandler) Availability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	available, err := h.service.IsVirtualSlotAvailable(r.Context(),
		query.Get("date"), query.Get("start"), query.Get("end"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Available: available})
}
