package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterConfig wires handlers onto the router. Nil handlers leave their
// routes unmounted; the change feed in particular is only available when the
// persistence backend pushes change notifications.
type RouterConfig struct {
	Resources    *ResourceHandler
	Reservations *ReservationHandler
	Virtual      *VirtualHandler
	ChangeFeed   *ChangeFeed
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	for _, mw := range cfg.Middleware {
		r.Use(mw)
	}

	if cfg.Resources != nil {
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", cfg.Resources.List)
			r.Post("/", cfg.Resources.Create)
			r.Get("/{roomID}", cfg.Resources.Get)
			if cfg.Reservations != nil {
				r.Get("/{roomID}/availability", cfg.Reservations.Availability)
				r.Get("/{roomID}/reservations", cfg.Reservations.ListForRoom)
			}
		})
	}

	if cfg.Reservations != nil {
		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", cfg.Reservations.List)
			r.Post("/", cfg.Reservations.Create)
			r.Delete("/{reservationID}", cfg.Reservations.Delete)
		})
		r.Get("/calendar/{month}", cfg.Reservations.Calendar)
	}

	if cfg.Virtual != nil {
		r.Route("/virtual", func(r chi.Router) {
			r.Get("/availability", cfg.Virtual.Availability)
			r.Route("/reservations", func(r chi.Router) {
				r.Get("/", cfg.Virtual.List)
				r.Post("/", cfg.Virtual.Create)
				r.Delete("/{reservationID}", cfg.Virtual.Delete)
			})
		})
	}

	if cfg.ChangeFeed != nil {
		r.Get("/ws", cfg.ChangeFeed.Handle)
	}

	return r
}
