package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/config"
	"github.com/hackgods/practice-booking/internal/identity"
)

type BookingLedger interface {
	FreeSlots(ctx context.Context, day time.Time) ([]int, error)
	Reserve(ctx context.Context, req appointment.ReserveRequest) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id, patientID string) error
	ListForPatient(ctx context.Context, patientID string) ([]appointment.Appointment, error)
	Get(ctx context.Context, id string) (*appointment.Appointment, error)
}

type AccessVerifier interface {
	CheckAccess(ctx context.Context, birthdate, email string) (*identity.Session, error)
	RequestSecondFactor(ctx context.Context, s identity.Session) error
	RedeemToken(ctx context.Context, s identity.Session, value string) (*identity.Session, error)
}

type SessionIssuer interface {
	Issue(s identity.Session) (string, time.Time, error)
	Parse(token string) (identity.Session, error)
}

type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, appt appointment.Appointment, contact appointment.Contact) error
}

type ContactReader interface {
	GetContact(ctx context.Context, id string) (*appointment.Contact, error)
}

type RouterConfig struct {
	Logger        *slog.Logger
	Ledger        BookingLedger
	Verifier      AccessVerifier
	Sessions      SessionIssuer
	Notifier      ConfirmationSender
	Contacts      ContactReader
	Postgres      Pinger
	Redis         Pinger
	RateLimit     config.RateLimitConfig
	ConfirmOnBook bool
	StaticDir     string
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(chimw.Recoverer)

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := &handlers{
		logger:        cfg.Logger,
		ledger:        cfg.Ledger,
		verifier:      cfg.Verifier,
		sessions:      cfg.Sessions,
		notifier:      cfg.Notifier,
		contacts:      cfg.Contacts,
		confirmOnBook: cfg.ConfirmOnBook,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Readiness)

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(cfg.RateLimit, cfg.Logger))
			r.Post("/access", h.checkAccess)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.Sessions))

			r.Group(func(r chi.Router) {
				r.Use(RateLimit(cfg.RateLimit, cfg.Logger))
				r.Post("/access/second-factor", h.requestSecondFactor)
				r.Post("/access/verify", h.redeemToken)
			})

			r.Get("/slots", h.freeSlots)
			r.Post("/appointments", h.bookSlot)
			r.Post("/appointments/{id}/confirmation", h.resendConfirmation)

			r.Group(func(r chi.Router) {
				r.Use(RequireVerified)
				r.Get("/appointments", h.listAppointments)
				r.Delete("/appointments/{id}", h.cancelAppointment)
			})
		})
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
