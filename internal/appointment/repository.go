package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/hackgods/practice-booking/internal/slots"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrContactNotFound     = errors.New("contact not found")
	ErrSlotTaken           = errors.New("slot is no longer available")
	ErrInvalidRequest      = errors.New("invalid request")
)

// Store is the calendar table of the practice software.
type Store interface {
	// FetchOccupied returns the active intervals of the configured area on day.
	FetchOccupied(ctx context.Context, day time.Time) ([]slots.Interval, error)

	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateStatus(ctx context.Context, id, patientID string, status Status) (int64, error)
	FetchByPatient(ctx context.Context, patientID string) ([]Appointment, error)
	GetAppointment(ctx context.Context, id string) (*Appointment, error)
}

// ContactStore reads patient contact rows.
type ContactStore interface {
	FetchContactByBirthdateAndEmail(ctx context.Context, birthdate time.Time, email string) (*Contact, error)
	GetContact(ctx context.Context, id string) (*Contact, error)
}
