package appointment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/slots"
)

const (
	minutesPerDay  = 24 * 60
	maxReasonBytes = 500
)

type LedgerOptions struct {
	DefaultDuration int
	Kind            string
	CreatedBy       string
}

// Ledger creates, lists and cancels appointments. It never re-checks slot
// freeness on reserve; a storage uniqueness constraint is the only arbiter.
type Ledger struct {
	store   Store
	policy  slots.Policy
	sampler slots.Sampler
	opts    LedgerOptions
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

func NewLedger(store Store, policy slots.Policy, opts LedgerOptions, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   store,
		policy:  policy,
		sampler: slots.DefaultSampler,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithSampler replaces the random source used to cap daily offers.
func (l *Ledger) WithSampler(s slots.Sampler) *Ledger {
	l.sampler = s
	return l
}

func (l *Ledger) Policy() slots.Policy {
	return l.policy
}

// FreeSlots returns the start minutes offered for day.
func (l *Ledger) FreeSlots(ctx context.Context, day time.Time) ([]int, error) {
	if day.IsZero() {
		return nil, fmt.Errorf("%w: missing day", ErrInvalidRequest)
	}

	occupied, err := l.store.FetchOccupied(ctx, StartOfDay(day))
	if err != nil {
		return nil, fmt.Errorf("fetch occupied: %w", err)
	}

	return slots.Compute(occupied, l.policy, l.sampler), nil
}

type ReserveRequest struct {
	Day             time.Time
	StartMinute     int
	DurationMinutes int // zero takes the configured default
	Reason          string
	PatientID       string
}

func (l *Ledger) Reserve(ctx context.Context, req ReserveRequest) (*Appointment, error) {
	if err := l.validateReserve(&req); err != nil {
		return nil, err
	}

	appt := Appointment{
		ID:              l.newID(),
		PatientID:       req.PatientID,
		Day:             StartOfDay(req.Day),
		StartMinute:     req.StartMinute,
		DurationMinutes: req.DurationMinutes,
		Kind:            l.opts.Kind,
		Status:          StatusScheduled,
		Reason:          req.Reason,
		CreatedBy:       l.opts.CreatedBy,
		CreatedAt:       l.now().UTC().Truncate(time.Second),
	}

	stored, err := l.store.InsertAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	l.logger.Info("appointment reserved",
		"appointment_id", stored.ID,
		"day", EncodeDay(stored.Day),
		"start_minute", stored.StartMinute,
	)
	return stored, nil
}

func (l *Ledger) validateReserve(req *ReserveRequest) error {
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.Reason = strings.TrimSpace(req.Reason)

	if req.DurationMinutes == 0 {
		req.DurationMinutes = l.opts.DefaultDuration
	}

	switch {
	case req.PatientID == "":
		return fmt.Errorf("%w: missing patient id", ErrInvalidRequest)
	case req.Day.IsZero():
		return fmt.Errorf("%w: missing day", ErrInvalidRequest)
	case req.StartMinute < 0 || req.StartMinute >= minutesPerDay:
		return fmt.Errorf("%w: start minute %d out of range", ErrInvalidRequest, req.StartMinute)
	case req.DurationMinutes <= 0 || req.DurationMinutes > minutesPerDay:
		return fmt.Errorf("%w: duration %d out of range", ErrInvalidRequest, req.DurationMinutes)
	case len(req.Reason) > maxReasonBytes:
		return fmt.Errorf("%w: reason too long", ErrInvalidRequest)
	}
	return nil
}

// Cancel marks the patient's appointment cancelled. An id that does not
// belong to the patient is ignored without error.
func (l *Ledger) Cancel(ctx context.Context, id, patientID string) error {
	id, patientID = strings.TrimSpace(id), strings.TrimSpace(patientID)
	if id == "" || patientID == "" {
		return fmt.Errorf("%w: missing appointment or patient id", ErrInvalidRequest)
	}

	n, err := l.store.UpdateStatus(ctx, id, patientID, StatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	if n == 0 {
		l.logger.Debug("cancel matched no appointment", "appointment_id", id)
		return nil
	}

	l.logger.Info("appointment cancelled", "appointment_id", id)
	return nil
}

// ListForPatient returns the patient's active appointments, latest day
// first and, within a day, latest start first.
func (l *Ledger) ListForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, fmt.Errorf("%w: missing patient id", ErrInvalidRequest)
	}

	rows, err := l.store.FetchByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}

	result := make([]Appointment, 0, len(rows))
	for _, a := range rows {
		if a.Active() {
			result = append(result, a)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Day.Equal(result[j].Day) {
			return result[i].Day.After(result[j].Day)
		}
		return result[i].StartMinute > result[j].StartMinute
	})
	return result, nil
}

// Get loads a single appointment by id.
func (l *Ledger) Get(ctx context.Context, id string) (*Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: missing appointment id", ErrInvalidRequest)
	}
	appt, err := l.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}
