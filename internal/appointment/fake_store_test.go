package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/hackgods/practice-booking/internal/slots"
)

// memStore is an in-memory Store for ledger tests. The Func fields override
// individual methods when a test needs a failure.
type memStore struct {
	mu   sync.Mutex
	rows []Appointment

	InsertFunc func(ctx context.Context, a Appointment) (*Appointment, error)
	FetchFunc  func(ctx context.Context, patientID string) ([]Appointment, error)

	occupiedCalls int
	updateCalls   int
}

var _ Store = (*memStore)(nil)

func (m *memStore) FetchOccupied(ctx context.Context, day time.Time) ([]slots.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupiedCalls++

	var out []slots.Interval
	for _, a := range m.rows {
		if a.Day.Equal(day) && a.Active() {
			out = append(out, slots.Interval{StartMinute: a.StartMinute, DurationMinutes: a.DurationMinutes})
		}
	}
	return out, nil
}

func (m *memStore) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rows {
		if r.Active() && r.Day.Equal(a.Day) && r.StartMinute == a.StartMinute {
			return nil, ErrSlotTaken
		}
	}
	m.rows = append(m.rows, a)
	return &a, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id, patientID string, status Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].PatientID == patientID && !m.rows[i].Deleted {
			m.rows[i].Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) FetchByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, patientID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.rows {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.rows {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}
