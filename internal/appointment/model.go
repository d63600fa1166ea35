package appointment

import (
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Appointment is an interval reserved on the practice calendar. Deleted and
// a cancelled Status are tracked separately; either one frees the slot.
type Appointment struct {
	ID              string
	PatientID       string
	Day             time.Time // practice-local midnight
	StartMinute     int
	DurationMinutes int
	Kind            string
	Status          Status
	Reason          string
	CreatedBy       string
	CreatedAt       time.Time
	Deleted         bool
}

// Active reports whether the appointment still occupies its slot.
func (a Appointment) Active() bool {
	return !a.Deleted && a.Status != StatusCancelled
}

func (a Appointment) StartsAt() time.Time {
	return time.Date(a.Day.Year(), a.Day.Month(), a.Day.Day(), 0, a.StartMinute, 0, 0, a.Day.Location())
}

func (a Appointment) EndsAt() time.Time {
	return a.StartsAt().Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Contact is the patient record owned by the practice software. It is only read here.
type Contact struct {
	ID        string
	LastName  string
	FirstName string
	Birthdate time.Time
	Email     string
}
