package api

import (
	"time"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/identity"
)

type AccessRequest struct {
	Birthdate string `json:"birthdate"`
	Email     string `json:"email"`
}

type RedeemRequest struct {
	Token string `json:"token"`
}

type SessionUser struct {
	PatientID string `json:"patient_id"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Verified  bool   `json:"verified"`
}

type SessionResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
}

type SlotResponse struct {
	StartMinute int    `json:"start_minute"`
	Time        string `json:"time"`
}

type FreeSlotsResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type CreateAppointmentRequest struct {
	Date            string `json:"date"`
	StartMinute     *int   `json:"start_minute"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Reason          string `json:"reason,omitempty"`
	PatientID       string `json:"patient_id,omitempty"`
}

type AppointmentResponse struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patient_id"`
	Date             string    `json:"date"`
	StartMinute      int       `json:"start_minute"`
	Start            string    `json:"start"`
	End              string    `json:"end"`
	DurationMinutes  int       `json:"duration_minutes"`
	Kind             string    `json:"kind,omitempty"`
	Status           string    `json:"status"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ConfirmationSent *bool     `json:"confirmation_sent,omitempty"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toSessionUser(s identity.Session) SessionUser {
	return SessionUser{
		PatientID: s.PatientID,
		LastName:  s.LastName,
		FirstName: s.FirstName,
		Email:     s.Email,
		Verified:  s.Verified,
	}
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		Date:            appointment.FormatDate(a.Day),
		StartMinute:     a.StartMinute,
		Start:           appointment.FormatClock(a.StartMinute),
		End:             appointment.FormatClock(a.StartMinute + a.DurationMinutes),
		DurationMinutes: a.DurationMinutes,
		Kind:            a.Kind,
		Status:          string(a.Status),
		Reason:          a.Reason,
		CreatedAt:       a.CreatedAt,
	}
}
