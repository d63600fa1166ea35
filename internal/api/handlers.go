package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/identity"
)

const maxBodyBytes = 64 << 10

type handlers struct {
	logger        *slog.Logger
	ledger        BookingLedger
	verifier      AccessVerifier
	sessions      SessionIssuer
	notifier      ConfirmationSender
	contacts      ContactReader
	confirmOnBook bool
}

// Access

func (h *handlers) checkAccess(w http.ResponseWriter, r *http.Request) {
	var req AccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.verifier.CheckAccess(r.Context(), req.Birthdate, req.Email)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSession(w, r, *s)
}

func (h *handlers) requestSecondFactor(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFrom(r.Context())
	if err := h.verifier.RequestSecondFactor(r.Context(), s); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "sent"})
}

func (h *handlers) redeemToken(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, _ := SessionFrom(r.Context())
	verified, err := h.verifier.RedeemToken(r.Context(), s, req.Token)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSession(w, r, *verified)
}

func (h *handlers) writeSession(w http.ResponseWriter, r *http.Request, s identity.Session) {
	token, expires, err := h.sessions.Issue(s)
	if err != nil {
		h.handleError(w, r, fmt.Errorf("issue session: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expires,
		User:      toSessionUser(s),
	})
}

// Slots and appointments

func (h *handlers) freeSlots(w http.ResponseWriter, r *http.Request) {
	day, err := appointment.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	starts, err := h.ledger.FreeSlots(r.Context(), day)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := FreeSlotsResponse{Date: appointment.FormatDate(day), Slots: make([]SlotResponse, 0, len(starts))}
	for _, m := range starts {
		resp.Slots = append(resp.Slots, SlotResponse{StartMinute: m, Time: appointment.FormatClock(m)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) bookSlot(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFrom(r.Context())

	var req CreateAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !ownPatient(w, s, req.PatientID) {
		return
	}
	if req.StartMinute == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "start_minute is required")
		return
	}
	day, err := appointment.ParseDate(req.Date)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	appt, err := h.ledger.Reserve(r.Context(), appointment.ReserveRequest{
		Day:             day,
		StartMinute:     *req.StartMinute,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		PatientID:       s.PatientID,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := toAppointmentResponse(*appt)
	if h.confirmOnBook {
		sent := h.confirm(r.Context(), *appt, s.PatientID) == nil
		resp.ConfirmationSent = &sent
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFrom(r.Context())
	if !ownPatient(w, s, r.URL.Query().Get("patient_id")) {
		return
	}

	list, err := h.ledger.ListForPatient(r.Context(), s.PatientID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := AppointmentListResponse{Appointments: make([]AppointmentResponse, 0, len(list))}
	for _, a := range list {
		resp.Appointments = append(resp.Appointments, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFrom(r.Context())
	if !ownPatient(w, s, r.URL.Query().Get("patient_id")) {
		return
	}

	if err := h.ledger.Cancel(r.Context(), chi.URLParam(r, "id"), s.PatientID); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resendConfirmation mails the confirmation again for one of the caller's
// own appointments, for when the first attempt failed.
func (h *handlers) resendConfirmation(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFrom(r.Context())

	appt, err := h.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if appt.PatientID != s.PatientID || !appt.Active() {
		h.handleError(w, r, appointment.ErrAppointmentNotFound)
		return
	}

	if err := h.confirm(r.Context(), *appt, s.PatientID); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "sent"})
}

func (h *handlers) confirm(ctx context.Context, appt appointment.Appointment, patientID string) error {
	contact, err := h.contacts.GetContact(ctx, patientID)
	if err != nil {
		h.logger.Error("load contact for confirmation", "appointment_id", appt.ID, "error", err)
		return fmt.Errorf("load contact: %w", err)
	}
	if err := h.notifier.SendConfirmation(ctx, appt, *contact); err != nil {
		h.logger.Error("send confirmation", "appointment_id", appt.ID, "error", err)
		return err
	}
	return nil
}

// ownPatient rejects a request that names a patient other than the caller.
func ownPatient(w http.ResponseWriter, s identity.Session, requested string) bool {
	requested = strings.TrimSpace(requested)
	if requested != "" && requested != s.PatientID {
		writeError(w, http.StatusForbidden, "forbidden", "patient_id does not match session")
		return false
	}
	return true
}

// Errors and encoding

func (h *handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidRequest),
		errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, identity.ErrNoMatch):
		writeError(w, http.StatusUnauthorized, "no_match", "")
	case errors.Is(err, identity.ErrNotChecked):
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot is no longer available")
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "")
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
