// Package identity gates patient access: a birthdate and e-mail check
// produces a checked session, and redeeming an e-mailed token verifies it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/verification"
)

var (
	// ErrNoMatch covers every failed credential or token check alike.
	ErrNoMatch    = errors.New("no match")
	ErrNotChecked = errors.New("session has not passed the credential check")
)

const tokenAttempts = 3

// Session is who is calling. It lives in the bearer token, never in the database.
type Session struct {
	PatientID string
	LastName  string
	FirstName string
	Email     string
	Verified  bool
}

func (s Session) Checked() bool {
	return s.PatientID != "" && s.Email != ""
}

// TokenSender delivers a verification token to its owner.
type TokenSender interface {
	SendToken(ctx context.Context, to, token string, validUntil time.Time) error
}

type Verifier struct {
	contacts appointment.ContactStore
	tokens   verification.Store
	sender   TokenSender
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	generate func() (string, error)
}

func NewVerifier(contacts appointment.ContactStore, tokens verification.Store, sender TokenSender, ttl time.Duration, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		contacts: contacts,
		tokens:   tokens,
		sender:   sender,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		generate: verification.GenerateToken,
	}
}

// CheckAccess matches birthdate and e-mail against the contact records.
// Malformed input is reported as ErrNoMatch without touching the store.
func (v *Verifier) CheckAccess(ctx context.Context, birthdate, email string) (*Session, error) {
	email = strings.TrimSpace(email)
	born, err := ParseBirthdate(birthdate)
	if err != nil {
		return nil, ErrNoMatch
	}
	if err := ValidateEmail(email); err != nil {
		return nil, ErrNoMatch
	}

	contact, err := v.contacts.FetchContactByBirthdateAndEmail(ctx, born, email)
	if err != nil {
		if errors.Is(err, appointment.ErrContactNotFound) {
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("lookup contact: %w", err)
	}

	return &Session{
		PatientID: contact.ID,
		LastName:  contact.LastName,
		FirstName: contact.FirstName,
		Email:     email,
	}, nil
}

// RequestSecondFactor issues a token for the session's address and mails it.
// A send failure is returned; the stored token stays valid until it expires.
func (v *Verifier) RequestSecondFactor(ctx context.Context, s Session) error {
	if !s.Checked() {
		return ErrNotChecked
	}
	if s.Verified {
		return nil
	}

	var token string
	for attempt := 0; ; attempt++ {
		t, err := v.generate()
		if err != nil {
			return err
		}
		err = v.tokens.Put(ctx, t, s.Email, v.ttl)
		if err == nil {
			token = t
			break
		}
		if !errors.Is(err, verification.ErrTokenExists) || attempt+1 >= tokenAttempts {
			return fmt.Errorf("store verification token: %w", err)
		}
	}

	if err := v.sender.SendToken(ctx, s.Email, token, v.now().Add(v.ttl)); err != nil {
		return fmt.Errorf("send verification token: %w", err)
	}

	v.logger.Info("verification token sent", "patient_id", s.PatientID)
	return nil
}

// RedeemToken promotes a checked session to verified. The token is consumed
// by the first redeem attempt, even when it belongs to another address.
func (v *Verifier) RedeemToken(ctx context.Context, s Session, value string) (*Session, error) {
	if !s.Checked() {
		return nil, ErrNotChecked
	}
	if s.Verified {
		return &s, nil
	}

	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return nil, ErrNoMatch
	}

	owner, ok, err := v.tokens.Redeem(ctx, value)
	if err != nil {
		return nil, err
	}
	if !ok || owner != s.Email {
		return nil, ErrNoMatch
	}

	s.Verified = true
	v.logger.Info("session verified", "patient_id", s.PatientID)
	return &s, nil
}
