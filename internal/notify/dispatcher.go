// Package notify composes the e-mails sent to patients and hands them to a Mailer.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hackgods/practice-booking/internal/appointment"
)

var (
	ErrNoRecipient = errors.New("recipient has no e-mail address")
	ErrSendFailed  = errors.New("sending e-mail failed")
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer is the outbound mail transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type DispatcherOptions struct {
	PracticeName   string
	OrganizerEmail string
	// VerifyURL, when set, is added to token e-mails with ?token=<value>.
	VerifyURL string
}

type Dispatcher struct {
	mailer Mailer
	tpl    Templates
	opts   DispatcherOptions
	now    func() time.Time
}

func NewDispatcher(mailer Mailer, tpl Templates, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{mailer: mailer, tpl: tpl, opts: opts, now: time.Now}
}

// SendToken e-mails a verification token to its owner.
func (d *Dispatcher) SendToken(ctx context.Context, to, token string, validUntil time.Time) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}

	link := ""
	if d.opts.VerifyURL != "" {
		link = d.verifyLink(token) + "\n\n"
	}
	data := map[string]string{
		"token":            token,
		"verificationLink": link,
		"validUntil":       validUntil.In(appointment.Location).Format("2006-01-02 15:04"),
		"practice":         d.opts.PracticeName,
	}

	return d.send(ctx, Message{
		To:      to,
		Subject: Render(d.tpl.Token.Subject, data),
		Body:    Render(d.tpl.Token.Body, data),
	})
}

func (d *Dispatcher) verifyLink(token string) string {
	u, err := url.Parse(d.opts.VerifyURL)
	if err != nil {
		return d.opts.VerifyURL
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// SendConfirmation e-mails the appointment details with an iCalendar attachment.
func (d *Dispatcher) SendConfirmation(ctx context.Context, appt appointment.Appointment, contact appointment.Contact) error {
	if strings.TrimSpace(contact.Email) == "" {
		return ErrNoRecipient
	}

	start := appt.StartsAt()
	data := map[string]string{
		"firstname": contact.FirstName,
		"lastname":  contact.LastName,
		"date":      start.Format("2006-01-02"),
		"time":      start.Format("15:04"),
		"practice":  d.opts.PracticeName,
	}

	ev := eventFor(appt, d.tpl.ICal, data, d.opts.OrganizerEmail, uidDomain(d.opts.OrganizerEmail))
	calendar := buildCalendar(ev, d.now().UTC())

	return d.send(ctx, Message{
		To:      contact.Email,
		Subject: Render(d.tpl.Confirmation.Subject, data),
		Body:    Render(d.tpl.Confirmation.Body, data),
		Attachments: []Attachment{{
			Filename:    "appointment.ics",
			ContentType: calendarContentType,
			Data:        []byte(calendar),
		}},
	})
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	if err := d.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

func uidDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 && i < len(email)-1 {
		return email[i+1:]
	}
	return "practice-booking"
}
