package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-booking/internal/appointment"
)

type fakeMailer struct {
	sent    []Message
	SendErr error
}

func (f *fakeMailer) Send(ctx context.Context, msg Message) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newDispatcher(m Mailer, opts DispatcherOptions) *Dispatcher {
	d := NewDispatcher(m, DefaultTemplates(), opts)
	d.now = func() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }
	return d
}

func TestRender(t *testing.T) {
	out := Render("Hello {{name}}, see you at {{time}} {{unknown}}", map[string]string{
		"name": "Ada",
		"time": "09:30",
	})
	assert.Equal(t, "Hello Ada, see you at 09:30 {{unknown}}", out)
}

func TestLoadTemplates(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplates(), tpl)

	path := filepath.Join(t.TempDir(), "templates.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"token": {"subject": "Ihr Zugang"},
		"ical": {"prodId": "elexis-appointments"}
	}`), 0o600))

	tpl, err = LoadTemplates(path)
	require.NoError(t, err)
	assert.Equal(t, "Ihr Zugang", tpl.Token.Subject)
	assert.Equal(t, DefaultTemplates().Token.Body, tpl.Token.Body)
	assert.Equal(t, "elexis-appointments", tpl.ICal.ProdID)

	_, err = LoadTemplates(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSendToken(t *testing.T) {
	m := &fakeMailer{}
	d := newDispatcher(m, DispatcherOptions{PracticeName: "Praxis", VerifyURL: "https://book.example.com/verify"})

	err := d.SendToken(context.Background(), "a@b.com", "ABCDEF234567QRST", time.Now().Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, m.sent, 1)

	msg := m.sent[0]
	assert.Equal(t, "a@b.com", msg.To)
	assert.Contains(t, msg.Body, "ABCDEF234567QRST")
	assert.Contains(t, msg.Body, "https://book.example.com/verify?token=ABCDEF234567QRST")
	assert.NotContains(t, msg.Body, "{{")
	assert.Empty(t, msg.Attachments)
}

func TestSendToken_Errors(t *testing.T) {
	d := newDispatcher(&fakeMailer{}, DispatcherOptions{})
	assert.ErrorIs(t, d.SendToken(context.Background(), "", "X", time.Now()), ErrNoRecipient)

	boom := errors.New("connection refused")
	d = newDispatcher(&fakeMailer{SendErr: boom}, DispatcherOptions{})
	err := d.SendToken(context.Background(), "a@b.com", "X", time.Now())
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, boom)
}

func TestSendConfirmation(t *testing.T) {
	m := &fakeMailer{}
	d := newDispatcher(m, DispatcherOptions{PracticeName: "Praxis Breite", OrganizerEmail: "praxis@example.com"})

	appt := appointment.Appointment{
		ID:              "appt-1",
		Day:             time.Date(2026, 2, 3, 0, 0, 0, 0, appointment.Location),
		StartMinute:     570,
		DurationMinutes: 30,
	}
	contact := appointment.Contact{ID: "pat-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

	require.NoError(t, d.SendConfirmation(context.Background(), appt, contact))
	require.Len(t, m.sent, 1)

	msg := m.sent[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Appointment confirmation for 2026-02-03 at 09:30", msg.Subject)
	assert.Contains(t, msg.Body, "Dear Ada Lovelace")
	assert.Contains(t, msg.Body, "Praxis Breite")

	require.Len(t, msg.Attachments, 1)
	ics := string(msg.Attachments[0].Data)
	assert.Equal(t, "appointment.ics", msg.Attachments[0].Filename)
	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "METHOD:PUBLISH")
	assert.Contains(t, ics, "UID:appt-1@example.com")
	assert.Contains(t, ics, "mailto:praxis@example.com")
}

func TestSendConfirmation_NoEmail(t *testing.T) {
	m := &fakeMailer{}
	d := newDispatcher(m, DispatcherOptions{})
	err := d.SendConfirmation(context.Background(), appointment.Appointment{ID: "x"}, appointment.Contact{ID: "pat-1"})
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Empty(t, m.sent)
}

func TestBuildMessage_Plain(t *testing.T) {
	raw, err := buildMessage("Praxis <praxis@example.com>", Message{
		To:      "a@b.com",
		Subject: "Zugang für Termine",
		Body:    "Grüsse",
	}, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Zugang für Termine", subject)
	assert.Equal(t, "a@b.com", parsed.Header.Get("To"))
	assert.Contains(t, parsed.Header.Get("Content-Type"), "text/plain")
}

func TestBuildMessage_WithAttachment(t *testing.T) {
	payload := []byte(strings.Repeat("BEGIN:VCALENDAR\r\n", 20))
	raw, err := buildMessage("praxis@example.com", Message{
		To:      "a@b.com",
		Subject: "Confirmation",
		Body:    "See attachment",
		Attachments: []Attachment{{
			Filename: "appointment.ics", ContentType: calendarContentType, Data: payload,
		}},
	}, time.Now())
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])

	text, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(text)
	require.NoError(t, err)
	assert.Equal(t, "See attachment", string(body))

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "appointment.ics", att.FileName())
	assert.True(t, strings.HasPrefix(att.Header.Get("Content-Type"), "text/calendar"))

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBuildMessage_RejectsHeaderInjection(t *testing.T) {
	date := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from string
		to   string
	}{
		{"crlf in to", "praxis@example.com", "x@y.z\r\nBcc: evil@attacker.test"},
		{"lf in to", "praxis@example.com", "x@y.z\nBcc: evil@attacker.test"},
		{"two recipients", "praxis@example.com", "x@y.z, evil@attacker.test"},
		{"not an address", "praxis@example.com", "nobody"},
		{"crlf in from", "praxis@example.com\r\nBcc: evil@attacker.test", "a@b.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := buildMessage(tt.from, Message{To: tt.to, Subject: "s", Body: "b"}, date)
			assert.ErrorIs(t, err, ErrInvalidAddress)
			assert.Nil(t, raw)
		})
	}
}

func TestSMTPMailer_RejectsBadRecipientBeforeDialing(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "praxis@example.com"})
	err := m.Send(context.Background(), Message{To: "x@y.z\r\nBcc: evil@attacker.test"})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSMTPMailer_FromHeader(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{From: "praxis@example.com"})
	assert.Equal(t, "praxis@example.com", m.fromHeader())

	m = NewSMTPMailer(SMTPConfig{From: "praxis@example.com", FromName: "Praxis Müller, Bern"})
	addr, err := mail.ParseAddress(m.fromHeader())
	require.NoError(t, err)
	assert.Equal(t, "Praxis Müller, Bern", addr.Name)
	assert.Equal(t, "praxis@example.com", addr.Address)
}
