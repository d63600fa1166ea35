package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type MailTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type CalendarTemplate struct {
	Summary       string `json:"summary"`
	Description   string `json:"description"`
	OrganizerName string `json:"organizerName"`
	ProdID        string `json:"prodId"`
}

// Templates are the practice's e-mail texts. Placeholders use {{name}}.
type Templates struct {
	Token        MailTemplate     `json:"token"`
	Confirmation MailTemplate     `json:"confirmation"`
	ICal         CalendarTemplate `json:"ical"`
}

func DefaultTemplates() Templates {
	return Templates{
		Token: MailTemplate{
			Subject: "Your access code for online appointments",
			Body: "Please enter this code to unlock your appointment list:\n\n" +
				"{{token}}\n\n" +
				"{{verificationLink}}" +
				"The code is valid until {{validUntil}}.\n\n" +
				"If you did not request this e-mail you can ignore it.\n",
		},
		Confirmation: MailTemplate{
			Subject: "Appointment confirmation for {{date}} at {{time}}",
			Body: "Dear {{firstname}} {{lastname}},\n\n" +
				"we confirm your appointment on {{date}} at {{time}}.\n\n" +
				"Please let us know in good time if you cannot attend.\n\n" +
				"Kind regards\n{{practice}}\n",
		},
		ICal: CalendarTemplate{
			Summary:       "Appointment at {{practice}}",
			Description:   "Your appointment on {{date}} at {{time}}.",
			OrganizerName: "{{practice}}",
			ProdID:        "-//practice-booking//appointments//EN",
		},
	}
}

// LoadTemplates reads a JSON template file. Sections or fields missing from
// the file keep their defaults; an empty path returns the defaults.
func LoadTemplates(path string) (Templates, error) {
	tpl := DefaultTemplates()
	if path == "" {
		return tpl, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tpl, fmt.Errorf("read email templates: %w", err)
	}

	var file Templates
	if err := json.Unmarshal(data, &file); err != nil {
		return tpl, fmt.Errorf("parse email templates: %w", err)
	}

	overlay(&tpl.Token.Subject, file.Token.Subject)
	overlay(&tpl.Token.Body, file.Token.Body)
	overlay(&tpl.Confirmation.Subject, file.Confirmation.Subject)
	overlay(&tpl.Confirmation.Body, file.Confirmation.Body)
	overlay(&tpl.ICal.Summary, file.ICal.Summary)
	overlay(&tpl.ICal.Description, file.ICal.Description)
	overlay(&tpl.ICal.OrganizerName, file.ICal.OrganizerName)
	overlay(&tpl.ICal.ProdID, file.ICal.ProdID)
	return tpl, nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Render replaces every {{key}} in s. Unknown placeholders are left as is.
func Render(s string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
