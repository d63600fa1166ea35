package notify

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/hackgods/practice-booking/internal/appointment"
)

const calendarContentType = "text/calendar; charset=UTF-8; method=PUBLISH"

type calendarEvent struct {
	UID            string
	Start          time.Time
	End            time.Time
	Summary        string
	Description    string
	OrganizerName  string
	OrganizerEmail string
	ProdID         string
}

func eventFor(appt appointment.Appointment, tpl CalendarTemplate, data map[string]string, organizerEmail, uidDomain string) calendarEvent {
	return calendarEvent{
		UID:            appt.ID + "@" + uidDomain,
		Start:          appt.StartsAt(),
		End:            appt.EndsAt(),
		Summary:        Render(tpl.Summary, data),
		Description:    Render(tpl.Description, data),
		OrganizerName:  Render(tpl.OrganizerName, data),
		OrganizerEmail: organizerEmail,
		ProdID:         tpl.ProdID,
	}
}

func buildCalendar(ev calendarEvent, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ev.ProdID)

	event := cal.AddEvent(ev.UID)
	event.SetDtStampTime(stamp)
	event.SetStartAt(ev.Start)
	event.SetEndAt(ev.End)
	event.SetSummary(ev.Summary)
	event.SetDescription(ev.Description)
	if ev.OrganizerEmail != "" {
		event.SetOrganizer("mailto:"+ev.OrganizerEmail, ics.WithCN(ev.OrganizerName))
	}

	return cal.Serialize()
}
