package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/contacts"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/intent"
)

// ==================== Create Meeting ====================

// CreateMeetingHandler schedules a new one-hour meeting.
type CreateMeetingHandler struct {
	deps *Deps
}

// Kind returns the intent kind
func (h *CreateMeetingHandler) Kind() intent.Kind {
	return intent.KindCreateMeeting
}

// Validate checks attendees and the start time
func (h *CreateMeetingHandler) Validate(ctx context.Context, in intent.Intent) error {
	_, err := h.spec(in)
	return err
}

// Execute creates the event and mails the attendees
func (h *CreateMeetingHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	spec, err := h.spec(in)
	if err != nil {
		return nil, err
	}

	ev, err := h.deps.Events.CreateEvent(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	result := &Result{
		Message: "Meeting scheduled",
		Link:    ev.Link,
		Event:   ev,
	}
	details := in.(intent.CreateMeeting).Details
	h.deps.confirm(ctx, result, "Meeting Confirmation", "scheduled", ev, platformOf(details.Platform))
	return result, nil
}

func (h *CreateMeetingHandler) spec(in intent.Intent) (backend.EventSpec, error) {
	cm, ok := in.(intent.CreateMeeting)
	if !ok {
		return backend.EventSpec{}, wrongIntent(h.Kind(), in)
	}
	md := cm.Details

	emails := contacts.ResolveAll(md.Attendees)
	if len(emails) == 0 {
		return backend.EventSpec{}, fmt.Errorf("%w: %q", core.ErrNoValidAttendees, md.Attendees)
	}
	if strings.TrimSpace(md.DateTime) == "" {
		return backend.EventSpec{}, fmt.Errorf("%w: meeting date/time", core.ErrMissingRequiredField)
	}
	start, err := h.deps.Times.Resolve(md.DateTime)
	if err != nil {
		return backend.EventSpec{}, err
	}

	summary := strings.TrimSpace(md.Purpose)
	if summary == "" {
		summary = strings.TrimSpace(md.Description)
	}
	if summary == "" {
		summary = "Meeting"
	}

	return backend.EventSpec{
		Summary:     summary,
		Description: meetingDescription(md.Description, platformOf(md.Platform)),
		Start:       start,
		End:         start.Add(MeetingDuration),
		Attendees:   emails,
		Conference:  h.deps.Conferencing,
	}, nil
}

// ==================== Reschedule Meeting ====================

// RescheduleMeetingHandler moves a meeting by deleting it and creating a new
// one at the new time. The two steps are not atomic: if the create fails
// after the delete succeeded, neither event exists.
type RescheduleMeetingHandler struct {
	deps *Deps
}

// Kind returns the intent kind
func (h *RescheduleMeetingHandler) Kind() intent.Kind {
	return intent.KindRescheduleMeeting
}

type reschedulePlan struct {
	email    string
	purpose  string
	platform string
	start    time.Time
	end      time.Time
}

// Validate checks the attendee email and the new time
func (h *RescheduleMeetingHandler) Validate(ctx context.Context, in intent.Intent) error {
	_, err := h.plan(in)
	return err
}

// Execute finds the meeting, deletes it and recreates it at the new time
func (h *RescheduleMeetingHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	p, err := h.plan(in)
	if err != nil {
		return nil, err
	}

	events, err := h.deps.Events.ListEvents(ctx, backend.EventQuery{
		TimeMin:      h.deps.Times.Now(),
		OrderByStart: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	old, found := backend.FindEvent(events, h.deps.Matcher, p.email, p.purpose)
	if !found {
		return nil, fmt.Errorf("%w: no upcoming meeting with %s about %q", core.ErrEventNotFound, p.email, p.purpose)
	}

	result := &Result{Message: "Meeting rescheduled successfully!"}

	deleted := true
	if err := h.deps.Events.DeleteEvent(ctx, old.ID); err != nil {
		deleted = false
		h.deps.warn(result, fmt.Sprintf("could not delete old event %s", old.ID), err)
	}

	ev, err := h.deps.Events.CreateEvent(ctx, backend.EventSpec{
		Summary:     old.Summary,
		Description: meetingDescription(firstLine(old.Description), p.platform),
		Start:       p.start,
		End:         p.end,
		Attendees:   old.Attendees,
		Conference:  h.deps.Conferencing,
	})
	if err != nil {
		if deleted {
			return nil, fmt.Errorf("create rescheduled event (old event %s was already deleted): %w", old.ID, err)
		}
		return nil, fmt.Errorf("create rescheduled event: %w", err)
	}

	result.Link = ev.Link
	result.Event = ev
	h.deps.confirm(ctx, result, "Meeting Rescheduled", "rescheduled", ev, p.platform)
	return result, nil
}

func (h *RescheduleMeetingHandler) plan(in intent.Intent) (reschedulePlan, error) {
	rm, ok := in.(intent.RescheduleMeeting)
	if !ok {
		return reschedulePlan{}, wrongIntent(h.Kind(), in)
	}

	email, ok := contacts.ExtractEmail(rm.Attendee)
	if !ok {
		return reschedulePlan{}, fmt.Errorf("%w: %q", core.ErrNoValidAttendees, rm.Attendee)
	}
	if strings.TrimSpace(rm.Purpose) == "" {
		return reschedulePlan{}, fmt.Errorf("%w: meeting purpose", core.ErrMissingRequiredField)
	}
	if strings.TrimSpace(rm.DateTime) == "" {
		return reschedulePlan{}, fmt.Errorf("%w: new date/time", core.ErrMissingRequiredField)
	}
	start, err := h.deps.Times.Resolve(rm.DateTime)
	if err != nil {
		return reschedulePlan{}, err
	}

	return reschedulePlan{
		email:    email,
		purpose:  rm.Purpose,
		platform: platformOf(rm.Details.Platform),
		start:    start,
		end:      start.Add(MeetingDuration),
	}, nil
}

// ==================== Helpers ====================

func platformOf(p string) string {
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return DefaultPlatform
}

func meetingDescription(description, platform string) string {
	return strings.TrimSpace(description) + "\nPlatform: " + platform
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// confirm mails the attendees of ev. Failures become warnings.
func (d *Deps) confirm(ctx context.Context, result *Result, subject, verb string, ev *core.CalendarEvent, platform string) {
	if d.Notifier == nil || len(ev.Attendees) == 0 {
		return
	}

	link := ev.Link
	if ev.Conference != nil && ev.Conference.JoinURL != "" {
		link = ev.Conference.JoinURL
	}

	var body strings.Builder
	body.WriteString("Hello,\n\n")
	fmt.Fprintf(&body, "Your meeting has been %s successfully!\n\n", verb)
	fmt.Fprintf(&body, "Purpose: %s\n", ev.Summary)
	fmt.Fprintf(&body, "Date & Time: %s\n", ev.Start.Format(DisplayLayout))
	fmt.Fprintf(&body, "Attendees: %s\n", strings.Join(ev.Attendees, ", "))
	fmt.Fprintf(&body, "Platform: %s\n", platform)
	if link != "" {
		fmt.Fprintf(&body, "Meeting Link: %s\n", link)
	}
	body.WriteString("\nPlease mark your calendar.\n\n- SmartScheduler\n")

	err := d.Notifier.SendConfirmation(ctx, ev.Attendees, subject+" - "+ev.Summary, body.String())
	if err != nil {
		d.warn(result, "confirmation email not sent", err)
	}
}
