// Package calendar implements the event store over Google Calendar.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/logging"
	"github.com/smartscheduler/smartscheduler/internal/spaces"
)

// Google Meet conference solution
const conferenceSolutionMeet = "hangoutsMeet"

// Client is a backend.EventStore over one Google calendar.
type Client struct {
	service    *calendar.Service
	calendarID string
	loc        *time.Location
	log        *logging.Logger
}

var _ backend.EventStore = (*Client)(nil)

// NewClient creates a Calendar client. Pass option.WithHTTPClient with an
// authorized client; tests also pass option.WithEndpoint.
func NewClient(ctx context.Context, calendarID string, loc *time.Location, opts ...option.ClientOption) (*Client, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Client{
		service:    service,
		calendarID: calendarID,
		loc:        loc,
		log:        logging.WithField("store", "google-calendar"),
	}, nil
}

// ListEvents returns single (expanded) events starting inside the window.
// Google matches on end time, so events already underway are dropped here.
func (c *Client) ListEvents(ctx context.Context, q backend.EventQuery) ([]core.CalendarEvent, error) {
	call := c.service.Events.List(c.calendarID).
		Context(ctx).
		SingleEvents(true).
		ShowDeleted(false)
	if !q.TimeMin.IsZero() {
		call = call.TimeMin(q.TimeMin.Format(time.RFC3339))
	}
	if !q.TimeMax.IsZero() {
		call = call.TimeMax(q.TimeMax.Format(time.RFC3339))
	}
	if q.OrderByStart {
		call = call.OrderBy("startTime")
	}

	var events []core.CalendarEvent
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			event, err := c.convertEvent(item)
			if err != nil {
				return err
			}
			if !q.TimeMin.IsZero() && event.Start.Before(q.TimeMin) {
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, spaces.Classify("list events", err, nil)
	}

	return events, nil
}

// CreateEvent creates an event and notifies attendees. With Conference set a
// Google Meet link is requested.
func (c *Client) CreateEvent(ctx context.Context, spec backend.EventSpec) (*core.CalendarEvent, error) {
	event := &calendar.Event{
		Summary:     spec.Summary,
		Description: spec.Description,
		Start:       c.eventTime(spec.Start),
		End:         c.eventTime(spec.End),
	}

	if len(spec.Attendees) > 0 {
		attendees := make([]*calendar.EventAttendee, 0, len(spec.Attendees))
		for _, email := range spec.Attendees {
			attendees = append(attendees, &calendar.EventAttendee{Email: email})
		}
		event.Attendees = attendees
	}

	call := c.service.Events.Insert(c.calendarID, event).
		Context(ctx).
		SendUpdates("all") // Send notifications to attendees

	if spec.Conference {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: uuid.New().String(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: conferenceSolutionMeet,
				},
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return nil, spaces.Classify("create event", err, nil)
	}

	converted, err := c.convertEvent(created)
	if err != nil {
		return nil, err
	}
	return &converted, nil
}

// UpdateEvent applies patch to an existing event.
func (c *Client) UpdateEvent(ctx context.Context, id string, patch backend.EventPatch) (*core.CalendarEvent, error) {
	existing, err := c.service.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		return nil, spaces.Classify("get event", err, core.ErrEventNotFound)
	}

	if patch.Summary != nil {
		existing.Summary = *patch.Summary
	}
	if patch.Description != nil {
		existing.Description = *patch.Description
	}
	if patch.Start != nil {
		existing.Start = c.eventTime(*patch.Start)
	}
	if patch.End != nil {
		existing.End = c.eventTime(*patch.End)
	}
	if patch.Attendees != nil {
		attendees := make([]*calendar.EventAttendee, 0, len(patch.Attendees))
		for _, email := range patch.Attendees {
			attendees = append(attendees, &calendar.EventAttendee{Email: email})
		}
		existing.Attendees = attendees
	}

	updated, err := c.service.Events.Update(c.calendarID, id, existing).
		Context(ctx).
		SendUpdates("all").
		Do()
	if err != nil {
		return nil, spaces.Classify("update event", err, core.ErrEventNotFound)
	}

	converted, err := c.convertEvent(updated)
	if err != nil {
		return nil, err
	}
	return &converted, nil
}

// DeleteEvent deletes an event. An event that is already gone counts as
// deleted.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	err := c.service.Events.Delete(c.calendarID, id).
		Context(ctx).
		SendUpdates("all").
		Do()
	if spaces.IsGone(err) {
		c.log.WithField("event_id", id).Warn("event already deleted")
		return nil
	}
	if err != nil {
		return spaces.Classify("delete event", err, nil)
	}
	return nil
}

// eventTime carries the offset in the RFC3339 string and names the zone so
// recurring expansions stay in local time.
func (c *Client) eventTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.In(c.loc).Format(time.RFC3339),
		TimeZone: c.loc.String(),
	}
}

// convertEvent converts a Google Calendar event to a core.CalendarEvent
func (c *Client) convertEvent(item *calendar.Event) (core.CalendarEvent, error) {
	event := core.CalendarEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Link:        item.HtmlLink,
	}

	var err error
	if item.Start != nil {
		if event.Start, err = spaces.ParseTime(firstNonEmpty(item.Start.DateTime, item.Start.Date), c.loc); err != nil {
			return core.CalendarEvent{}, fmt.Errorf("event %s start: %w", item.Id, err)
		}
	}
	if item.End != nil {
		if event.End, err = spaces.ParseTime(firstNonEmpty(item.End.DateTime, item.End.Date), c.loc); err != nil {
			return core.CalendarEvent{}, fmt.Errorf("event %s end: %w", item.Id, err)
		}
	}

	for _, att := range item.Attendees {
		if att.Email != "" {
			event.Attendees = append(event.Attendees, att.Email)
		}
	}

	if cd := item.ConferenceData; cd != nil {
		conf := &core.Conference{}
		if cd.CreateRequest != nil {
			conf.RequestID = cd.CreateRequest.RequestId
		}
		for _, ep := range cd.EntryPoints {
			if ep.EntryPointType == "video" {
				conf.JoinURL = ep.Uri
				break
			}
		}
		event.Conference = conf
	}
	if event.Conference != nil && event.Conference.JoinURL == "" {
		event.Conference.JoinURL = item.HangoutLink
	}

	return event, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
