package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
)

// fakeCalendar is a minimal Google Calendar API v3 server.
type fakeCalendar struct {
	mu       sync.Mutex
	events   map[string]*calendar.Event
	order    []string
	requests []*http.Request
	inserted []*calendar.Event
	status   int // forced status for every request when non-zero
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[string]*calendar.Event)}
}

func (f *fakeCalendar) add(e *calendar.Event) {
	f.events[e.Id] = e
	f.order = append(f.order, e.Id)
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)

	if f.status != 0 {
		writeError(w, f.status)
		return
	}

	const prefix = "/calendars/primary/events"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusNotFound)
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		items := make([]*calendar.Event, 0, len(f.order))
		for _, eid := range f.order {
			if e, ok := f.events[eid]; ok {
				items = append(items, e)
			}
		}
		json.NewEncoder(w).Encode(&calendar.Events{Items: items})

	case r.Method == http.MethodPost && id == "":
		var e calendar.Event
		json.NewDecoder(r.Body).Decode(&e)
		f.inserted = append(f.inserted, &e)
		e.Id = "new-event"
		e.HtmlLink = "https://calendar.google.com/event?eid=new-event"
		if e.ConferenceData != nil {
			e.HangoutLink = "https://meet.google.com/abc-defg-hij"
		}
		f.add(&e)
		json.NewEncoder(w).Encode(&e)

	case r.Method == http.MethodGet:
		e, ok := f.events[id]
		if !ok {
			writeError(w, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(e)

	case r.Method == http.MethodPut:
		if _, ok := f.events[id]; !ok {
			writeError(w, http.StatusNotFound)
			return
		}
		var e calendar.Event
		json.NewDecoder(r.Body).Decode(&e)
		e.Id = id
		f.events[id] = &e
		json.NewEncoder(w).Encode(&e)

	case r.Method == http.MethodDelete:
		if _, ok := f.events[id]; !ok {
			writeError(w, http.StatusGone)
			return
		}
		delete(f.events, id)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed)
	}
}

func writeError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": http.StatusText(code)},
	})
}

func testClient(t *testing.T, fake *fakeCalendar) (*Client, *time.Location) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}

	client, err := NewClient(context.Background(), "primary", loc,
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, loc
}

func TestClient_ListEvents(t *testing.T) {
	fake := newFakeCalendar()
	fake.add(&calendar.Event{
		Id:      "underway",
		Summary: "Started before now",
		Start:   &calendar.EventDateTime{DateTime: "2026-10-18T08:00:00+05:30"},
		End:     &calendar.EventDateTime{DateTime: "2026-10-18T10:00:00+05:30"},
	})
	fake.add(&calendar.Event{
		Id:          "sync",
		Summary:     "Weekly sync",
		Description: "Agenda\nPlatform: Zoom",
		Start:       &calendar.EventDateTime{DateTime: "2026-10-20T04:30:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2026-10-20T05:30:00Z"},
		Attendees:   []*calendar.EventAttendee{{Email: "john@acme.io"}, {DisplayName: "room"}},
		HtmlLink:    "https://calendar.google.com/event?eid=sync",
	})
	fake.add(&calendar.Event{Id: "gone", Status: "cancelled"})

	client, loc := testClient(t, fake)
	now := time.Date(2026, time.October, 18, 9, 0, 0, 0, loc)

	events, err := client.ListEvents(context.Background(), backend.EventQuery{TimeMin: now, OrderByStart: true})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ListEvents() = %d events, want 1: %+v", len(events), events)
	}

	e := events[0]
	if e.ID != "sync" || e.Link == "" {
		t.Errorf("event = %+v", e)
	}
	if want := time.Date(2026, time.October, 20, 10, 0, 0, 0, loc); !e.Start.Equal(want) || e.Start.Location() != loc {
		t.Errorf("Start = %v, want %v", e.Start, want)
	}
	if len(e.Attendees) != 1 || e.Attendees[0] != "john@acme.io" {
		t.Errorf("Attendees = %v", e.Attendees)
	}

	q := fake.requests[0].URL.Query()
	if q.Get("singleEvents") != "true" || q.Get("orderBy") != "startTime" || q.Get("timeMin") == "" {
		t.Errorf("query = %v", q)
	}
	if q.Get("timeMax") != "" {
		t.Errorf("timeMax should be unset, got %q", q.Get("timeMax"))
	}
}

func TestClient_CreateEvent_WithConference(t *testing.T) {
	fake := newFakeCalendar()
	client, loc := testClient(t, fake)

	start := time.Date(2026, time.October, 23, 15, 0, 0, 0, loc)
	event, err := client.CreateEvent(context.Background(), backend.EventSpec{
		Summary:     "Sync",
		Description: "Weekly\nPlatform: Google Meet",
		Start:       start,
		End:         start.Add(time.Hour),
		Attendees:   []string{"john@acme.io"},
		Conference:  true,
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	if event.Conference == nil || event.Conference.JoinURL != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("Conference = %+v", event.Conference)
	}
	if event.Conference.RequestID == "" {
		t.Error("conference request id not echoed back")
	}
	if !event.Start.Equal(start) {
		t.Errorf("Start = %v, want %v", event.Start, start)
	}

	req := fake.requests[0]
	if req.URL.Query().Get("conferenceDataVersion") != "1" || req.URL.Query().Get("sendUpdates") != "all" {
		t.Errorf("insert query = %v", req.URL.Query())
	}

	sent := fake.inserted[0]
	if sent.ConferenceData.CreateRequest.ConferenceSolutionKey.Type != "hangoutsMeet" {
		t.Errorf("conference solution = %+v", sent.ConferenceData.CreateRequest.ConferenceSolutionKey)
	}
	if sent.Start.DateTime != "2026-10-23T15:00:00+05:30" || sent.Start.TimeZone != "Asia/Kolkata" {
		t.Errorf("Start sent = %+v", sent.Start)
	}
	if len(sent.Attendees) != 1 || sent.Attendees[0].Email != "john@acme.io" {
		t.Errorf("attendees sent = %+v", sent.Attendees)
	}
}

func TestClient_CreateEvent_WithoutConference(t *testing.T) {
	fake := newFakeCalendar()
	client, loc := testClient(t, fake)

	start := time.Date(2026, time.October, 23, 10, 0, 0, 0, loc)
	event, err := client.CreateEvent(context.Background(), backend.EventSpec{
		Summary: "Reminder: Submit report",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if event.Conference != nil {
		t.Errorf("Conference = %+v, want nil", event.Conference)
	}
	if fake.inserted[0].ConferenceData != nil {
		t.Error("conference requested for a reminder")
	}
	if fake.requests[0].URL.Query().Get("conferenceDataVersion") != "" {
		t.Error("conferenceDataVersion sent without a conference")
	}
}

func TestClient_UpdateEvent(t *testing.T) {
	fake := newFakeCalendar()
	fake.add(&calendar.Event{
		Id:      "sync",
		Summary: "Sync",
		Start:   &calendar.EventDateTime{DateTime: "2026-10-20T10:00:00+05:30"},
		End:     &calendar.EventDateTime{DateTime: "2026-10-20T11:00:00+05:30"},
	})
	client, _ := testClient(t, fake)

	summary := "Weekly sync"
	updated, err := client.UpdateEvent(context.Background(), "sync", backend.EventPatch{Summary: &summary})
	if err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	if updated.Summary != summary {
		t.Errorf("Summary = %q", updated.Summary)
	}

	_, err = client.UpdateEvent(context.Background(), "missing", backend.EventPatch{Summary: &summary})
	if !errors.Is(err, core.ErrEventNotFound) {
		t.Errorf("UpdateEvent(missing) error = %v, want ErrEventNotFound", err)
	}
}

func TestClient_DeleteEvent_Idempotent(t *testing.T) {
	fake := newFakeCalendar()
	fake.add(&calendar.Event{Id: "sync", Summary: "Sync"})
	client, _ := testClient(t, fake)

	if err := client.DeleteEvent(context.Background(), "sync"); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	if err := client.DeleteEvent(context.Background(), "sync"); err != nil {
		t.Errorf("DeleteEvent() of a deleted event = %v, want nil", err)
	}
}

func TestClient_ServerErrorsAreUnavailable(t *testing.T) {
	fake := newFakeCalendar()
	fake.status = http.StatusInternalServerError
	client, _ := testClient(t, fake)

	_, err := client.ListEvents(context.Background(), backend.EventQuery{})
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Errorf("ListEvents() error = %v, want ErrStoreUnavailable", err)
	}

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		fake.status = status
		err = client.DeleteEvent(context.Background(), "x")
		if !errors.Is(err, core.ErrNotAuthorized) || !errors.Is(err, core.ErrStoreUnavailable) {
			t.Errorf("DeleteEvent() with %d error = %v, want ErrNotAuthorized and ErrStoreUnavailable", status, err)
		}
	}
}
