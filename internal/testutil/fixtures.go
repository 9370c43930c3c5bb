package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/storage"
)

// Stores is a pair of SQLite-backed stores sharing one in-memory database.
type Stores struct {
	DB     *storage.DB
	Events *storage.EventStore
	Tasks  *storage.TaskStore
}

// NewStores opens a fresh database and builds both stores in loc.
func NewStores(t *testing.T, loc *time.Location) *Stores {
	t.Helper()
	db := TestDB(t)
	return &Stores{
		DB:     db,
		Events: storage.NewEventStore(db, loc),
		Tasks:  storage.NewTaskStore(db, loc),
	}
}

// SeedEvent creates a one-hour event starting at start.
func (s *Stores) SeedEvent(t *testing.T, summary, description string, start time.Time, attendees ...string) *core.CalendarEvent {
	t.Helper()
	ev, err := s.Events.CreateEvent(context.Background(), backend.EventSpec{
		Summary:     summary,
		Description: description,
		Start:       start,
		End:         start.Add(time.Hour),
		Attendees:   attendees,
	})
	if err != nil {
		t.Fatalf("seed event %q: %v", summary, err)
	}
	return ev
}

// SeedTask creates an open task due at due (zero for none).
func (s *Stores) SeedTask(t *testing.T, title string, due time.Time) *core.Task {
	t.Helper()
	task, err := s.Tasks.CreateTask(context.Background(), backend.TaskSpec{
		Title:  title,
		Due:    due,
		Status: core.TaskNeedsAction,
	})
	if err != nil {
		t.Fatalf("seed task %q: %v", title, err)
	}
	return task
}

// AllEvents lists every stored event in start order.
func (s *Stores) AllEvents(t *testing.T) []core.CalendarEvent {
	t.Helper()
	events, err := s.Events.ListEvents(context.Background(), backend.EventQuery{OrderByStart: true})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return events
}

// AllTasks lists every stored task, completed included.
func (s *Stores) AllTasks(t *testing.T) []core.Task {
	t.Helper()
	tasks, err := s.Tasks.ListTasks(context.Background(), backend.TaskFilter{ShowCompleted: true})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	return tasks
}
