// Package backend defines the calendar and task store contracts the assistant
// runs against, independent of where events and tasks actually live.
package backend

import (
	"context"
	"time"

	"github.com/smartscheduler/smartscheduler/internal/core"
)

// EventQuery selects calendar events.
type EventQuery struct {
	TimeMin      time.Time
	TimeMax      time.Time // zero means unbounded
	OrderByStart bool
}

// EventSpec describes an event to create.
type EventSpec struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	Conference  bool // request a video conference link
}

// EventPatch carries optional changes to an event. Nil fields are untouched.
type EventPatch struct {
	Summary     *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Attendees   []string
}

// EventStore is an external calendar.
type EventStore interface {
	ListEvents(ctx context.Context, q EventQuery) ([]core.CalendarEvent, error)
	CreateEvent(ctx context.Context, spec EventSpec) (*core.CalendarEvent, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (*core.CalendarEvent, error)
	// DeleteEvent succeeds when the event is already gone.
	DeleteEvent(ctx context.Context, id string) error
}

// TaskFilter selects tasks.
type TaskFilter struct {
	ShowCompleted bool
	DueBefore     time.Time // zero means unbounded
	DueAfter      time.Time // zero means unbounded
}

// Matches reports whether t passes the filter. Tasks without a due date never
// pass a due bound.
func (f TaskFilter) Matches(t core.Task) bool {
	if !f.ShowCompleted && t.Status == core.TaskCompleted {
		return false
	}
	if !f.DueBefore.IsZero() && (!t.HasDue() || t.Due.After(f.DueBefore)) {
		return false
	}
	if !f.DueAfter.IsZero() && (!t.HasDue() || t.Due.Before(f.DueAfter)) {
		return false
	}
	return true
}

// TaskSpec describes a task to create.
type TaskSpec struct {
	Title  string
	Notes  string
	Due    time.Time
	Status core.TaskStatus
}

// TaskPatch carries optional changes to a task. Nil fields are untouched.
type TaskPatch struct {
	Title  *string
	Notes  *string
	Due    *time.Time
	Status *core.TaskStatus
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Notes == nil && p.Due == nil && p.Status == nil
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t core.Task) core.Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Due != nil {
		t.Due = *p.Due
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

// TaskStore is an external to-do list.
type TaskStore interface {
	ListTasks(ctx context.Context, f TaskFilter) ([]core.Task, error)
	CreateTask(ctx context.Context, spec TaskSpec) (*core.Task, error)
	// GetTask returns core.ErrTaskNotFound for unknown ids.
	GetTask(ctx context.Context, id string) (*core.Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*core.Task, error)
	DeleteTask(ctx context.Context, id string) error
}
