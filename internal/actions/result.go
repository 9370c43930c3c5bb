package actions

import (
	"time"

	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/intent"
)

// DisplayLayout formats timestamps shown to the user.
const DisplayLayout = "Monday, 02 Jan 2006 at 03:04 PM"

// Result contains the outcome of an action execution
type Result struct {
	Kind     intent.Kind         `json:"kind"`
	Message  string              `json:"message"`
	Link     string              `json:"link,omitempty"`
	Event    *core.CalendarEvent `json:"event,omitempty"`
	Task     *core.Task          `json:"task,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
	Duration time.Duration       `json:"duration"`

	// Set by ShowTasks
	Reminders []Reminder `json:"reminders,omitempty"`
	// Set by DailySummary
	Summary *Summary `json:"summary,omitempty"`
}

// Mutates reports whether the action changed a store.
func (r *Result) Mutates() bool {
	switch r.Kind {
	case intent.KindShowTasks, intent.KindDailySummary:
		return false
	}
	return true
}

// Reminder is an upcoming task reminder event.
type Reminder struct {
	Title string    `json:"title"`
	At    time.Time `json:"at"`
}

// Summary is today's schedule.
type Summary struct {
	Day    time.Time            `json:"day"`
	Events []core.CalendarEvent `json:"events"`
	Tasks  []core.Task          `json:"tasks"`
}

// Empty reports whether nothing is scheduled.
func (s *Summary) Empty() bool {
	return s == nil || (len(s.Events) == 0 && len(s.Tasks) == 0)
}
