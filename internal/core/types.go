// Package core defines the fundamental types for SmartScheduler.
// Everything the resolver, the executor and the stores exchange lives here.
package core

import (
	"strings"
	"time"
	_ "time/tzdata" // timestamps live in a fixed zone that must load without system zoneinfo
)

// -----------------------------------------------------------------------------
// EXTRACTION - What the language model understood
// -----------------------------------------------------------------------------

// Action is the top-level command hint carried by an extraction record.
type Action string

const (
	ActionNone         Action = ""
	ActionDailySummary Action = "daily_summary"
	ActionShow         Action = "show"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionAdd          Action = "add"
)

// Valid reports whether a is one of the known top-level actions.
func (a Action) Valid() bool {
	switch a {
	case ActionNone, ActionDailySummary, ActionShow, ActionUpdate, ActionDelete, ActionAdd:
		return true
	}
	return false
}

// TaskAction is the operation requested inside task_details.
type TaskAction string

const (
	TaskActionNone   TaskAction = ""
	TaskActionAdd    TaskAction = "add"
	TaskActionUpdate TaskAction = "update"
	TaskActionDelete TaskAction = "delete"
	TaskActionShow   TaskAction = "show"
)

// Valid reports whether a is one of the known task actions.
func (a TaskAction) Valid() bool {
	switch a {
	case TaskActionNone, TaskActionAdd, TaskActionUpdate, TaskActionDelete, TaskActionShow:
		return true
	}
	return false
}

// DefaultConfirmationMessage is shown when the model did not supply one.
const DefaultConfirmationMessage = "Action completed successfully."

// ExtractionRecord is the structured payload produced from one utterance.
// At most one of MeetingDetails and TaskDetails is authoritative; Action may
// independently request a query such as show or daily_summary.
type ExtractionRecord struct {
	MeetingDetails      *MeetingDetails `json:"meeting_details,omitempty"`
	TaskDetails         *TaskDetails    `json:"task_details,omitempty"`
	Action              Action          `json:"action,omitempty"`
	ConfirmationMessage string          `json:"confirmation_message,omitempty"`
}

// IsEmpty reports whether the record carries none of meeting details, task
// details or an action.
func (r *ExtractionRecord) IsEmpty() bool {
	return r == nil || (r.MeetingDetails == nil && r.TaskDetails == nil && r.Action == ActionNone)
}

// Confirmation returns the confirmation message, falling back to the default.
func (r *ExtractionRecord) Confirmation() string {
	if r == nil || strings.TrimSpace(r.ConfirmationMessage) == "" {
		return DefaultConfirmationMessage
	}
	return r.ConfirmationMessage
}

// MeetingDetails describes a meeting to create or reschedule.
type MeetingDetails struct {
	Description string   `json:"description"`
	Attendees   []string `json:"attendees"`
	DateTime    string   `json:"date_time"`
	Platform    string   `json:"platform"`
	Purpose     string   `json:"purpose"`
}

// FirstAttendee returns the first non-blank attendee string.
func (m *MeetingDetails) FirstAttendee() string {
	if m == nil {
		return ""
	}
	for _, a := range m.Attendees {
		if a = strings.TrimSpace(a); a != "" {
			return a
		}
	}
	return ""
}

// TaskDetails describes a task operation.
type TaskDetails struct {
	Title         string         `json:"title"`
	DueDate       string         `json:"due_date"`
	Category      string         `json:"category"`
	Action        TaskAction     `json:"action"`
	TaskID        string         `json:"task_id,omitempty"`
	UpdatedFields *UpdatedFields `json:"updated_fields,omitempty"`
}

// UpdatedFields carries the new values for a task update. Empty means unchanged.
type UpdatedFields struct {
	Title   string `json:"title,omitempty"`
	DueDate string `json:"due_date,omitempty"`
	Status  string `json:"status,omitempty"`
}

// -----------------------------------------------------------------------------
// CALENDAR - Events owned by the event store
// -----------------------------------------------------------------------------

// ReminderPrefix marks calendar events that stand in for task reminders.
const ReminderPrefix = "Reminder:"

// CalendarEvent is a calendar entry as seen by the assistant.
type CalendarEvent struct {
	ID          string      `json:"id"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Attendees   []string    `json:"attendees"`
	Conference  *Conference `json:"conference,omitempty"`
	Link        string      `json:"link"`
}

// Conference is the conferencing metadata attached to an event.
type Conference struct {
	RequestID string `json:"request_id"`
	JoinURL   string `json:"join_url,omitempty"`
}

// HasAttendee reports whether email is on the attendee list, ignoring case.
func (e CalendarEvent) HasAttendee(email string) bool {
	for _, a := range e.Attendees {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// IsReminder reports whether the event is a task reminder.
func (e CalendarEvent) IsReminder() bool {
	return strings.HasPrefix(e.Summary, ReminderPrefix)
}

// ReminderTitle returns the summary with the reminder prefix stripped.
func (e CalendarEvent) ReminderTitle() string {
	return strings.TrimSpace(strings.TrimPrefix(e.Summary, ReminderPrefix))
}

// ReminderSummary builds the summary for a task's reminder event.
func ReminderSummary(title string) string {
	return ReminderPrefix + " " + title
}

// -----------------------------------------------------------------------------
// TASKS - Owned by the task store
// -----------------------------------------------------------------------------

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskNeedsAction TaskStatus = "needsAction"
	TaskCompleted   TaskStatus = "completed"
)

// ParseTaskStatus maps loose status words onto a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "complete", "done":
		return TaskCompleted, true
	case "needsaction", "needs_action", "pending", "open", "todo":
		return TaskNeedsAction, true
	}
	return "", false
}

// Task is a to-do item.
type Task struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Notes  string     `json:"notes,omitempty"`
	Due    time.Time  `json:"due"`
	Status TaskStatus `json:"status"`
}

// HasDue reports whether the task carries a due timestamp.
func (t Task) HasDue() bool {
	return !t.Due.IsZero()
}
