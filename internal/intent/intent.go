// Package intent decides which single action a request asks for.
//
// The decision is an ordered list of guarded rules evaluated against the
// extraction record and the raw utterance. The first rule whose guard holds
// produces the intent; later rules are never consulted.
package intent

import "github.com/smartscheduler/smartscheduler/internal/core"

// Kind names a resolved intent.
type Kind string

const (
	KindCreateMeeting     Kind = "create_meeting"
	KindRescheduleMeeting Kind = "reschedule_meeting"
	KindCreateTask        Kind = "create_task"
	KindUpdateTask        Kind = "update_task"
	KindCompleteTask      Kind = "complete_task"
	KindDeleteTask        Kind = "delete_task"
	KindShowTasks         Kind = "show_tasks"
	KindDailySummary      Kind = "daily_summary"
	KindUnresolved        Kind = "unresolved"
)

// Intent is one resolved action. The set of implementations is closed.
type Intent interface {
	Kind() Kind
	isIntent()
}

// CreateMeeting schedules a new meeting.
type CreateMeeting struct {
	Details core.MeetingDetails
}

// RescheduleMeeting moves the first upcoming meeting with Attendee whose
// summary mentions Purpose to DateTime.
type RescheduleMeeting struct {
	Attendee string
	Purpose  string
	DateTime string
	Details  core.MeetingDetails
}

// CreateTask adds a task and its calendar reminder.
type CreateTask struct {
	Title    string
	DueDate  string
	Category string
}

// UpdateTask changes an existing task. Empty New* fields are left alone.
type UpdateTask struct {
	TaskID     string
	NewTitle   string
	NewDueDate string
	NewStatus  string
}

// IsNoop reports whether the update changes nothing.
func (u UpdateTask) IsNoop() bool {
	return u.NewTitle == "" && u.NewDueDate == "" && u.NewStatus == ""
}

// CompleteTask marks the first task whose title matches Title as completed.
type CompleteTask struct {
	Title string
}

// DeleteTask removes a task by id, or by title when TaskID is empty.
type DeleteTask struct {
	TaskID string
	Title  string
}

// ShowTasks lists upcoming task reminders.
type ShowTasks struct{}

// DailySummary reports today's meetings and open tasks.
type DailySummary struct{}

// Unresolved explains why no action can run. Err is one of the core sentinel
// errors.
type Unresolved struct {
	Reason string
	Err    error
}

func (CreateMeeting) Kind() Kind     { return KindCreateMeeting }
func (RescheduleMeeting) Kind() Kind { return KindRescheduleMeeting }
func (CreateTask) Kind() Kind        { return KindCreateTask }
func (UpdateTask) Kind() Kind        { return KindUpdateTask }
func (CompleteTask) Kind() Kind      { return KindCompleteTask }
func (DeleteTask) Kind() Kind        { return KindDeleteTask }
func (ShowTasks) Kind() Kind         { return KindShowTasks }
func (DailySummary) Kind() Kind      { return KindDailySummary }
func (Unresolved) Kind() Kind        { return KindUnresolved }

func (CreateMeeting) isIntent()     {}
func (RescheduleMeeting) isIntent() {}
func (CreateTask) isIntent()        {}
func (UpdateTask) isIntent()        {}
func (CompleteTask) isIntent()      {}
func (DeleteTask) isIntent()        {}
func (ShowTasks) isIntent()         {}
func (DailySummary) isIntent()      {}
func (Unresolved) isIntent()        {}

// Error lets an Unresolved intent be reported as a failure.
func (u Unresolved) Error() string {
	if u.Err == nil {
		return u.Reason
	}
	return u.Reason + ": " + u.Err.Error()
}

// Unwrap exposes the sentinel error.
func (u Unresolved) Unwrap() error { return u.Err }

// Plan is the ordered list of intents one request executes.
type Plan struct {
	Intents []Intent
	// Rule names the rule that produced the primary intent.
	Rule string
}

// Primary returns the first intent of the plan.
func (p Plan) Primary() Intent {
	if len(p.Intents) == 0 {
		return nil
	}
	return p.Intents[0]
}
