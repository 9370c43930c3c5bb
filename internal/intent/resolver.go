package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// TaskFinder looks a task up by a partial title. found is false when nothing
// matches; err is reserved for backend failures.
type TaskFinder interface {
	FindTask(ctx context.Context, query string) (task core.Task, found bool, err error)
}

// StoreFinder searches a TaskStore with a TitleMatcher.
type StoreFinder struct {
	Store   backend.TaskStore
	Matcher backend.TitleMatcher
}

// FindTask implements TaskFinder.
func (f StoreFinder) FindTask(ctx context.Context, query string) (core.Task, bool, error) {
	return backend.FindTask(ctx, f.Store, f.Matcher, query)
}

// Request is what the rules look at.
type Request struct {
	Utterance string
	Record    *core.ExtractionRecord
}

// Rule is one guarded step of the decision list. Apply returns ok=false when
// its guard does not hold.
type Rule struct {
	Name  string
	Apply func(ctx context.Context, r *Resolver, req Request) (in Intent, ok bool, err error)
}

// Resolver turns an extraction record into a Plan.
type Resolver struct {
	finder TaskFinder
	rules  []Rule
	log    *logging.Logger
}

// NewResolver creates a Resolver that looks up tasks through finder.
func NewResolver(finder TaskFinder) *Resolver {
	return &Resolver{
		finder: finder,
		rules:  Rules(),
		log:    logging.WithField("component", "intent"),
	}
}

// Rules returns the decision list in precedence order.
func Rules() []Rule {
	return []Rule{
		{Name: "daily_summary", Apply: dailySummaryRule},
		{Name: "meeting", Apply: meetingRule},
		{Name: "task", Apply: taskRule},
		{Name: "show", Apply: showRule},
		{Name: "fallback", Apply: fallbackRule},
	}
}

// Resolve picks the intent for req. An error is returned only for an empty
// record (core.ErrEmptyExtraction) or a backend failure during a title lookup.
// Requests that cannot be acted on come back as an Unresolved intent.
func (r *Resolver) Resolve(ctx context.Context, utterance string, rec *core.ExtractionRecord) (Plan, error) {
	req := Request{Utterance: utterance, Record: rec}
	if req.Record == nil {
		req.Record = &core.ExtractionRecord{}
	}
	if req.Record.IsEmpty() && !AsksToShowTasks(utterance) {
		return Plan{}, core.ErrEmptyExtraction
	}

	for _, rule := range r.rules {
		in, ok, err := rule.Apply(ctx, r, req)
		if err != nil {
			return Plan{}, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		if !ok {
			continue
		}

		plan := Plan{Intents: []Intent{in}, Rule: rule.Name}
		if compoundShow(rule.Name, in, req.Record) {
			plan.Intents = append(plan.Intents, ShowTasks{})
		}
		r.log.WithFields(map[string]interface{}{
			"rule":   rule.Name,
			"intent": in.Kind(),
		}).Debug("resolved request")
		return plan, nil
	}

	// fallbackRule always matches
	return Plan{Intents: []Intent{Unresolved{Reason: "no actionable information", Err: core.ErrEmptyExtraction}}}, nil
}

// compoundShow reports whether a mutation should also list tasks because the
// top-level action independently asked to show them.
func compoundShow(rule string, in Intent, rec *core.ExtractionRecord) bool {
	if rule != "meeting" && rule != "task" {
		return false
	}
	switch in.(type) {
	case Unresolved, ShowTasks:
		return false
	}
	return rec.Action == core.ActionShow
}

func dailySummaryRule(_ context.Context, _ *Resolver, req Request) (Intent, bool, error) {
	if req.Record.Action != core.ActionDailySummary {
		return nil, false, nil
	}
	return DailySummary{}, true, nil
}

func meetingRule(_ context.Context, _ *Resolver, req Request) (Intent, bool, error) {
	md := req.Record.MeetingDetails
	if md == nil {
		return nil, false, nil
	}
	if !IsReschedule(req.Utterance) {
		return CreateMeeting{Details: *md}, true, nil
	}

	in := RescheduleMeeting{
		Attendee: md.FirstAttendee(),
		Purpose:  strings.TrimSpace(md.Purpose),
		DateTime: strings.TrimSpace(md.DateTime),
		Details:  *md,
	}
	var missing []string
	if in.Attendee == "" {
		missing = append(missing, "attendee")
	}
	if in.Purpose == "" {
		missing = append(missing, "purpose")
	}
	if in.DateTime == "" {
		missing = append(missing, "new date/time")
	}
	if len(missing) > 0 {
		return Unresolved{
			Reason: "missing reschedule fields: " + strings.Join(missing, ", "),
			Err:    core.ErrMissingRequiredField,
		}, true, nil
	}
	return in, true, nil
}

func taskRule(ctx context.Context, r *Resolver, req Request) (Intent, bool, error) {
	td := req.Record.TaskDetails
	if td == nil {
		return nil, false, nil
	}

	var updated core.UpdatedFields
	if td.UpdatedFields != nil {
		updated = *td.UpdatedFields
	}

	switch td.Action {
	case core.TaskActionAdd:
		return CreateTask{Title: td.Title, DueDate: td.DueDate, Category: td.Category}, true, nil

	case core.TaskActionUpdate:
		if IsCompletion(req.Utterance) {
			title := updated.Title
			if title == "" {
				title = td.Title
			}
			return CompleteTask{Title: title}, true, nil
		}
		query := updated.Title
		if query == "" {
			query = td.Title
		}
		id, found, err := r.taskID(ctx, td.TaskID, query)
		if err != nil || !found {
			return taskNotFound(query), true, err
		}
		return UpdateTask{
			TaskID:     id,
			NewTitle:   updated.Title,
			NewDueDate: updated.DueDate,
			NewStatus:  updated.Status,
		}, true, nil

	case core.TaskActionDelete:
		id, found, err := r.taskID(ctx, td.TaskID, td.Title)
		if err != nil || !found {
			return taskNotFound(td.Title), true, err
		}
		return DeleteTask{TaskID: id, Title: td.Title}, true, nil

	case core.TaskActionShow:
		return ShowTasks{}, true, nil
	}

	// task_details without a usable action fall through to the show rule
	return nil, false, nil
}

func showRule(_ context.Context, _ *Resolver, req Request) (Intent, bool, error) {
	rec := req.Record
	if rec.Action == core.ActionShow {
		return ShowTasks{}, true, nil
	}
	if rec.IsEmpty() && AsksToShowTasks(req.Utterance) {
		return ShowTasks{}, true, nil
	}
	return nil, false, nil
}

func fallbackRule(_ context.Context, _ *Resolver, _ Request) (Intent, bool, error) {
	return Unresolved{Reason: "no actionable information", Err: core.ErrEmptyExtraction}, true, nil
}

// taskID returns explicit when set, otherwise the id of the first task whose
// title matches query.
func (r *Resolver) taskID(ctx context.Context, explicit, query string) (string, bool, error) {
	if explicit != "" {
		return explicit, true, nil
	}
	if r.finder == nil || strings.TrimSpace(query) == "" {
		return "", false, nil
	}
	task, found, err := r.finder.FindTask(ctx, query)
	if err != nil || !found {
		return "", false, err
	}
	return task.ID, true, nil
}

func taskNotFound(query string) Unresolved {
	reason := "task not found"
	if query != "" {
		reason = fmt.Sprintf("task not found: %q", query)
	}
	return Unresolved{Reason: reason, Err: core.ErrTaskNotFound}
}
