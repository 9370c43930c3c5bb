package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/intent"
)

// defaultDue is used when a new task names no due date.
const defaultDue = "today"

// ==================== Create Task ====================

// CreateTaskHandler adds a task and a reminder event at its due time.
type CreateTaskHandler struct {
	deps *Deps
}

// Kind returns the intent kind
func (h *CreateTaskHandler) Kind() intent.Kind {
	return intent.KindCreateTask
}

// Validate checks the title and due date
func (h *CreateTaskHandler) Validate(ctx context.Context, in intent.Intent) error {
	_, err := h.spec(in)
	return err
}

// Execute inserts the task, then schedules its reminder
func (h *CreateTaskHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	spec, err := h.spec(in)
	if err != nil {
		return nil, err
	}

	task, err := h.deps.Tasks.CreateTask(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	result := &Result{
		Message: fmt.Sprintf("Task added. ID: %s", task.ID),
		Task:    task,
	}

	var attendees []string
	if h.deps.DefaultAttendee != "" {
		attendees = []string{h.deps.DefaultAttendee}
	}
	ev, err := h.deps.Events.CreateEvent(ctx, backend.EventSpec{
		Summary:     core.ReminderSummary(task.Title),
		Description: "Reminder to complete: " + task.Title,
		Start:       spec.Due,
		End:         spec.Due.Add(MeetingDuration),
		Attendees:   attendees,
	})
	if err != nil {
		h.deps.warn(result, "reminder not scheduled", err)
		return result, nil
	}

	result.Event = ev
	result.Link = ev.Link
	return result, nil
}

func (h *CreateTaskHandler) spec(in intent.Intent) (backend.TaskSpec, error) {
	ct, ok := in.(intent.CreateTask)
	if !ok {
		return backend.TaskSpec{}, wrongIntent(h.Kind(), in)
	}

	title := strings.TrimSpace(ct.Title)
	if title == "" {
		return backend.TaskSpec{}, fmt.Errorf("%w: task title", core.ErrMissingRequiredField)
	}
	phrase := strings.TrimSpace(ct.DueDate)
	if phrase == "" {
		phrase = defaultDue
	}
	due, err := h.deps.Times.Resolve(phrase)
	if err != nil {
		return backend.TaskSpec{}, err
	}

	var notes string
	if c := strings.TrimSpace(ct.Category); c != "" {
		notes = "Category: " + c
	}

	return backend.TaskSpec{
		Title:  title,
		Notes:  notes,
		Due:    due,
		Status: core.TaskNeedsAction,
	}, nil
}

// ==================== Update Task ====================

// UpdateTaskHandler changes the title, due date or status of a task by id.
type UpdateTaskHandler struct {
	deps *Deps
}

// Kind returns the intent kind
func (h *UpdateTaskHandler) Kind() intent.Kind {
	return intent.KindUpdateTask
}

// Validate checks the id and parses the new values
func (h *UpdateTaskHandler) Validate(ctx context.Context, in intent.Intent) error {
	_, _, err := h.patch(in)
	return err
}

// Execute applies the patch. An empty patch reads the task back unchanged.
func (h *UpdateTaskHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	id, patch, err := h.patch(in)
	if err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		task, err := h.deps.Tasks.GetTask(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get task: %w", err)
		}
		return &Result{Message: fmt.Sprintf("Nothing to change on task: %s", task.Title), Task: task}, nil
	}

	task, err := h.deps.Tasks.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &Result{Message: fmt.Sprintf("Task updated: %s", task.Title), Task: task}, nil
}

func (h *UpdateTaskHandler) patch(in intent.Intent) (string, backend.TaskPatch, error) {
	ut, ok := in.(intent.UpdateTask)
	if !ok {
		return "", backend.TaskPatch{}, wrongIntent(h.Kind(), in)
	}

	id := strings.TrimSpace(ut.TaskID)
	if id == "" {
		return "", backend.TaskPatch{}, fmt.Errorf("%w: no task id", core.ErrTaskNotFound)
	}

	var patch backend.TaskPatch
	if title := strings.TrimSpace(ut.NewTitle); title != "" {
		patch.Title = &title
	}
	if phrase := strings.TrimSpace(ut.NewDueDate); phrase != "" {
		due, err := h.deps.Times.Resolve(phrase)
		if err != nil {
			return "", backend.TaskPatch{}, err
		}
		patch.Due = &due
	}
	if s := strings.TrimSpace(ut.NewStatus); s != "" {
		status, ok := core.ParseTaskStatus(s)
		if !ok {
			return "", backend.TaskPatch{}, fmt.Errorf("%w: status must be completed or needsAction, got %q", core.ErrMissingRequiredField, s)
		}
		patch.Status = &status
	}
	return id, patch, nil
}

// ==================== Complete Task ====================

// CompleteTaskHandler marks the first task matching a title as completed.
type CompleteTaskHandler struct {
	deps *Deps
}

// Kind returns the intent kind
func (h *CompleteTaskHandler) Kind() intent.Kind {
	return intent.KindCompleteTask
}

// Validate requires a title to search for
func (h *CompleteTaskHandler) Validate(ctx context.Context, in intent.Intent) error {
	ct, ok := in.(intent.CompleteTask)
	if !ok {
		return wrongIntent(h.Kind(), in)
	}
	if strings.TrimSpace(ct.Title) == "" {
		return fmt.Errorf("%w: no title to match", core.ErrTaskNotFound)
	}
	return nil
}

// Execute finds the task and sets its status
func (h *CompleteTaskHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	ct := in.(intent.CompleteTask)

	task, err := h.deps.findTask(ctx, ct.Title)
	if err != nil {
		return nil, err
	}

	status := core.TaskCompleted
	updated, err := h.deps.Tasks.UpdateTask(ctx, task.ID, backend.TaskPatch{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &Result{
		Message: fmt.Sprintf("Task '%s' marked as completed.", updated.Title),
		Task:    updated,
	}, nil
}

// ==================== Delete Task ====================

// DeleteTaskHandler removes a task by id or by the first title match.
type DeleteTaskHandler struct {
	deps *Deps
}

// Kind returns the intent kind
func (h *DeleteTaskHandler) Kind() intent.Kind {
	return intent.KindDeleteTask
}

// Validate requires an id or a title
func (h *DeleteTaskHandler) Validate(ctx context.Context, in intent.Intent) error {
	dt, ok := in.(intent.DeleteTask)
	if !ok {
		return wrongIntent(h.Kind(), in)
	}
	if strings.TrimSpace(dt.TaskID) == "" && strings.TrimSpace(dt.Title) == "" {
		return fmt.Errorf("%w: no task id or title", core.ErrTaskNotFound)
	}
	return nil
}

// Execute deletes the task
func (h *DeleteTaskHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	dt := in.(intent.DeleteTask)

	id := strings.TrimSpace(dt.TaskID)
	if id == "" {
		task, err := h.deps.findTask(ctx, dt.Title)
		if err != nil {
			return nil, err
		}
		id = task.ID
	}

	if err := h.deps.Tasks.DeleteTask(ctx, id); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return &Result{Message: fmt.Sprintf("Task %s deleted.", id)}, nil
}

// findTask returns the first task matching title or core.ErrTaskNotFound.
func (d *Deps) findTask(ctx context.Context, title string) (core.Task, error) {
	task, found, err := backend.FindTask(ctx, d.Tasks, d.Matcher, title)
	if err != nil {
		return core.Task{}, fmt.Errorf("list tasks: %w", err)
	}
	if !found {
		return core.Task{}, fmt.Errorf("%w: %q", core.ErrTaskNotFound, title)
	}
	return task, nil
}
