// Package tasks implements the task store over Google Tasks.
//
// Google Tasks keeps only the date part of a due timestamp. Due dates are
// sent as midnight UTC of the local calendar day and read back as local
// midnight of that day.
package tasks

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	gtasks "google.golang.org/api/tasks/v1"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/spaces"
)

// Client is a backend.TaskStore over one Google task list.
type Client struct {
	service *gtasks.Service
	listID  string
	loc     *time.Location
}

var _ backend.TaskStore = (*Client)(nil)

// NewClient creates a Tasks client for listID ("@default" when empty).
func NewClient(ctx context.Context, listID string, loc *time.Location, opts ...option.ClientOption) (*Client, error) {
	service, err := gtasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	if listID == "" {
		listID = "@default"
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Client{service: service, listID: listID, loc: loc}, nil
}

// ListTasks returns the tasks passing f in list order.
func (c *Client) ListTasks(ctx context.Context, f backend.TaskFilter) ([]core.Task, error) {
	call := c.service.Tasks.List(c.listID).
		Context(ctx).
		ShowCompleted(f.ShowCompleted).
		ShowHidden(f.ShowCompleted)
	// Due dates are stored at 00:00Z, so the server bound is the start of
	// the following day and Matches applies the exact one.
	if !f.DueBefore.IsZero() {
		call = call.DueMax(c.wireDue(f.DueBefore.AddDate(0, 0, 1)))
	}
	if !f.DueAfter.IsZero() {
		call = call.DueMin(c.wireDue(f.DueAfter))
	}

	var out []core.Task
	err := call.Pages(ctx, func(page *gtasks.Tasks) error {
		for _, item := range page.Items {
			if item.Deleted {
				continue
			}
			task, err := c.convertTask(item)
			if err != nil {
				return err
			}
			if f.Matches(task) {
				out = append(out, task)
			}
		}
		return nil
	})
	if err != nil {
		return nil, spaces.Classify("list tasks", err, nil)
	}
	return out, nil
}

// CreateTask inserts a task. An empty status means needsAction.
func (c *Client) CreateTask(ctx context.Context, spec backend.TaskSpec) (*core.Task, error) {
	status := spec.Status
	if status == "" {
		status = core.TaskNeedsAction
	}

	item := &gtasks.Task{
		Title:  spec.Title,
		Notes:  spec.Notes,
		Status: string(status),
	}
	if !spec.Due.IsZero() {
		item.Due = c.wireDue(spec.Due)
	}

	created, err := c.service.Tasks.Insert(c.listID, item).Context(ctx).Do()
	if err != nil {
		return nil, spaces.Classify("create task", err, nil)
	}

	task, err := c.convertTask(created)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask returns core.ErrTaskNotFound for unknown ids.
func (c *Client) GetTask(ctx context.Context, id string) (*core.Task, error) {
	item, err := c.service.Tasks.Get(c.listID, id).Context(ctx).Do()
	if err != nil {
		return nil, spaces.Classify("get task", err, core.ErrTaskNotFound)
	}

	task, err := c.convertTask(item)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies patch to an existing task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch backend.TaskPatch) (*core.Task, error) {
	item, err := c.service.Tasks.Get(c.listID, id).Context(ctx).Do()
	if err != nil {
		return nil, spaces.Classify("get task", err, core.ErrTaskNotFound)
	}

	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
	if patch.Due != nil {
		item.Due = c.wireDue(*patch.Due)
	}
	if patch.Status != nil {
		item.Status = string(*patch.Status)
		if *patch.Status == core.TaskNeedsAction {
			item.Completed = nil
			item.NullFields = append(item.NullFields, "Completed")
		}
	}

	updated, err := c.service.Tasks.Update(c.listID, id, item).Context(ctx).Do()
	if err != nil {
		return nil, spaces.Classify("update task", err, core.ErrTaskNotFound)
	}

	task, err := c.convertTask(updated)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task; core.ErrTaskNotFound if there was none.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.service.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return spaces.Classify("delete task", err, core.ErrTaskNotFound)
	}
	return nil
}

func (c *Client) wireDue(t time.Time) string {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func (c *Client) convertTask(item *gtasks.Task) (core.Task, error) {
	task := core.Task{
		ID:     item.Id,
		Title:  item.Title,
		Notes:  item.Notes,
		Status: core.TaskStatus(item.Status),
	}
	if task.Status == "" {
		task.Status = core.TaskNeedsAction
	}

	if item.Due != "" {
		due, err := time.Parse(time.RFC3339, item.Due)
		if err != nil {
			return core.Task{}, fmt.Errorf("task %s due: %w", item.Id, err)
		}
		due = due.UTC()
		task.Due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, c.loc)
	}

	return task, nil
}
