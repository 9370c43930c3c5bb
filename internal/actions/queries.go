package actions

import (
	"context"
	"fmt"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/intent"
)

// ==================== Show Tasks ====================

// ShowTasksHandler lists upcoming reminder events.
type ShowTasksHandler struct {
	deps *Deps
}

// Kind returns the intent kind
func (h *ShowTasksHandler) Kind() intent.Kind {
	return intent.KindShowTasks
}

// Validate accepts any ShowTasks intent
func (h *ShowTasksHandler) Validate(ctx context.Context, in intent.Intent) error {
	if _, ok := in.(intent.ShowTasks); !ok {
		return wrongIntent(h.Kind(), in)
	}
	return nil
}

// Execute returns reminders from now on, earliest first
func (h *ShowTasksHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	events, err := h.deps.Events.ListEvents(ctx, backend.EventQuery{
		TimeMin:      h.deps.Times.Now(),
		OrderByStart: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	result := &Result{}
	for _, ev := range events {
		if !ev.IsReminder() {
			continue
		}
		result.Reminders = append(result.Reminders, Reminder{Title: ev.ReminderTitle(), At: ev.Start})
	}

	if len(result.Reminders) == 0 {
		result.Message = "No upcoming task reminders."
	} else {
		result.Message = "Upcoming task reminders from your calendar:"
	}
	return result, nil
}

// ==================== Daily Summary ====================

// DailySummaryHandler collects today's events and open tasks due by tonight.
type DailySummaryHandler struct {
	deps *Deps
}

// Kind returns the intent kind
func (h *DailySummaryHandler) Kind() intent.Kind {
	return intent.KindDailySummary
}

// Validate accepts any DailySummary intent
func (h *DailySummaryHandler) Validate(ctx context.Context, in intent.Intent) error {
	if _, ok := in.(intent.DailySummary); !ok {
		return wrongIntent(h.Kind(), in)
	}
	return nil
}

// Execute lists the day's schedule
func (h *DailySummaryHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	now := h.deps.Times.Now()
	start, end := h.deps.Times.StartOfDay(now), h.deps.Times.EndOfDay(now)

	events, err := h.deps.Events.ListEvents(ctx, backend.EventQuery{
		TimeMin:      start,
		TimeMax:      end,
		OrderByStart: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	tasks, err := h.deps.Tasks.ListTasks(ctx, backend.TaskFilter{
		ShowCompleted: false,
		DueBefore:     end,
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	summary := &Summary{Day: start, Events: events, Tasks: tasks}
	result := &Result{Summary: summary}
	if summary.Empty() {
		result.Message = "You have no events or tasks scheduled for today."
	} else {
		result.Message = "Here's your schedule for today:"
	}
	return result, nil
}
