package assistant

import (
	"errors"
	"fmt"

	"github.com/smartscheduler/smartscheduler/internal/actions"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/intent"
	"github.com/smartscheduler/smartscheduler/internal/llm"
)

// Status classifies a report line for styling.
type Status int

const (
	StatusOK Status = iota
	StatusInfo
	StatusItem
	StatusWarn
	StatusError
)

// Line is one line of user-facing output.
type Line struct {
	Status Status
	Text   string
}

// Report renders a response as status lines.
func Report(resp *Response) []Line {
	var lines []Line
	add := func(s Status, format string, args ...interface{}) {
		lines = append(lines, Line{Status: s, Text: fmt.Sprintf(format, args...)})
	}

	for _, res := range resp.Results {
		switch res.Kind {
		case intent.KindCreateMeeting, intent.KindRescheduleMeeting:
			add(StatusOK, "%s", res.Message)
			if res.Event != nil {
				add(StatusItem, "%s on %s", res.Event.Summary, res.Event.Start.Format(actions.DisplayLayout))
			}
			if res.Link != "" {
				add(StatusItem, "Link: %s", res.Link)
			}

		case intent.KindCreateTask:
			add(StatusOK, "%s", res.Message)
			if res.Event != nil {
				add(StatusInfo, "Reminder scheduled on calendar: %s", res.Event.Start.Format(actions.DisplayLayout))
			}

		case intent.KindShowTasks:
			add(StatusInfo, "%s", res.Message)
			for _, r := range res.Reminders {
				add(StatusItem, "- %s (Reminder: %s)", r.Title, r.At.Format(actions.DisplayLayout))
			}

		case intent.KindDailySummary:
			add(StatusInfo, "%s", res.Message)
			if res.Summary.Empty() {
				break
			}
			if n := len(res.Summary.Events); n > 0 {
				add(StatusInfo, "You have %d meeting(s):", n)
				for _, e := range res.Summary.Events {
					add(StatusItem, "- %s at %s", e.Summary, e.Start.Format(actions.DisplayLayout))
				}
			}
			if n := len(res.Summary.Tasks); n > 0 {
				add(StatusInfo, "You have %d task(s):", n)
				for _, t := range res.Summary.Tasks {
					due := "no due date"
					if t.HasDue() {
						due = t.Due.Format(actions.DisplayLayout)
					}
					add(StatusItem, "- %s (Due: %s)", t.Title, due)
				}
			}

		default:
			add(StatusOK, "%s", res.Message)
		}

		for _, w := range res.Warnings {
			add(StatusWarn, "%s", w)
		}
	}

	if msg := resp.Confirmation(); msg != "" {
		add(StatusOK, "%s", msg)
	}
	return lines
}

// Describe turns a pipeline error into a message for the user.
func Describe(err error) string {
	var unresolved intent.Unresolved
	switch {
	case errors.As(err, &unresolved):
		return "Could not act on your request: " + unresolved.Reason
	case errors.Is(err, llm.ErrNotConfigured):
		return "No language model API key is configured."
	case errors.Is(err, core.ErrExtractionFailed):
		return "Failed to parse input. Please try again."
	case errors.Is(err, core.ErrEmptyExtraction):
		return "Could not extract any valid task or meeting information from your input."
	case errors.Is(err, core.ErrNotAuthorized):
		return "Google access is not authorized. Run `smartscheduler auth` first."
	case errors.Is(err, core.ErrNoValidAttendees):
		return "No valid attendee email address was found."
	case errors.Is(err, core.ErrEventNotFound):
		return "No matching upcoming meeting was found."
	case errors.Is(err, core.ErrTaskNotFound):
		return "Task ID not found or unable to match task title."
	case errors.Is(err, core.ErrUnparseableDateTime):
		return "Could not understand the date or time."
	case errors.Is(err, core.ErrMissingRequiredField):
		return "Some required details are missing."
	case errors.Is(err, core.ErrStoreUnavailable):
		return "The calendar or task service is unavailable."
	}
	return "Failed to process your request."
}
