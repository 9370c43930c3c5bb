package backend

import (
	"context"
	"strings"

	"github.com/smartscheduler/smartscheduler/internal/core"
)

// TitleMatcher decides whether a stored title answers a user's query.
type TitleMatcher interface {
	Match(title, query string) bool
}

// SubstringMatcher matches when the query is a case-insensitive substring of
// the title. An empty query never matches.
type SubstringMatcher struct{}

// Match implements TitleMatcher.
func (SubstringMatcher) Match(title, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}

// FindTask returns the first task, in store listing order, whose title matches
// query. Completed tasks are searched too. found is false when nothing matches;
// err is reserved for store failures.
func FindTask(ctx context.Context, store TaskStore, m TitleMatcher, query string) (task core.Task, found bool, err error) {
	if m == nil {
		m = SubstringMatcher{}
	}
	tasks, err := store.ListTasks(ctx, TaskFilter{ShowCompleted: true})
	if err != nil {
		return core.Task{}, false, err
	}
	for _, t := range tasks {
		if m.Match(t.Title, query) {
			return t, true, nil
		}
	}
	return core.Task{}, false, nil
}

// FindEvent returns the first event in events attended by email whose summary
// matches purpose.
func FindEvent(events []core.CalendarEvent, m TitleMatcher, email, purpose string) (core.CalendarEvent, bool) {
	if m == nil {
		m = SubstringMatcher{}
	}
	for _, e := range events {
		if e.HasAttendee(email) && m.Match(e.Summary, purpose) {
			return e, true
		}
	}
	return core.CalendarEvent{}, false
}
