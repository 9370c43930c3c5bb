// Package actions executes resolved intents against the calendar and task
// stores.
//
// Every intent kind has a Handler. The Executor validates an intent before
// any store call, so a rejected request leaves no side effects. Primary store
// operations fail the action; secondary ones (reminder events, confirmation
// emails, deleting the old event of a reschedule) only add warnings.
package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/datetime"
	"github.com/smartscheduler/smartscheduler/internal/intent"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// MeetingDuration is the fixed length of every created event.
const MeetingDuration = time.Hour

// DefaultPlatform is written into descriptions when none was named.
const DefaultPlatform = "Google Meet"

// Notifier delivers confirmation messages. Delivery is best-effort.
type Notifier interface {
	SendConfirmation(ctx context.Context, recipients []string, subject, body string) error
}

// Handler executes one intent kind.
type Handler interface {
	// Kind returns the intent kind this handler supports
	Kind() intent.Kind

	// Validate checks the intent without touching any store
	Validate(ctx context.Context, in intent.Intent) error

	// Execute performs the action
	Execute(ctx context.Context, in intent.Intent) (*Result, error)
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Events backend.EventStore
	Tasks  backend.TaskStore
	Times  *datetime.Resolver

	// Optional
	Notifier Notifier
	Matcher  backend.TitleMatcher

	// DefaultAttendee is invited to task reminder events.
	DefaultAttendee string
	// Conferencing requests a video link on meetings.
	Conferencing bool
}

// Executor dispatches intents to handlers.
type Executor struct {
	deps     *Deps
	handlers map[intent.Kind]Handler
	log      *logging.Logger
}

// NewExecutor creates an executor with a handler for every intent kind.
func NewExecutor(d Deps) *Executor {
	if d.Matcher == nil {
		d.Matcher = backend.SubstringMatcher{}
	}
	deps := &d
	e := &Executor{
		deps:     deps,
		handlers: make(map[intent.Kind]Handler),
		log:      logging.WithField("component", "executor"),
	}

	e.register(&CreateMeetingHandler{deps: deps})
	e.register(&RescheduleMeetingHandler{deps: deps})
	e.register(&CreateTaskHandler{deps: deps})
	e.register(&UpdateTaskHandler{deps: deps})
	e.register(&CompleteTaskHandler{deps: deps})
	e.register(&DeleteTaskHandler{deps: deps})
	e.register(&ShowTasksHandler{deps: deps})
	e.register(&DailySummaryHandler{deps: deps})
	e.register(unresolvedHandler{})

	return e
}

// register adds h, replacing any handler for the same kind. Handlers are
// only registered by NewExecutor, so the map is read-only afterwards.
func (e *Executor) register(h Handler) {
	e.handlers[h.Kind()] = h
}

// Execute validates and runs a single intent.
func (e *Executor) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	if in == nil {
		return nil, fmt.Errorf("no intent to execute")
	}

	handler, exists := e.handlers[in.Kind()]
	if !exists {
		return nil, fmt.Errorf("no handler for intent: %s", in.Kind())
	}

	log := e.log.WithField("intent", in.Kind())

	if err := handler.Validate(ctx, in); err != nil {
		log.Debug("validation failed: %v", err)
		return nil, err
	}

	start := time.Now()
	result, err := handler.Execute(ctx, in)
	if err != nil {
		log.Warn("action failed: %v", err)
		return nil, err
	}

	result.Kind = in.Kind()
	result.Duration = time.Since(start)
	log.WithField("duration", result.Duration).Info("action completed")
	return result, nil
}

// Run executes the plan's intents in order and stops at the first failure.
// Results of the intents that completed are returned alongside the error.
func (e *Executor) Run(ctx context.Context, plan intent.Plan) ([]*Result, error) {
	results := make([]*Result, 0, len(plan.Intents))
	for _, in := range plan.Intents {
		res, err := e.Execute(ctx, in)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// warn records a soft failure on result and logs it.
func (d *Deps) warn(result *Result, what string, err error) {
	logging.WithField("component", "executor").Warn("%s: %v", what, err)
	result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", what, err))
}

// unresolvedHandler reports why a request could not be acted on.
type unresolvedHandler struct{}

func (unresolvedHandler) Kind() intent.Kind { return intent.KindUnresolved }

func (unresolvedHandler) Validate(ctx context.Context, in intent.Intent) error {
	u, ok := in.(intent.Unresolved)
	if !ok {
		return wrongIntent(intent.KindUnresolved, in)
	}
	if u.Err == nil {
		return fmt.Errorf("%s: %w", u.Reason, core.ErrEmptyExtraction)
	}
	return u
}

func (unresolvedHandler) Execute(ctx context.Context, in intent.Intent) (*Result, error) {
	return nil, unresolvedHandler{}.Validate(ctx, in)
}

func wrongIntent(want intent.Kind, got intent.Intent) error {
	return fmt.Errorf("handler for %s cannot run %T", want, got)
}
