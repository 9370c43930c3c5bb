// Package assistant runs one request through extraction, intent resolution
// and execution.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartscheduler/smartscheduler/internal/actions"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/extraction"
	"github.com/smartscheduler/smartscheduler/internal/intent"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// Extractor turns free text into an extraction record.
type Extractor interface {
	Extract(ctx context.Context, text string) (*core.ExtractionRecord, error)
}

var _ Extractor = (*extraction.Extractor)(nil)

// Assistant is the request pipeline.
type Assistant struct {
	extractor Extractor
	resolver  *intent.Resolver
	executor  *actions.Executor
	log       *logging.Logger
}

// New wires an assistant over the given stores.
func New(extractor Extractor, deps actions.Deps) *Assistant {
	executor := actions.NewExecutor(deps)
	return &Assistant{
		extractor: extractor,
		resolver:  intent.NewResolver(intent.StoreFinder{Store: deps.Tasks, Matcher: deps.Matcher}),
		executor:  executor,
		log:       logging.WithField("component", "assistant"),
	}
}

// Response is everything a request produced. On failure it holds whatever
// completed before the error.
type Response struct {
	Utterance string
	Record    *core.ExtractionRecord
	Plan      intent.Plan
	Results   []*actions.Result
	Duration  time.Duration
}

// Confirmation returns the message to show after a mutating action, or ""
// when nothing changed.
func (r *Response) Confirmation() string {
	for _, res := range r.Results {
		if res.Mutates() {
			return r.Record.Confirmation()
		}
	}
	return ""
}

// Handle processes one utterance.
func (a *Assistant) Handle(ctx context.Context, text string) (*Response, error) {
	start := time.Now()
	resp := &Response{Utterance: strings.TrimSpace(text)}
	defer func() { resp.Duration = time.Since(start) }()

	if resp.Utterance == "" {
		return resp, fmt.Errorf("%w: request text", core.ErrMissingRequiredField)
	}

	rec, err := a.extractor.Extract(ctx, resp.Utterance)
	if err != nil {
		return resp, err
	}
	resp.Record = rec

	plan, err := a.resolver.Resolve(ctx, resp.Utterance, rec)
	if err != nil {
		return resp, err
	}
	resp.Plan = plan
	a.log.Debug("resolved %d intent(s) via rule %s", len(plan.Intents), plan.Rule)

	resp.Results, err = a.executor.Run(ctx, plan)
	if err != nil {
		return resp, err
	}
	return resp, nil
}
