// Package extraction turns one user utterance into a core.ExtractionRecord
// by asking a language model and decoding its answer strictly.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/llm"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// Extractor asks a model for the extraction record of an utterance.
type Extractor struct {
	llm llm.Completer
	log *logging.Logger
}

// New creates an Extractor backed by c.
func New(c llm.Completer) *Extractor {
	return &Extractor{
		llm: c,
		log: logging.WithField("component", "extraction"),
	}
}

// Extract returns the record for text. Any failure to obtain a valid record,
// including an unreachable model, wraps core.ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, text string) (*core.ExtractionRecord, error) {
	raw, err := e.llm.Chat(ctx, systemPrompt, fmt.Sprintf("Sentence: %q", text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
	}
	e.log.Debug("model response: %s", raw)

	rec, err := Decode(raw)
	if err != nil {
		e.log.WithField("raw", raw).Warn("unusable model response")
		return nil, err
	}
	return rec, nil
}

// Decode parses raw model output into a normalized record.
func Decode(raw string) (*core.ExtractionRecord, error) {
	w, err := llm.ExtractJSON[wireRecord](raw, validate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
	}
	return w.record(), nil
}

// wireRecord is the model's JSON before normalization. Enumerations are
// compared case-insensitively and attendees may arrive as one string.
type wireRecord struct {
	MeetingDetails      *wireMeeting `json:"meeting_details"`
	TaskDetails         *wireTask    `json:"task_details"`
	Action              string       `json:"action"`
	ConfirmationMessage string       `json:"confirmation_message"`
}

type wireMeeting struct {
	Description string     `json:"description"`
	Attendees   stringList `json:"attendees"`
	DateTime    string     `json:"date_time"`
	Platform    string     `json:"platform"`
	Purpose     string     `json:"purpose"`
}

type wireTask struct {
	Title         string              `json:"title"`
	DueDate       string              `json:"due_date"`
	Category      string              `json:"category"`
	Action        string              `json:"action"`
	TaskID        flexString          `json:"task_id"`
	UpdatedFields *core.UpdatedFields `json:"updated_fields"`
}

// stringList accepts ["a", "b"], "a, b" or null.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("attendees must be a list of strings")
	}
	*l = nil
	for _, part := range strings.Split(single, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("task_id must be a string")
	}
	*s = flexString(num.String())
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validate(w wireRecord) error {
	if a := core.Action(normalize(w.Action)); !a.Valid() {
		return fmt.Errorf("unknown action %q", w.Action)
	}
	if w.TaskDetails != nil {
		if a := core.TaskAction(normalize(w.TaskDetails.Action)); !a.Valid() {
			return fmt.Errorf("unknown task action %q", w.TaskDetails.Action)
		}
	}
	return nil
}

func (w wireRecord) record() *core.ExtractionRecord {
	rec := &core.ExtractionRecord{
		Action:              core.Action(normalize(w.Action)),
		ConfirmationMessage: strings.TrimSpace(w.ConfirmationMessage),
	}

	if m := w.MeetingDetails; m != nil {
		md := &core.MeetingDetails{
			Description: strings.TrimSpace(m.Description),
			DateTime:    strings.TrimSpace(m.DateTime),
			Platform:    strings.TrimSpace(m.Platform),
			Purpose:     strings.TrimSpace(m.Purpose),
		}
		for _, a := range m.Attendees {
			if a = strings.TrimSpace(a); a != "" {
				md.Attendees = append(md.Attendees, a)
			}
		}
		// Models sometimes send an empty object for the other kind of request
		if md.Description != "" || md.DateTime != "" || md.Platform != "" || md.Purpose != "" || len(md.Attendees) > 0 {
			rec.MeetingDetails = md
		}
	}

	if t := w.TaskDetails; t != nil {
		td := &core.TaskDetails{
			Title:    strings.TrimSpace(t.Title),
			DueDate:  strings.TrimSpace(t.DueDate),
			Category: normalize(t.Category),
			Action:   core.TaskAction(normalize(t.Action)),
			TaskID:   strings.TrimSpace(string(t.TaskID)),
		}
		if uf := t.UpdatedFields; uf != nil {
			fields := core.UpdatedFields{
				Title:   strings.TrimSpace(uf.Title),
				DueDate: strings.TrimSpace(uf.DueDate),
				Status:  strings.TrimSpace(uf.Status),
			}
			if fields != (core.UpdatedFields{}) {
				td.UpdatedFields = &fields
			}
		}
		if td.Title != "" || td.DueDate != "" || td.Action != core.TaskActionNone || td.TaskID != "" || td.UpdatedFields != nil {
			rec.TaskDetails = td
		}
	}

	return rec
}
