// Package core defines the fundamental types and errors for SmartScheduler.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Parsing errors
	ErrUnparseableDateTime = errors.New("unparseable date/time")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrEmptyExtraction     = errors.New("no meeting, task or action found in request")

	// Resolution errors
	ErrNoValidAttendees = errors.New("no valid attendee emails found")
	ErrEventNotFound    = errors.New("no matching event found")
	ErrTaskNotFound     = errors.New("task not found")

	// Validation errors
	ErrMissingRequiredField = errors.New("missing required field")

	// Backend errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotAuthorized    = errors.New("not authorized")
)
