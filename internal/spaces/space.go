// Package spaces holds what the Google-backed stores share: API error
// classification and the conversion of wire timestamps.
package spaces

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/smartscheduler/smartscheduler/internal/core"
)

// IsGone reports whether err is a Google API 404 or 410.
func IsGone(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
}

// Classify wraps a Google API failure for op. Missing resources wrap
// notFound. Everything else wraps core.ErrStoreUnavailable with the cause,
// and rejected credentials also wrap core.ErrNotAuthorized.
func Classify(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if IsGone(err) && notFound != nil {
		return fmt.Errorf("%s: %w", op, notFound)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return fmt.Errorf("%s: %w: %w: %w", op, core.ErrStoreUnavailable, core.ErrNotAuthorized, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}

// ParseTime reads an RFC3339 timestamp or a bare YYYY-MM-DD date into loc.
// Empty input yields the zero time.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
