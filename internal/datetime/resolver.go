// Package datetime turns natural-language date/time phrases into absolute,
// zoned timestamps.
//
// Every timestamp is resolved in a single fixed zone. When a phrase carries
// no clock time the result defaults to 10:00. The check is "no standalone
// `at` token and hour and minute both zero", so "midnight" without "at" is
// indistinguishable from "no time given" and also lands on 10:00.
package datetime

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smartscheduler/smartscheduler/internal/core"
)

// DefaultHour is the time of day used when a phrase has no clock time.
const DefaultHour = 10

// Resolver resolves date/time phrases relative to a clock.
type Resolver struct {
	loc         *time.Location
	now         func() time.Time
	defaultHour int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the reference clock.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithDefaultHour overrides the fallback time of day.
func WithDefaultHour(hour int) Option {
	return func(r *Resolver) {
		if hour >= 0 && hour < 24 {
			r.defaultHour = hour
		}
	}
}

// NewResolver creates a resolver pinned to loc.
func NewResolver(loc *time.Location, opts ...Option) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	r := &Resolver{
		loc:         loc,
		now:         time.Now,
		defaultHour: DefaultHour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the zone results are expressed in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Now returns the reference time in the resolver's zone.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.loc)
}

// StartOfDay returns local midnight of t's day.
func (r *Resolver) StartOfDay(t time.Time) time.Time {
	t = t.In(r.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.loc)
}

// EndOfDay returns the last second of t's local day.
func (r *Resolver) EndOfDay(t time.Time) time.Time {
	return r.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Second)
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Resolve converts text into a timestamp in the resolver's zone.
func (r *Resolver) Resolve(text string) (time.Time, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty phrase", core.ErrUnparseableDateTime)
	}

	lower := strings.ToLower(raw)
	hasAt := atToken.MatchString(lower)

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return r.applyDefaultTime(t.In(r.loc), hasAt), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, r.loc); err == nil {
			return r.applyDefaultTime(t, hasAt), nil
		}
	}

	s := " " + strings.NewReplacer(",", " ", ";", " ").Replace(lower) + " "
	now := r.Now()

	if d, ok := parseOffset(s); ok {
		return now.Add(d).Truncate(time.Minute), nil
	}

	part, hasPart := parseDayPart(s)
	date, rest, foundDate := r.parseDate(s, now)
	hour, minute, foundClock := parseClock(rest, part.pm)
	if !foundClock && hasPart {
		hour, minute, foundClock = part.hour, 0, true
	}

	if !foundDate && !foundClock {
		return time.Time{}, fmt.Errorf("%w: %q", core.ErrUnparseableDateTime, raw)
	}
	if !foundDate {
		date = r.StartOfDay(now)
	}

	t := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, r.loc)
	return r.applyDefaultTime(t, hasAt), nil
}

func (r *Resolver) applyDefaultTime(t time.Time, hasAt bool) time.Time {
	if hasAt || t.Hour() != 0 || t.Minute() != 0 {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), r.defaultHour, 0, 0, 0, r.loc)
}

// -----------------------------------------------------------------------------
// Date component
// -----------------------------------------------------------------------------

var (
	atToken = regexp.MustCompile(`\bat\b`)

	isoDateRe         = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe       = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)
	dayAfterTomorrowR = regexp.MustCompile(`\bday after tomorrow\b`)
	tomorrowRe        = regexp.MustCompile(`\btomorrow\b`)
	todayRe           = regexp.MustCompile(`\b(?:today|tonight)\b`)
	nextWeekRe        = regexp.MustCompile(`\bnext week\b`)
	nextMonthRe       = regexp.MustCompile(`\bnext month\b`)
	inDurationRe      = regexp.MustCompile(`\bin (\d+) (days?|weeks?|months?)\b`)
	weekdayRe         = regexp.MustCompile(`\b(?:(this|next|on)\s+)?(monday|mon|tuesday|tues|tue|wednesday|wed|thursday|thurs|thu|friday|fri|saturday|sat|sunday|sun)\b`)
	monthDayRe        *regexp.Regexp
	dayMonthRe        *regexp.Regexp
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

func init() {
	names := make([]string, 0, len(months))
	for name := range months {
		names = append(names, name)
	}
	// Longest first so "september" wins over "sep"
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	alt := strings.Join(names, "|")

	monthDayRe = regexp.MustCompile(`\b(` + alt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s+(\d{4}))?\b`)
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + alt + `)\.?(?:\s+(\d{4}))?\b`)
}

// parseDate finds the first date component in s. It returns the date at local
// midnight and s with the matched phrase removed.
func (r *Resolver) parseDate(s string, now time.Time) (time.Time, string, bool) {
	today := r.StartOfDay(now)
	cut := func(loc []int) string {
		return s[:loc[0]] + " " + s[loc[1]:]
	}

	if m := isoDateRe.FindStringSubmatchIndex(s); m != nil {
		y, _ := strconv.Atoi(s[m[2]:m[3]])
		mo, _ := strconv.Atoi(s[m[4]:m[5]])
		d, _ := strconv.Atoi(s[m[6]:m[7]])
		if t, ok := r.date(y, time.Month(mo), d); ok {
			return t, cut(m), true
		}
	}

	if m := slashDateRe.FindStringSubmatchIndex(s); m != nil {
		mo, _ := strconv.Atoi(s[m[2]:m[3]])
		d, _ := strconv.Atoi(s[m[4]:m[5]])
		if m[6] >= 0 {
			y, _ := strconv.Atoi(s[m[6]:m[7]])
			if t, ok := r.date(y, time.Month(mo), d); ok {
				return t, cut(m), true
			}
		} else if t, ok := r.nextDate(time.Month(mo), d, today); ok {
			return t, cut(m), true
		}
	}

	if m := dayAfterTomorrowR.FindStringIndex(s); m != nil {
		return today.AddDate(0, 0, 2), cut(m), true
	}
	if m := tomorrowRe.FindStringIndex(s); m != nil {
		return today.AddDate(0, 0, 1), cut(m), true
	}
	if m := todayRe.FindStringIndex(s); m != nil {
		return today, cut(m), true
	}
	if m := nextWeekRe.FindStringIndex(s); m != nil {
		return today.AddDate(0, 0, 7), cut(m), true
	}
	if m := nextMonthRe.FindStringIndex(s); m != nil {
		return today.AddDate(0, 1, 0), cut(m), true
	}

	if m := inDurationRe.FindStringSubmatchIndex(s); m != nil {
		n, _ := strconv.Atoi(s[m[2]:m[3]])
		switch unit := s[m[4]:m[5]]; {
		case strings.HasPrefix(unit, "month"):
			return today.AddDate(0, n, 0), cut(m), true
		case strings.HasPrefix(unit, "week"):
			return today.AddDate(0, 0, n*7), cut(m), true
		default:
			return today.AddDate(0, 0, n), cut(m), true
		}
	}

	if m := monthDayRe.FindStringSubmatchIndex(s); m != nil {
		if t, ok := r.calendarDate(s, m, 2, 4, 6, today); ok {
			return t, cut(m), true
		}
	}
	if m := dayMonthRe.FindStringSubmatchIndex(s); m != nil {
		if t, ok := r.calendarDate(s, m, 4, 2, 6, today); ok {
			return t, cut(m), true
		}
	}

	if m := weekdayRe.FindStringSubmatchIndex(s); m != nil {
		modifier := ""
		if m[2] >= 0 {
			modifier = s[m[2]:m[3]]
		}
		target := weekdays[s[m[4]:m[5]]]
		days := (int(target) - int(today.Weekday()) + 7) % 7
		if days == 0 && modifier != "this" {
			days = 7
		}
		return today.AddDate(0, 0, days), cut(m), true
	}

	return time.Time{}, s, false
}

// calendarDate builds a date from a month-name match. monthAt, dayAt and
// yearAt are submatch index offsets into m.
func (r *Resolver) calendarDate(s string, m []int, monthAt, dayAt, yearAt int, today time.Time) (time.Time, bool) {
	month := months[s[m[monthAt]:m[monthAt+1]]]
	day, _ := strconv.Atoi(s[m[dayAt]:m[dayAt+1]])

	if m[yearAt] >= 0 {
		year, _ := strconv.Atoi(s[m[yearAt]:m[yearAt+1]])
		return r.date(year, month, day)
	}
	return r.nextDate(month, day, today)
}

// nextDate is the first month/day on or after today.
func (r *Resolver) nextDate(month time.Month, day int, today time.Time) (time.Time, bool) {
	t, ok := r.date(today.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	if t.Before(today) {
		return r.date(today.Year()+1, month, day)
	}
	return t, true
}

// date validates y-m-d, rejecting overflow such as February 30.
func (r *Resolver) date(y int, m time.Month, d int) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, r.loc)
	if t.Month() != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// -----------------------------------------------------------------------------
// Clock component
// -----------------------------------------------------------------------------

var (
	noonRe     = regexp.MustCompile(`\bnoon\b`)
	midnightRe = regexp.MustCompile(`\bmidnight\b`)
	clock12Re  = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)`)
	clock24Re  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	atHourRe   = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	dayPartRe  = regexp.MustCompile(`\b(morning|afternoon|evening|tonight|night)\b`)
	offsetRe   = regexp.MustCompile(`\bin (\d+|an|a) (hours?|hrs?|minutes?|mins?)\b`)
)

// dayPart is the clock hint carried by words like "evening". Hours without
// am/pm that fall in a pm part are read as afternoon hours.
type dayPart struct {
	hour int
	pm   bool
}

var dayParts = map[string]dayPart{
	"morning":   {hour: 6},
	"afternoon": {hour: 13, pm: true},
	"evening":   {hour: 18, pm: true},
	"night":     {hour: 21, pm: true},
	"tonight":   {hour: 21, pm: true},
}

func parseDayPart(s string) (dayPart, bool) {
	m := dayPartRe.FindStringSubmatch(s)
	if m == nil {
		return dayPart{}, false
	}
	return dayParts[m[1]], true
}

// parseOffset reads "in N hours/minutes", which is relative to now rather
// than to a day.
func parseOffset(s string) (time.Duration, bool) {
	m := offsetRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n := 1
	if m[1] != "a" && m[1] != "an" {
		n, _ = strconv.Atoi(m[1])
	}
	if strings.HasPrefix(m[2], "h") {
		return time.Duration(n) * time.Hour, true
	}
	return time.Duration(n) * time.Minute, true
}

func parseClock(s string, pm bool) (hour, minute int, ok bool) {
	afternoon := func(h int) int {
		if pm && h >= 1 && h < 12 {
			return h + 12
		}
		return h
	}

	if noonRe.MatchString(s) {
		return 12, 0, true
	}
	if midnightRe.MatchString(s) {
		return 0, 0, true
	}

	if m := clock12Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
		}
		if h >= 1 && h <= 12 && min < 60 {
			pm := strings.HasPrefix(m[3], "p")
			switch {
			case pm && h != 12:
				h += 12
			case !pm && h == 12:
				h = 0
			}
			return h, min, true
		}
	}

	if m := clock24Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h < 24 && min < 60 {
			return afternoon(h), min, true
		}
	}

	if m := atHourRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h < 24 {
			return afternoon(h), 0, true
		}
	}

	return 0, 0, false
}
