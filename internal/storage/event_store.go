package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// LocalEventLinkPrefix prefixes the link of events held by the local backend.
const LocalEventLinkPrefix = "smartscheduler://event/"

// EventStore is a backend.EventStore kept in SQLite.
type EventStore struct {
	db  *DB
	loc *time.Location
	log *logging.Logger
}

var _ backend.EventStore = (*EventStore)(nil)

// NewEventStore creates an event store returning times in loc.
func NewEventStore(db *DB, loc *time.Location) *EventStore {
	if loc == nil {
		loc = time.UTC
	}
	return &EventStore{db: db, loc: loc, log: logging.WithField("store", "local-events")}
}

const eventColumns = `id, summary, description, start_at, end_at, attendees, conference_id, join_url`

// ListEvents returns events starting inside the query window.
func (s *EventStore) ListEvents(ctx context.Context, q backend.EventQuery) ([]core.CalendarEvent, error) {
	var conds []string
	var args []interface{}
	if !q.TimeMin.IsZero() {
		conds = append(conds, "start_at >= ?")
		args = append(args, q.TimeMin.Unix())
	}
	if !q.TimeMax.IsZero() {
		conds = append(conds, "start_at <= ?")
		args = append(args, q.TimeMax.Unix())
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	if q.OrderByStart {
		query += ` ORDER BY start_at, seq`
	} else {
		query += ` ORDER BY seq`
	}

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list events", err)
	}
	defer rows.Close()

	var events []core.CalendarEvent
	for rows.Next() {
		e, err := s.scanEvent(rows)
		if err != nil {
			return nil, unavailable("scan event", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list events", err)
	}
	return events, nil
}

// CreateEvent inserts a new event. A conference request is recorded but the
// local backend has no join URL to offer.
func (s *EventStore) CreateEvent(ctx context.Context, spec backend.EventSpec) (*core.CalendarEvent, error) {
	attendees, err := json.Marshal(nonNil(spec.Attendees))
	if err != nil {
		return nil, fmt.Errorf("encode attendees: %w", err)
	}

	id := uuid.New().String()
	var conferenceID string
	if spec.Conference {
		conferenceID = uuid.New().String()
	}

	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO events (
			id, summary, description, start_at, end_at, attendees,
			conference_id, join_url, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, '', ?)
	`,
		id,
		spec.Summary,
		spec.Description,
		spec.Start.Unix(),
		spec.End.Unix(),
		string(attendees),
		conferenceID,
		time.Now().Unix(),
	)
	if err != nil {
		return nil, unavailable("insert event", err)
	}

	return s.getEvent(ctx, id)
}

// UpdateEvent applies patch to an existing event.
func (s *EventStore) UpdateEvent(ctx context.Context, id string, patch backend.EventPatch) (*core.CalendarEvent, error) {
	e, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Summary != nil {
		e.Summary = *patch.Summary
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.Start != nil {
		e.Start = *patch.Start
	}
	if patch.End != nil {
		e.End = *patch.End
	}
	if patch.Attendees != nil {
		e.Attendees = patch.Attendees
	}

	attendees, err := json.Marshal(nonNil(e.Attendees))
	if err != nil {
		return nil, fmt.Errorf("encode attendees: %w", err)
	}

	_, err = s.db.conn.ExecContext(ctx, `
		UPDATE events SET
			summary = ?,
			description = ?,
			start_at = ?,
			end_at = ?,
			attendees = ?
		WHERE id = ?
	`, e.Summary, e.Description, e.Start.Unix(), e.End.Unix(), string(attendees), id)
	if err != nil {
		return nil, unavailable("update event", err)
	}

	return s.getEvent(ctx, id)
}

// DeleteEvent removes an event. Deleting an unknown id is logged, not an error.
func (s *EventStore) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return unavailable("delete event", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.log.WithField("event_id", id).Warn("event already deleted")
	}
	return nil
}

func (s *EventStore) getEvent(ctx context.Context, id string) (*core.CalendarEvent, error) {
	row := s.db.conn.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := s.scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	if err != nil {
		return nil, unavailable("get event", err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *EventStore) scanEvent(sc scanner) (*core.CalendarEvent, error) {
	var e core.CalendarEvent
	var start, end int64
	var attendees, conferenceID, joinURL string

	if err := sc.Scan(&e.ID, &e.Summary, &e.Description, &start, &end, &attendees, &conferenceID, &joinURL); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(attendees), &e.Attendees); err != nil {
		return nil, fmt.Errorf("decode attendees: %w", err)
	}
	e.Start = time.Unix(start, 0).In(s.loc)
	e.End = time.Unix(end, 0).In(s.loc)
	e.Link = LocalEventLinkPrefix + e.ID
	if conferenceID != "" {
		e.Conference = &core.Conference{RequestID: conferenceID, JoinURL: joinURL}
	}
	return &e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
