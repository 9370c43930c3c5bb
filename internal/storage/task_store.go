package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
)

// TaskStore is a backend.TaskStore kept in SQLite. Tasks list in insertion
// order.
type TaskStore struct {
	db  *DB
	loc *time.Location
}

var _ backend.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a task store returning due times in loc.
func NewTaskStore(db *DB, loc *time.Location) *TaskStore {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskStore{db: db, loc: loc}
}

const taskColumns = `id, title, notes, due_at, status`

// ListTasks returns the tasks passing f.
func (s *TaskStore) ListTasks(ctx context.Context, f backend.TaskFilter) ([]core.Task, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY seq`)
	if err != nil {
		return nil, unavailable("list tasks", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		t, err := s.scanTask(rows)
		if err != nil {
			return nil, unavailable("scan task", err)
		}
		if f.Matches(*t) {
			tasks = append(tasks, *t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list tasks", err)
	}
	return tasks, nil
}

// CreateTask inserts a task. An empty status means needsAction.
func (s *TaskStore) CreateTask(ctx context.Context, spec backend.TaskSpec) (*core.Task, error) {
	status := spec.Status
	if status == "" {
		status = core.TaskNeedsAction
	}

	id := uuid.New().String()
	now := time.Now().Unix()
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO tasks (id, title, notes, due_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, spec.Title, spec.Notes, dueOrNull(spec.Due), string(status), now, now)
	if err != nil {
		return nil, unavailable("insert task", err)
	}

	return s.GetTask(ctx, id)
}

// GetTask returns core.ErrTaskNotFound for unknown ids.
func (s *TaskStore) GetTask(ctx context.Context, id string) (*core.Task, error) {
	row := s.db.conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := s.scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, unavailable("get task", err)
	}
	return t, nil
}

// UpdateTask applies patch to an existing task.
func (s *TaskStore) UpdateTask(ctx context.Context, id string, patch backend.TaskPatch) (*core.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	t := patch.Apply(*current)

	_, err = s.db.conn.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?,
			notes = ?,
			due_at = ?,
			status = ?,
			updated_at = ?
		WHERE id = ?
	`, t.Title, t.Notes, dueOrNull(t.Due), string(t.Status), time.Now().Unix(), id)
	if err != nil {
		return nil, unavailable("update task", err)
	}

	return s.GetTask(ctx, id)
}

// DeleteTask removes a task; core.ErrTaskNotFound if there was none.
func (s *TaskStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return unavailable("delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete task", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrTaskNotFound, id)
	}
	return nil
}

func (s *TaskStore) scanTask(sc scanner) (*core.Task, error) {
	var t core.Task
	var due sql.NullInt64
	var status string

	if err := sc.Scan(&t.ID, &t.Title, &t.Notes, &due, &status); err != nil {
		return nil, err
	}
	if due.Valid {
		t.Due = time.Unix(due.Int64, 0).In(s.loc)
	}
	t.Status = core.TaskStatus(status)
	return &t, nil
}

func dueOrNull(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
