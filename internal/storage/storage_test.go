package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smartscheduler/smartscheduler/internal/backend"
	"github.com/smartscheduler/smartscheduler/internal/core"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// testDB creates an in-memory database for testing
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

// =============================================================================
// DB Tests
// =============================================================================

func TestDB_Open_InMemory(t *testing.T) {
	db, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.conn == nil {
		t.Error("db.conn should not be nil")
	}
	if !db.isMemory {
		t.Error("db.isMemory should be true for in-memory database")
	}
}

func TestDB_Open_File(t *testing.T) {
	path := t.TempDir() + "/nested/test.db"

	db, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.isMemory {
		t.Error("db.isMemory should be false for file database")
	}
	if db.path != path {
		t.Errorf("db.path = %v, want %v", db.path, path)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
}

func TestDB_MigrateIdempotent(t *testing.T) {
	db := testDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var count int
	if err := db.Conn().QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("applied migrations = %d, want 1", count)
	}
}

func TestDB_Transaction_RollsBack(t *testing.T) {
	db := testDB(t)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO tasks (id, title, created_at, updated_at) VALUES ('x', 't', 0, 0)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}

	var count int
	db.Conn().QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count)
	if count != 0 {
		t.Errorf("rolled back insert is visible: %d rows", count)
	}
}

// =============================================================================
// Credential Store Tests
// =============================================================================

func TestCredentialStore_PlainRoundTrip(t *testing.T) {
	db := testDB(t)
	store := NewCredentialStore(db, "")

	data, err := store.Get("google")
	if err != nil || data != nil {
		t.Fatalf("Get(empty) = %v, %v, want nil nil", data, err)
	}

	expires := time.Now().Add(time.Hour)
	if err := store.Store("google", "Bearer", []byte(`{"access_token":"a"}`), &expires); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := store.Store("google", "Bearer", []byte(`{"access_token":"b"}`), nil); err != nil {
		t.Fatalf("Store() overwrite error = %v", err)
	}

	data, err = store.Get("google")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"access_token":"b"}` {
		t.Errorf("Get() = %s, want the latest token", data)
	}

	rec, err := store.GetRecord("google")
	if err != nil || rec == nil {
		t.Fatalf("GetRecord() = %v, %v", rec, err)
	}
	if rec.Encrypted || rec.TokenType != "Bearer" || rec.ExpiresAt != nil {
		t.Errorf("record = %+v", rec)
	}

	exists, _ := store.Exists("google")
	if !exists {
		t.Error("Exists() = false after Store")
	}
	if err := store.Delete("google"); err != nil {
		t.Fatal(err)
	}
	exists, _ = store.Exists("google")
	if exists {
		t.Error("Exists() = true after Delete")
	}
}

func TestCredentialStore_Encrypted(t *testing.T) {
	db := testDB(t)
	secret := []byte(`{"refresh_token":"very-secret"}`)

	store := NewCredentialStore(db, "correct horse")
	if err := store.Store("google", "Bearer", secret, nil); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	var raw []byte
	if err := db.Conn().QueryRow(`SELECT data FROM credentials WHERE provider = 'google'`).Scan(&raw); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("very-secret")) {
		t.Error("token stored in the clear")
	}

	got, err := store.Get("google")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Errorf("Get() = %s, want %s", got, secret)
	}

	if _, err := NewCredentialStore(db, "wrong").Get("google"); !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("wrong passphrase error = %v, want ErrNotAuthorized", err)
	}
	if _, err := NewCredentialStore(db, "").Get("google"); !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("missing passphrase error = %v, want ErrNotAuthorized", err)
	}
}

// =============================================================================
// Event Store Tests
// =============================================================================

func TestEventStore_CreateAndList(t *testing.T) {
	db := testDB(t)
	loc := kolkata(t)
	store := NewEventStore(db, loc)
	ctx := context.Background()

	base := time.Date(2026, time.October, 20, 10, 0, 0, 0, loc)
	later, err := store.CreateEvent(ctx, backend.EventSpec{
		Summary:    "Later",
		Start:      base.Add(48 * time.Hour),
		End:        base.Add(49 * time.Hour),
		Attendees:  []string{"a@acme.io"},
		Conference: true,
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if later.Conference == nil || later.Conference.RequestID == "" {
		t.Error("conference request not recorded")
	}
	if later.Link != LocalEventLinkPrefix+later.ID {
		t.Errorf("Link = %q", later.Link)
	}

	if _, err := store.CreateEvent(ctx, backend.EventSpec{Summary: "Sooner", Start: base, End: base.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateEvent(ctx, backend.EventSpec{Summary: "Past", Start: base.Add(-72 * time.Hour), End: base.Add(-71 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	events, err := store.ListEvents(ctx, backend.EventQuery{TimeMin: base.Add(-time.Hour), OrderByStart: true})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 || events[0].Summary != "Sooner" || events[1].Summary != "Later" {
		t.Fatalf("ListEvents() = %+v, want Sooner then Later", events)
	}
	if !events[1].Start.Equal(base.Add(48*time.Hour)) || events[1].Start.Location() != loc {
		t.Errorf("Start = %v", events[1].Start)
	}
	if !events[1].HasAttendee("A@acme.io") {
		t.Errorf("Attendees = %v", events[1].Attendees)
	}
	if events[0].Attendees == nil || len(events[0].Attendees) != 0 {
		t.Errorf("empty attendees should decode to an empty list, got %#v", events[0].Attendees)
	}

	bounded, err := store.ListEvents(ctx, backend.EventQuery{
		TimeMin: base.Add(-time.Hour),
		TimeMax: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(bounded) != 1 || bounded[0].Summary != "Sooner" {
		t.Errorf("bounded ListEvents() = %+v", bounded)
	}
}

func TestEventStore_UpdateAndDelete(t *testing.T) {
	db := testDB(t)
	store := NewEventStore(db, time.UTC)
	ctx := context.Background()

	start := time.Date(2026, time.October, 20, 10, 0, 0, 0, time.UTC)
	e, err := store.CreateEvent(ctx, backend.EventSpec{Summary: "Sync", Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}

	summary := "Weekly sync"
	newStart := start.Add(24 * time.Hour)
	updated, err := store.UpdateEvent(ctx, e.ID, backend.EventPatch{Summary: &summary, Start: &newStart})
	if err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	if updated.Summary != summary || !updated.Start.Equal(newStart) || !updated.End.Equal(start.Add(time.Hour)) {
		t.Errorf("UpdateEvent() = %+v", updated)
	}

	if _, err := store.UpdateEvent(ctx, "missing", backend.EventPatch{Summary: &summary}); !errors.Is(err, core.ErrEventNotFound) {
		t.Errorf("UpdateEvent(missing) error = %v, want ErrEventNotFound", err)
	}

	if err := store.DeleteEvent(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	var logs bytes.Buffer
	store.log = logging.New(&logs, logging.WARN)
	if err := store.DeleteEvent(ctx, e.ID); err != nil {
		t.Errorf("second DeleteEvent() error = %v, want idempotent", err)
	}
	if !strings.Contains(logs.String(), "[WARN] event already deleted") || !strings.Contains(logs.String(), "event_id="+e.ID) {
		t.Errorf("unknown id not logged: %q", logs.String())
	}

	events, _ := store.ListEvents(ctx, backend.EventQuery{})
	if len(events) != 0 {
		t.Errorf("events after delete = %+v", events)
	}
}

func TestEventStore_ClosedDBIsUnavailable(t *testing.T) {
	db := testDB(t)
	store := NewEventStore(db, time.UTC)
	db.Close()

	_, err := store.ListEvents(context.Background(), backend.EventQuery{})
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Errorf("ListEvents() on closed db error = %v, want ErrStoreUnavailable", err)
	}
}

// =============================================================================
// Task Store Tests
// =============================================================================

func TestTaskStore_Lifecycle(t *testing.T) {
	db := testDB(t)
	loc := kolkata(t)
	store := NewTaskStore(db, loc)
	ctx := context.Background()

	due := time.Date(2026, time.October, 23, 10, 0, 0, 0, loc)
	task, err := store.CreateTask(ctx, backend.TaskSpec{Title: "Submit report", Due: due})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Status != core.TaskNeedsAction {
		t.Errorf("Status = %q, want needsAction", task.Status)
	}
	if !task.Due.Equal(due) || task.Due.Location() != loc {
		t.Errorf("Due = %v, want %v", task.Due, due)
	}

	undated, err := store.CreateTask(ctx, backend.TaskSpec{Title: "Someday"})
	if err != nil {
		t.Fatal(err)
	}
	if undated.HasDue() {
		t.Errorf("undated task has due %v", undated.Due)
	}

	status := core.TaskCompleted
	done, err := store.UpdateTask(ctx, task.ID, backend.TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if done.Status != core.TaskCompleted || done.Title != "Submit report" || !done.Due.Equal(due) {
		t.Errorf("UpdateTask() = %+v", done)
	}

	pending, err := store.ListTasks(ctx, backend.TaskFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != undated.ID {
		t.Errorf("pending tasks = %+v", pending)
	}

	all, _ := store.ListTasks(ctx, backend.TaskFilter{ShowCompleted: true})
	if len(all) != 2 || all[0].ID != task.ID {
		t.Errorf("all tasks = %+v, want insertion order", all)
	}

	if err := store.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if _, err := store.GetTask(ctx, task.ID); !errors.Is(err, core.ErrTaskNotFound) {
		t.Errorf("GetTask(deleted) error = %v, want ErrTaskNotFound", err)
	}
	if err := store.DeleteTask(ctx, task.ID); !errors.Is(err, core.ErrTaskNotFound) {
		t.Errorf("DeleteTask(deleted) error = %v, want ErrTaskNotFound", err)
	}
	if _, err := store.UpdateTask(ctx, "missing", backend.TaskPatch{Status: &status}); !errors.Is(err, core.ErrTaskNotFound) {
		t.Errorf("UpdateTask(missing) error = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskStore_DueBeforeFilter(t *testing.T) {
	db := testDB(t)
	store := NewTaskStore(db, time.UTC)
	ctx := context.Background()

	today := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)
	endOfDay := today.Add(24*time.Hour - time.Second)

	for _, spec := range []backend.TaskSpec{
		{Title: "overdue", Due: today.AddDate(0, 0, -1)},
		{Title: "today", Due: today.Add(10 * time.Hour)},
		{Title: "tomorrow", Due: today.AddDate(0, 0, 1)},
		{Title: "no date"},
		{Title: "done today", Due: today.Add(9 * time.Hour), Status: core.TaskCompleted},
	} {
		if _, err := store.CreateTask(ctx, spec); err != nil {
			t.Fatal(err)
		}
	}

	tasks, err := store.ListTasks(ctx, backend.TaskFilter{DueBefore: endOfDay})
	if err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	if len(titles) != 2 || titles[0] != "overdue" || titles[1] != "today" {
		t.Errorf("due before end of day = %v, want [overdue today]", titles)
	}
}
