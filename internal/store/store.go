// Package store persists tasks, routine definitions and per-occurrence
// override records in a local SQLite database. It is the concrete
// implementation of the collaborator contracts the schedule engine is
// written against; the engine itself never touches SQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"famcal/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	completed      INTEGER NOT NULL DEFAULT 0,
	scheduled_for  TEXT,
	is_all_day     INTEGER NOT NULL DEFAULT 0,
	deferred_until TEXT,
	category       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS routines (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	pattern          TEXT NOT NULL,
	time_of_day      TEXT NOT NULL DEFAULT '',
	assigned_to      TEXT NOT NULL DEFAULT '',
	show_on_timeline INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS instances (
	entity_type  TEXT NOT NULL,
	entity_id    TEXT NOT NULL,
	date         TEXT NOT NULL,
	instance_key TEXT NOT NULL,
	status       TEXT NOT NULL,
	deferred_to  TEXT,
	PRIMARY KEY (entity_type, entity_id, date)
);

CREATE INDEX IF NOT EXISTS idx_instances_deferred_day
	ON instances (substr(deferred_to, 1, 10));
`

// Store is a SQLite-backed implementation of every persistence
// collaborator the engine and the HTTP layer consume.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: database path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The pure-Go driver serializes writes anyway; a single connection
	// avoids SQLITE_BUSY under concurrent HTTP handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- tasks ----

// CreateTask inserts the task, assigning a fresh id when none is set, and
// returns the stored value.
func (s *Store) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, completed, scheduled_for, is_all_day, deferred_until, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, boolInt(t.Completed), timePtrText(t.ScheduledFor),
		boolInt(t.IsAllDay), datePtrText(t.DeferredUntil), t.Category)
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// ListTasks returns every task, ordered by id for deterministic output.
func (s *Store) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, completed, scheduled_for, is_all_day, deferred_until, category
		FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var (
			t             model.Task
			completed     int
			allDay        int
			scheduledFor  sql.NullString
			deferredUntil sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &completed, &scheduledFor, &allDay, &deferredUntil, &t.Category); err != nil {
			return nil, err
		}
		t.Completed = completed != 0
		t.IsAllDay = allDay != 0
		if t.ScheduledFor, err = parseTimeText(scheduledFor); err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
		if t.DeferredUntil, err = parseDateText(deferredUntil); err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetTaskCompleted flips the task's own completed flag.
func (s *Store) SetTaskCompleted(ctx context.Context, id string, completed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = ? WHERE id = ?`, boolInt(completed), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("store: no task with id %q", id)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// ---- routines ----

// CreateRoutine inserts the routine definition, assigning a fresh id when
// none is set. The recurrence pattern is stored as JSON.
func (s *Store) CreateRoutine(ctx context.Context, r model.RoutineDefinition) (model.RoutineDefinition, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	pattern, err := json.Marshal(r.Pattern)
	if err != nil {
		return model.RoutineDefinition{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO routines (id, name, pattern, time_of_day, assigned_to, show_on_timeline)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, string(pattern), r.TimeOfDay, r.AssignedTo, boolInt(r.ShowOnTimeline))
	if err != nil {
		return model.RoutineDefinition{}, err
	}
	return r, nil
}

// ListRoutineDefinitions returns every routine, ordered by id. A routine
// whose stored pattern no longer parses is returned with a zero pattern;
// the resolver excludes it with a warning rather than failing the read.
func (s *Store) ListRoutineDefinitions(ctx context.Context) ([]model.RoutineDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, pattern, time_of_day, assigned_to, show_on_timeline
		FROM routines ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routines := make([]model.RoutineDefinition, 0)
	for rows.Next() {
		var (
			r       model.RoutineDefinition
			pattern string
			show    int
		)
		if err := rows.Scan(&r.ID, &r.Name, &pattern, &r.TimeOfDay, &r.AssignedTo, &show); err != nil {
			return nil, err
		}
		r.ShowOnTimeline = show != 0
		if err := json.Unmarshal([]byte(pattern), &r.Pattern); err != nil {
			r.Pattern = model.RecurrencePattern{}
		}
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

func (s *Store) DeleteRoutine(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM routines WHERE id = ?`, id)
	return err
}

// ---- instances ----

// UpsertInstance writes an override record, replacing any existing record
// for the same (entity type, entity id, date) key. The persisted
// instance_key column keeps the historical "entityId_YYYY-MM-DD" form.
func (s *Store) UpsertInstance(ctx context.Context, in model.ActionableInstance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instances (entity_type, entity_id, date, instance_key, status, deferred_to)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id, date) DO UPDATE SET
			instance_key = excluded.instance_key,
			status       = excluded.status,
			deferred_to  = excluded.deferred_to`,
		string(in.EntityType), in.EntityID, in.Date.String(),
		model.EncodeInstanceKey(in.EntityID, in.Date),
		string(in.Status), timePtrText(in.DeferredTo))
	return err
}

// ListInstancesForDate returns the override records a day's resolution
// needs: records whose own date is d, plus records on other days whose
// deferral target lands on d. One query serves both indexes.
func (s *Store) ListInstancesForDate(ctx context.Context, d model.Date) ([]model.ActionableInstance, error) {
	day := d.String()
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, entity_id, date, status, deferred_to
		FROM instances
		WHERE date = ? OR substr(deferred_to, 1, 10) = ?
		ORDER BY entity_type, entity_id, date`, day, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	instances := make([]model.ActionableInstance, 0)
	for rows.Next() {
		var (
			in         model.ActionableInstance
			entityType string
			date       string
			status     string
			deferredTo sql.NullString
		)
		if err := rows.Scan(&entityType, &in.EntityID, &date, &status, &deferredTo); err != nil {
			return nil, err
		}
		in.EntityType = model.EntityType(entityType)
		in.Status = model.InstanceStatus(status)
		if in.Date, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("instance %s: %w", in.EntityID, err)
		}
		if in.DeferredTo, err = parseTimeText(deferredTo); err != nil {
			return nil, fmt.Errorf("instance %s: %w", in.EntityID, err)
		}
		instances = append(instances, in)
	}
	return instances, rows.Err()
}

// ---- column codecs ----

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timePtrText(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func datePtrText(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseTimeText(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDateText(s sql.NullString) (*model.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
