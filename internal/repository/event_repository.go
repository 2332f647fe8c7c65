package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

const eventColumns = "id, lesson_id, booking_id, teacher_id, date, duration, location, status, students, price_per_student, commission_rate, package_duration, created_at, updated_at"

// Instrumenter receives query timings and cache hit/miss counts from the
// repositories. Wiring one up is optional.
type Instrumenter interface {
	RecordCacheOperation(hit bool)
	ObserveDBQuery(label string, duration time.Duration)
}

// EventRepository provides persistence for lesson events. It is the
// authoritative store the board reconciles against.
type EventRepository struct {
	db      *sqlx.DB
	metrics Instrumenter
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// WithMetrics attaches query instrumentation and returns the repository.
func (r *EventRepository) WithMetrics(m Instrumenter) *EventRepository {
	r.metrics = m
	return r
}

func (r *EventRepository) observe(label string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

// ListByTeacherAndDate returns the daily snapshot for one teacher ordered by
// start time. This is the payload fed into queue reconciliation.
func (r *EventRepository) ListByTeacherAndDate(ctx context.Context, teacherID string, day time.Time) ([]models.Event, error) {
	defer r.observe("events_list_by_teacher_date", time.Now())
	query := fmt.Sprintf(`SELECT %s FROM events WHERE teacher_id = $1 AND date >= $2 AND date < $3 ORDER BY date ASC`, eventColumns)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, teacherID, start, end); err != nil {
		return nil, fmt.Errorf("list events by teacher and date: %w", err)
	}
	return events, nil
}

// ListTeachersForDate returns the teacher ids holding at least one event on
// the given day. The poller uses this to discover queues.
func (r *EventRepository) ListTeachersForDate(ctx context.Context, day time.Time) ([]string, error) {
	defer r.observe("events_list_teachers", time.Now())
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var teachers []string
	query := `SELECT DISTINCT teacher_id FROM events WHERE date >= $1 AND date < $2 ORDER BY teacher_id ASC`
	if err := r.db.SelectContext(ctx, &teachers, query, start, end); err != nil {
		return nil, fmt.Errorf("list teachers for date: %w", err)
	}
	return teachers, nil
}

// FindByID loads one event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	defer r.observe("events_find_by_id", time.Now())
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	var ev models.Event
	if err := r.db.GetContext(ctx, &ev, query, id); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create stores a new event, assigning an id when the caller has none. The
// written record is returned through the same pointer so optimistic
// placeholders can adopt the canonical row.
func (r *EventRepository) Create(ctx context.Context, ev *models.Event) error {
	defer r.observe("events_create", time.Now())
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now

	const query = `INSERT INTO events (id, lesson_id, booking_id, teacher_id, date, duration, location, status, students, price_per_student, commission_rate, package_duration, created_at, updated_at)
		VALUES (:id, :lesson_id, :booking_id, :teacher_id, :date, :duration, :location, :status, :students, :price_per_student, :commission_rate, :package_duration, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of an event.
func (r *EventRepository) Update(ctx context.Context, ev *models.Event) error {
	defer r.observe("events_update", time.Now())
	ev.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET date = :date, duration = :duration, location = :location, status = :status, students = :students, price_per_student = :price_per_student, commission_rate = :commission_rate, package_duration = :package_duration, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, ev)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireRow(result)
}

// UpdateStatus flips just the status column.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	defer r.observe("events_update_status", time.Now())
	result, err := r.db.ExecContext(ctx, `UPDATE events SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	return requireRow(result)
}

// Delete removes an event by id.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	defer r.observe("events_delete", time.Now())
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireRow(result)
}

// BulkReschedule applies a gap-optimization batch in one transaction. The
// batch is exactly the update list a SlotPlan produces.
func (r *EventRepository) BulkReschedule(ctx context.Context, updates []models.Reschedule) error {
	defer r.observe("events_bulk_reschedule", time.Now())
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk reschedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, update := range updates {
		if _, err = tx.ExecContext(ctx, `UPDATE events SET date = $1, duration = $2, updated_at = $3 WHERE id = $4`, update.NewDate, update.Duration, now, update.ID); err != nil {
			err = fmt.Errorf("bulk reschedule event %s: %w", update.ID, err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk reschedule: %w", err)
	}
	return nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return nil //nolint:nilerr // drivers without RowsAffected support
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
