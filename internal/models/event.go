package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventStatus enumerates the lifecycle states of a lesson event.
type EventStatus string

const (
	EventStatusPlanned     EventStatus = "planned"
	EventStatusTBC         EventStatus = "tbc"
	EventStatusCompleted   EventStatus = "completed"
	EventStatusUncompleted EventStatus = "uncompleted"
	EventStatusCancelled   EventStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusPlanned, EventStatusTBC, EventStatusCompleted, EventStatusUncompleted, EventStatusCancelled:
		return true
	}
	return false
}

// Student is one roster entry denormalized onto an event for statistics.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StudentRoster stores the roster as a JSON column.
type StudentRoster []Student

// Value implements driver.Valuer for JSONB storage.
func (r StudentRoster) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB storage.
func (r *StudentRoster) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("student roster: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, r)
}

// Event is one scheduled lesson occurrence for a teacher on the board day.
// Date is a local wall-clock timestamp with minute precision; all slot math
// operates on minutes of day, so zone conversion can never reorder a queue.
type Event struct {
	ID              string        `db:"id" json:"id"`
	LessonID        string        `db:"lesson_id" json:"lesson_id"`
	BookingID       string        `db:"booking_id" json:"booking_id"`
	TeacherID       string        `db:"teacher_id" json:"teacher_id"`
	Date            time.Time     `db:"date" json:"date"`
	Duration        int           `db:"duration" json:"duration"`
	Location        string        `db:"location" json:"location"`
	Status          EventStatus   `db:"status" json:"status"`
	Students        StudentRoster `db:"students" json:"students"`
	PricePerStudent float64       `db:"price_per_student" json:"price_per_student"`
	CommissionRate  float64       `db:"commission_rate" json:"commission_rate"`
	PackageDuration int           `db:"package_duration" json:"package_duration"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// End returns the event's end time.
func (e *Event) End() time.Time {
	return e.Date.Add(time.Duration(e.Duration) * time.Minute)
}

// StartMinutes returns the start expressed as minutes from midnight.
func (e *Event) StartMinutes() int {
	return e.Date.Hour()*60 + e.Date.Minute()
}

// EventFilter describes query params for listing events.
type EventFilter struct {
	TeacherID string
	Date      time.Time
	Status    EventStatus
}

// EventPatch carries a partial in-place update for an event. Nil fields are
// left untouched.
type EventPatch struct {
	Date     *time.Time
	Duration *int
	Location *string
	Status   *EventStatus
}

// Reschedule is one entry of a bulk timing change, produced by gap
// optimization and consumed by the bulk update endpoint.
type Reschedule struct {
	ID       string    `db:"id" json:"id"`
	NewDate  time.Time `db:"date" json:"new_date"`
	Duration int       `db:"duration" json:"duration"`
}
