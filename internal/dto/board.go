package dto

import (
	"fmt"
	"time"

	"github.com/vctrubio/adrenalink-sub005/internal/board"
	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

// WallClockLayout is the wire format for event timestamps: local wall clock
// with minute precision, no zone.
const WallClockLayout = "2006-01-02T15:04"

// ParseWallClock parses a wire timestamp, tolerating a seconds component.
func ParseWallClock(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation(WallClockLayout, raw, time.Local); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse wall clock %q: %w", raw, err)
	}
	return t, nil
}

// CreateEventRequest stages and persists a new lesson event.
type CreateEventRequest struct {
	TeacherID       string           `json:"teacher_id" validate:"required"`
	LessonID        string           `json:"lesson_id" validate:"required"`
	BookingID       string           `json:"booking_id"`
	Date            string           `json:"date" validate:"required"`
	Duration        int              `json:"duration" validate:"gt=0"`
	Location        string           `json:"location"`
	Students        []models.Student `json:"students"`
	PricePerStudent float64          `json:"price_per_student" validate:"gte=0"`
	CommissionRate  float64          `json:"commission_rate" validate:"gte=0,lte=1"`
	PackageDuration int              `json:"package_duration" validate:"gte=0"`
}

// UpdateEventRequest carries a partial edit; nil fields stay untouched.
type UpdateEventRequest struct {
	Date     *string             `json:"date"`
	Duration *int                `json:"duration" validate:"omitempty,gt=0"`
	Location *string             `json:"location"`
	Status   *models.EventStatus `json:"status"`
}

// OptimiseRequest triggers gap packing on one teacher's queue.
type OptimiseRequest struct {
	TeacherID   string `json:"teacher_id" validate:"required"`
	FromMinutes *int   `json:"from_minutes" validate:"omitempty,gte=0,lt=1440"`
	GapMinutes  *int   `json:"gap_minutes" validate:"omitempty,gte=0"`
}

// NextSlotRequest asks where a new event could be placed.
type NextSlotRequest struct {
	TeacherID  string `json:"teacher_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Duration   int    `json:"duration" validate:"gt=0"`
	GapMinutes *int   `json:"gap_minutes" validate:"omitempty,gte=0"`
}

// NextSlotResponse reports the found slot; Available is false on a full day.
type NextSlotResponse struct {
	Available bool   `json:"available"`
	Date      string `json:"date,omitempty"`
}

// AdjustDraftRequest sets session draft values. Minutes of -1 leaves the
// draft time alone.
type AdjustDraftRequest struct {
	Minutes  *int    `json:"minutes" validate:"omitempty,gte=0,lt=1440"`
	Location *string `json:"location"`
}

// LockRequest pushes a draft into the pending queues.
type LockRequest struct {
	Minutes  *int    `json:"minutes" validate:"omitempty,gte=0,lt=1440"`
	Location *string `json:"location"`
}

// TeacherBoardResponse is one queue's read view.
type TeacherBoardResponse struct {
	TeacherID      string          `json:"teacher_id"`
	Day            string          `json:"day"`
	Version        uint64          `json:"version"`
	Optimised      bool            `json:"optimised"`
	Events         []EventResponse `json:"events"`
	PendingCreates []string        `json:"pending_creates,omitempty"`
	PendingDeletes []string        `json:"pending_deletes,omitempty"`
}

// EventResponse is the wire shape of one event.
type EventResponse struct {
	ID              string             `json:"id"`
	LessonID        string             `json:"lesson_id"`
	BookingID       string             `json:"booking_id,omitempty"`
	Date            string             `json:"date"`
	Duration        int                `json:"duration"`
	Location        string             `json:"location"`
	Status          models.EventStatus `json:"status"`
	Students        []models.Student   `json:"students,omitempty"`
	PricePerStudent float64            `json:"price_per_student,omitempty"`
	PackageDuration int                `json:"package_duration,omitempty"`
}

// NewEventResponse converts a domain event to the wire shape.
func NewEventResponse(ev *models.Event) EventResponse {
	return EventResponse{
		ID:              ev.ID,
		LessonID:        ev.LessonID,
		BookingID:       ev.BookingID,
		Date:            ev.Date.Format(WallClockLayout),
		Duration:        ev.Duration,
		Location:        ev.Location,
		Status:          ev.Status,
		Students:        ev.Students,
		PricePerStudent: ev.PricePerStudent,
		PackageDuration: ev.PackageDuration,
	}
}

// OptimiseResponse reports the applied batch and the ids that ran out of day.
type OptimiseResponse struct {
	Applied int      `json:"applied"`
	Skipped []string `json:"skipped"`
}

// SessionStateResponse is the adjustment session's live view.
type SessionStateResponse struct {
	Active        bool                           `json:"active"`
	DraftMinutes  int                            `json:"draft_minutes"`
	DraftLocation string                         `json:"draft_location"`
	Sync          board.SyncState                `json:"sync"`
	Mutations     map[string]board.EventMutation `json:"mutations"`
}
