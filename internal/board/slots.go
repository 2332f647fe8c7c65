package board

import (
	"time"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

// SlotPlan is the output of gap optimization: the batch of timing changes to
// send to the store, plus the ids that could not be placed before the end of
// the day. Running out of day is a reported outcome, never an error.
type SlotPlan struct {
	Updates []models.Reschedule `json:"updates"`
	Skipped []string            `json:"skipped"`
}

// IsOptimised reports whether every adjacent pair of visible events is
// separated by exactly gap minutes. Queues of zero or one events are
// vacuously optimised.
func (q *TeacherQueue) IsOptimised(gap int) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	visible := q.eventsLocked(EventsOptions{})
	for i := 0; i < len(visible)-1; i++ {
		end := visible[i].StartMinutes() + visible[i].Duration
		if visible[i+1].StartMinutes()-end != gap {
			return false
		}
	}
	return true
}

// OptimiseFrom packs events back-to-back starting at startMinutes, separated
// by gap minutes. Only events whose current start is at or after startMinutes
// are touched; everything earlier stays where it is, which makes the
// operation safe for closing a hole in the middle of the day. Events whose
// computed slot would reach or cross midnight land in Skipped. No-op moves
// are suppressed from the update batch.
func (q *TeacherQueue) OptimiseFrom(startMinutes, gap int) SlotPlan {
	q.mu.RLock()
	defer q.mu.RUnlock()

	plan := SlotPlan{Updates: []models.Reschedule{}, Skipped: []string{}}
	next := startMinutes
	for _, ev := range q.eventsLocked(EventsOptions{}) {
		if ev.StartMinutes() < startMinutes {
			continue
		}
		if next >= minutesPerDay {
			plan.Skipped = append(plan.Skipped, ev.ID)
			continue
		}
		if ev.StartMinutes() != next {
			plan.Updates = append(plan.Updates, models.Reschedule{
				ID:       ev.ID,
				NewDate:  atMinutes(q.day, next),
				Duration: ev.Duration,
			})
		}
		next += ev.Duration + gap
	}
	return plan
}

// Optimise compresses the whole day while keeping the first lesson fixed.
func (q *TeacherQueue) Optimise(gap int) SlotPlan {
	q.mu.RLock()
	visible := q.eventsLocked(EventsOptions{})
	q.mu.RUnlock()
	if len(visible) == 0 {
		return SlotPlan{Updates: []models.Reschedule{}, Skipped: []string{}}
	}
	return q.OptimiseFrom(visible[0].StartMinutes(), gap)
}

// NextAvailableSlot finds where a new event of the given duration can go. The
// submitted time wins when it conflicts with nothing (existing events plus
// the supplied pending candidates) and starts before the 23:55 cutoff;
// otherwise the slot after the last event is offered. A full day yields
// ok=false, a typed no-result rather than an error.
//
// Two intervals conflict when the submission starts before an existing
// event's end plus the gap and ends after its start: the gap buffers the tail
// of every existing event, not its head.
func (q *TeacherQueue) NextAvailableSlot(submit time.Time, duration, gap int, pending []*models.Event) (time.Time, bool) {
	q.mu.RLock()
	candidates := q.eventsLocked(EventsOptions{})
	q.mu.RUnlock()
	candidates = append(candidates, pending...)

	submitStart := submit.Hour()*60 + submit.Minute()
	submitEnd := submitStart + duration

	free := submitStart < lastSubmitMinute
	lastEnd := 0
	for _, ev := range candidates {
		start := ev.StartMinutes()
		end := start + ev.Duration
		if end > lastEnd {
			lastEnd = end
		}
		if submitStart < end+gap && submitEnd > start {
			free = false
		}
	}
	if free {
		return atMinutes(q.day, submitStart), true
	}

	fallback := lastEnd + gap
	if fallback < lastSubmitMinute {
		return atMinutes(q.day, fallback), true
	}
	return time.Time{}, false
}
