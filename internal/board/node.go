// Package board holds the in-memory scheduling core: per-teacher day queues
// with an optimistic overlay reconciled against store snapshots, the slot and
// gap-packing algorithms that operate on them, and the cross-queue adjustment
// session. The package performs no I/O; callers feed it snapshots and send its
// output batches to the store.
package board

import (
	"time"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

// State tags an event's position in the optimistic lifecycle.
type State int

const (
	// StateConfirmed means the store acknowledged this event.
	StateConfirmed State = iota
	// StatePendingCreate is a local addition the store has not confirmed yet.
	StatePendingCreate
	// StatePendingDelete is a local removal the store has not confirmed yet.
	StatePendingDelete
)

// Node pairs an event with its lifecycle tag. The Event pointer is stable for
// the node's lifetime: snapshot reconciliation mutates it in place so external
// holders keep observing the current values.
type Node struct {
	Event *models.Event
	state State
	// seq preserves adoption order so rebuilds keep equal start times stable.
	seq uint64
}

// Pending reports whether the node still awaits a store round-trip.
func (n *Node) Pending() bool {
	return n.state != StateConfirmed
}

// State returns the lifecycle tag.
func (n *Node) State() State {
	return n.state
}

const (
	minutesPerDay = 24 * 60
	// lastSubmitMinute is the 23:55 cutoff for placing new events.
	lastSubmitMinute = 23*60 + 55
)

// minuteEqual compares two wall-clock timestamps truncated to the minute.
// Used by the business-key self-heal when the store assigns a fresh id on
// creation.
func minuteEqual(a, b time.Time) bool {
	return a.Truncate(time.Minute).Equal(b.Truncate(time.Minute))
}

// atMinutes returns the given day with the wall clock set to m minutes after
// midnight.
func atMinutes(day time.Time, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, day.Location())
}
