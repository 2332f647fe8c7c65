package board

import (
	"sort"
	"sync"
	"time"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

// TeacherQueue owns one teacher's ordered sequence of events for a single
// calendar day. The canonical order is always re-derived by sorting the
// backing slice; mutations never patch neighbor relationships incrementally,
// so a half-updated order can never be observed.
type TeacherQueue struct {
	teacherID string
	day       time.Time

	mu      sync.RWMutex
	nodes   map[string]*Node
	order   []*Node
	version uint64
	nextSeq uint64
}

// EventsOptions controls the read view of a queue.
type EventsOptions struct {
	// IncludeDeleted also yields events awaiting delete confirmation, for
	// pending-delete UI states.
	IncludeDeleted bool
	// Raw bypasses the deletion filter entirely.
	Raw bool
}

// NewTeacherQueue builds an empty queue for one teacher and day. The day is
// normalized to midnight wall clock.
func NewTeacherQueue(teacherID string, day time.Time) *TeacherQueue {
	return &TeacherQueue{
		teacherID: teacherID,
		day:       time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()),
		nodes:     make(map[string]*Node),
	}
}

// TeacherID returns the owning teacher.
func (q *TeacherQueue) TeacherID() string {
	return q.teacherID
}

// Day returns the queue's calendar day at midnight.
func (q *TeacherQueue) Day() time.Time {
	return q.day
}

// Version returns the monotonically increasing change counter. Callers use it
// for cheap change detection instead of deep comparison.
func (q *TeacherQueue) Version() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}

// StageCreate records a local, not yet confirmed addition and splices it into
// chronological position.
func (q *TeacherQueue) StageCreate(ev *models.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	node := q.newNodeLocked(ev, StatePendingCreate)
	q.nodes[ev.ID] = node
	q.insertLocked(node)
	q.version++
}

// StageDelete marks an event for removal pending store confirmation. The node
// stays resident so the pending-delete view can still show it. Unknown ids
// are no-ops.
func (q *TeacherQueue) StageDelete(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	node, ok := q.nodes[id]
	if !ok {
		return false
	}
	node.state = StatePendingDelete
	q.version++
	return true
}

// UnstageDelete reverses a pending deletion, e.g. after the store rejected the
// delete. Safe and idempotent at any point before confirmation.
func (q *TeacherQueue) UnstageDelete(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	node, ok := q.nodes[id]
	if !ok || node.state != StatePendingDelete {
		return
	}
	node.state = StateConfirmed
	q.version++
}

// UnstageCreate drops a pending addition, e.g. after the store rejected the
// create. Confirmed nodes are left alone.
func (q *TeacherQueue) UnstageCreate(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	node, ok := q.nodes[id]
	if !ok || node.state != StatePendingCreate {
		return
	}
	delete(q.nodes, id)
	q.rebuildLocked()
}

// CompleteCreate swaps a pending addition for the canonical store record once
// the create round-trip acks. The store may have assigned a different id.
func (q *TeacherQueue) CompleteCreate(localID string, record models.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	node, ok := q.nodes[localID]
	if !ok || node.state != StatePendingCreate {
		return
	}
	delete(q.nodes, localID)
	*node.Event = record
	node.state = StateConfirmed
	q.nodes[record.ID] = node
	q.rebuildLocked()
}

// CompleteDelete drops a node outright once the store acks the delete.
func (q *TeacherQueue) CompleteDelete(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.nodes[id]; !ok {
		return
	}
	delete(q.nodes, id)
	q.rebuildLocked()
}

// Remove drops an event from the queue regardless of state. Unknown ids are
// no-ops; late or duplicate calls are expected under network retries.
func (q *TeacherQueue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.nodes[id]; !ok {
		return
	}
	delete(q.nodes, id)
	q.rebuildLocked()
}

// Update merges a partial patch into an existing event. A patch that changes
// the date unlinks and reinserts the node to restore order; patches that do
// not touch timing never reorder siblings. Unknown ids are no-ops.
func (q *TeacherQueue) Update(id string, patch models.EventPatch) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	node, ok := q.nodes[id]
	if !ok {
		return false
	}
	if patch.Duration != nil {
		node.Event.Duration = *patch.Duration
	}
	if patch.Location != nil {
		node.Event.Location = *patch.Location
	}
	if patch.Status != nil {
		node.Event.Status = *patch.Status
	}
	if patch.Date != nil && !patch.Date.Equal(node.Event.Date) {
		node.Event.Date = *patch.Date
		q.removeFromOrderLocked(node)
		// Reinsertion counts as a fresh adoption; with a new seq a later
		// rebuild keeps the tie order the splice produced.
		q.nextSeq++
		node.seq = q.nextSeq
		q.insertLocked(node)
	}
	q.version++
	return true
}

// UpdateStatus is a convenience for the most common patch.
func (q *TeacherQueue) UpdateStatus(id string, status models.EventStatus) bool {
	return q.Update(id, models.EventPatch{Status: &status})
}

// Events walks the ordered view. By default nodes marked for deletion are
// filtered out.
func (q *TeacherQueue) Events(opts EventsOptions) []*models.Event {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.eventsLocked(opts)
}

// Neighbors returns the events adjacent to id in the visible order. The
// linked traversal is derived on demand from the sorted slice, never stored.
func (q *TeacherQueue) Neighbors(id string) (prev, next *models.Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	visible := q.eventsLocked(EventsOptions{})
	for i, ev := range visible {
		if ev.ID != id {
			continue
		}
		if i > 0 {
			prev = visible[i-1]
		}
		if i < len(visible)-1 {
			next = visible[i+1]
		}
		return prev, next
	}
	return nil, nil
}

// Len reports the number of visible events.
func (q *TeacherQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.eventsLocked(EventsOptions{}))
}

// PendingIDs lists ids still awaiting a store round-trip, split by kind.
func (q *TeacherQueue) PendingIDs() (creates, deletes []string) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for id, node := range q.nodes {
		switch node.state {
		case StatePendingCreate:
			creates = append(creates, id)
		case StatePendingDelete:
			deletes = append(deletes, id)
		}
	}
	sort.Strings(creates)
	sort.Strings(deletes)
	return creates, deletes
}

func (q *TeacherQueue) eventsLocked(opts EventsOptions) []*models.Event {
	result := make([]*models.Event, 0, len(q.order))
	for _, node := range q.order {
		if !opts.Raw && !opts.IncludeDeleted && node.state == StatePendingDelete {
			continue
		}
		result = append(result, node.Event)
	}
	return result
}

// insertLocked splices a node before the first entry starting strictly later,
// so equal start times keep insertion order.
func (q *TeacherQueue) insertLocked(node *Node) {
	idx := sort.Search(len(q.order), func(i int) bool {
		return q.order[i].Event.Date.After(node.Event.Date)
	})
	q.order = append(q.order, nil)
	copy(q.order[idx+1:], q.order[idx:])
	q.order[idx] = node
}

func (q *TeacherQueue) removeFromOrderLocked(node *Node) {
	for i, n := range q.order {
		if n == node {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

func (q *TeacherQueue) newNodeLocked(ev *models.Event, state State) *Node {
	q.nextSeq++
	return &Node{Event: ev, state: state, seq: q.nextSeq}
}

// rebuildLocked is the relinearization primitive: it reconstructs the order
// from scratch out of the node set and bumps the version. Every structural
// mutation funnels through here rather than patching the slice piecemeal.
func (q *TeacherQueue) rebuildLocked() {
	q.order = q.order[:0]
	for _, node := range q.nodes {
		q.order = append(q.order, node)
	}
	sort.Slice(q.order, func(i, j int) bool {
		if q.order[i].Event.Date.Equal(q.order[j].Event.Date) {
			return q.order[i].seq < q.order[j].seq
		}
		return q.order[i].Event.Date.Before(q.order[j].Event.Date)
	})
	q.version++
}
