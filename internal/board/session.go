package board

import (
	"sort"
	"sync"
	"time"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

// MutationKind labels an outstanding store round-trip for one event.
type MutationKind string

const (
	MutationCreating MutationKind = "creating"
	MutationUpdating MutationKind = "updating"
	MutationDeleting MutationKind = "deleting"
)

// EventMutation records which teacher's event has a round-trip in flight,
// driving per-event spinner state in the UI.
type EventMutation struct {
	Kind      MutationKind `json:"kind"`
	TeacherID string       `json:"teacher_id"`
}

// SyncState summarizes how far the pending teachers have converged on the
// session drafts. Always recomputed from live queue contents.
type SyncState struct {
	PendingTeachers []string `json:"pending_teachers"`
	TimePercent     float64  `json:"time_percent"`
	LocationPercent float64  `json:"location_percent"`
}

type eventOverride struct {
	date     time.Time
	location string
}

// AdjustmentSession coordinates a cross-teacher time/location edit over many
// queues. It is an explicit, caller-constructed object: opening populates the
// pending set from every teacher holding visible events, and the session ends
// on Submit, on Cancel, or automatically once every teacher has been locked
// in or opted out. Cancel restores the time/location state captured at open.
type AdjustmentSession struct {
	mu        sync.RWMutex
	queues    map[string]*TeacherQueue
	settings  models.ControllerSettings
	active    bool
	pending   map[string]struct{}
	draftTime *int
	draftLoc  string
	mutations map[string]EventMutation
	captured  map[string]map[string]eventOverride
}

// NewAdjustmentSession builds an idle session over the given queues.
func NewAdjustmentSession(queues map[string]*TeacherQueue, settings models.ControllerSettings) *AdjustmentSession {
	return &AdjustmentSession{
		queues:    queues,
		settings:  settings,
		pending:   make(map[string]struct{}),
		mutations: make(map[string]EventMutation),
	}
}

// Settings exposes the controller configuration the session was opened with.
func (s *AdjustmentSession) Settings() models.ControllerSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Active reports whether an adjustment session is open.
func (s *AdjustmentSession) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Open enters adjustment mode, seeding the pending set from every teacher
// with at least one visible event and capturing each event's current timing
// and location for a later Cancel. Opening an already-open session is a no-op.
func (s *AdjustmentSession) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.pending = make(map[string]struct{})
	s.captured = make(map[string]map[string]eventOverride)
	for teacherID, queue := range s.queues {
		events := queue.Events(EventsOptions{})
		if len(events) == 0 {
			continue
		}
		s.pending[teacherID] = struct{}{}
		capture := make(map[string]eventOverride, len(events))
		for _, ev := range events {
			capture[ev.ID] = eventOverride{date: ev.Date, location: ev.Location}
		}
		s.captured[teacherID] = capture
	}
}

// AdjustTime sets the session's draft start time (minutes from midnight)
// without touching any queue.
func (s *AdjustmentSession) AdjustTime(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := minutes
	s.draftTime = &m
}

// AdjustLocation sets the session's draft location without touching any
// queue.
func (s *AdjustmentSession) AdjustLocation(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftLoc = location
}

// Drafts returns the current draft values; minutes is -1 when no draft time
// is set.
func (s *AdjustmentSession) Drafts() (minutes int, location string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draftTime == nil {
		return -1, s.draftLoc
	}
	return *s.draftTime, s.draftLoc
}

// LockToTime pushes the given start time into every pending teacher's
// earliest visible event and marks those teachers synchronized. The session
// ends automatically once nobody is pending.
func (s *AdjustmentSession) LockToTime(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	for teacherID := range s.pending {
		queue := s.queues[teacherID]
		if queue == nil {
			delete(s.pending, teacherID)
			continue
		}
		events := queue.Events(EventsOptions{})
		if len(events) == 0 {
			delete(s.pending, teacherID)
			continue
		}
		target := atMinutes(queue.Day(), minutes)
		queue.Update(events[0].ID, models.EventPatch{Date: &target})
		delete(s.pending, teacherID)
	}
	s.endIfDrainedLocked()
}

// LockToLocation pushes the given location into every event of every pending
// teacher and marks those teachers synchronized.
func (s *AdjustmentSession) LockToLocation(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	for teacherID := range s.pending {
		queue := s.queues[teacherID]
		if queue == nil {
			delete(s.pending, teacherID)
			continue
		}
		for _, ev := range queue.Events(EventsOptions{}) {
			loc := location
			queue.Update(ev.ID, models.EventPatch{Location: &loc})
		}
		delete(s.pending, teacherID)
	}
	s.endIfDrainedLocked()
}

// OptOut removes one teacher from the session without changing their queue.
// The session ends once the pending set drains.
func (s *AdjustmentSession) OptOut(teacherID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, teacherID)
	s.endIfDrainedLocked()
}

// Submit closes the session keeping every change made while it was open.
func (s *AdjustmentSession) Submit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Cancel closes the session and restores every queue's time and location to
// the state captured at Open. Events created or removed during the session
// are left to snapshot reconciliation.
func (s *AdjustmentSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	for teacherID, capture := range s.captured {
		queue := s.queues[teacherID]
		if queue == nil {
			continue
		}
		for id, override := range capture {
			date := override.date
			loc := override.location
			queue.Update(id, models.EventPatch{Date: &date, Location: &loc})
		}
	}
	s.closeLocked()
}

// State recomputes synchronization live from queue contents, so it
// self-corrects when a concurrent snapshot moves an event underneath the
// session.
func (s *AdjustmentSession) State() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := SyncState{PendingTeachers: make([]string, 0, len(s.pending))}
	for teacherID := range s.pending {
		state.PendingTeachers = append(state.PendingTeachers, teacherID)
	}
	sort.Strings(state.PendingTeachers)

	participants := 0
	timeSynced := 0
	locSynced := 0
	for _, queue := range s.queues {
		events := queue.Events(EventsOptions{})
		if len(events) == 0 {
			continue
		}
		participants++
		if s.draftTime != nil && events[0].StartMinutes() == *s.draftTime {
			timeSynced++
		}
		if s.draftLoc != "" && allAtLocation(events, s.draftLoc) {
			locSynced++
		}
	}
	if participants > 0 {
		state.TimePercent = 100 * float64(timeSynced) / float64(participants)
		state.LocationPercent = 100 * float64(locSynced) / float64(participants)
	}
	return state
}

// NotifyEventMutation records that an event has a store round-trip
// outstanding. Advisory only; callers must clear on success and failure.
func (s *AdjustmentSession) NotifyEventMutation(eventID string, kind MutationKind, teacherID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations[eventID] = EventMutation{Kind: kind, TeacherID: teacherID}
}

// ClearEventMutation retires the spinner entry for an event. Unknown ids are
// no-ops so confirm-by-either-id callers can clear both.
func (s *AdjustmentSession) ClearEventMutation(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mutations, eventID)
}

// Mutations returns a copy of the outstanding round-trip map.
func (s *AdjustmentSession) Mutations() map[string]EventMutation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]EventMutation, len(s.mutations))
	for id, m := range s.mutations {
		result[id] = m
	}
	return result
}

func allAtLocation(events []*models.Event, location string) bool {
	for _, ev := range events {
		if ev.Location != location {
			return false
		}
	}
	return true
}

func (s *AdjustmentSession) endIfDrainedLocked() {
	if s.active && len(s.pending) == 0 {
		s.closeLocked()
	}
}

func (s *AdjustmentSession) closeLocked() {
	s.active = false
	s.pending = make(map[string]struct{})
	s.captured = nil
	s.draftTime = nil
	s.draftLoc = ""
}
