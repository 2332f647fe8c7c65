package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

func TestSyncAdoptsAndDropsServerTruth(t *testing.T) {
	q := newQueue(newEvent("a", 9, 0, 60), newEvent("b", 10, 0, 60))

	// "b" deleted server-side, "c" created server-side.
	confirmed := q.Sync([]models.Event{*newEvent("a", 9, 0, 60), *newEvent("c", 12, 0, 60)}, nil)

	assert.Empty(t, confirmed)
	events := q.Events(EventsOptions{})
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "c", events[1].ID)
}

func TestSyncIsIdempotent(t *testing.T) {
	q := NewTeacherQueue("teacher-1", boardDay)
	q.StageCreate(newEvent("tmp-1", 9, 0, 60))

	snapshot := []models.Event{*newEvent("tmp-1", 9, 0, 60), *newEvent("b", 10, 0, 60)}

	first := q.Sync(snapshot, nil)
	assert.Equal(t, []string{"tmp-1"}, first)
	view := startTimes(q.Events(EventsOptions{}))

	second := q.Sync(snapshot, nil)
	assert.Empty(t, second)
	assert.Equal(t, view, startTimes(q.Events(EventsOptions{})))
}

func TestSyncMutationGuardProtectsLocalTiming(t *testing.T) {
	q := newQueue(newEvent("x", 9, 0, 60))

	// Local edit in flight: moved to 13:00, 90 minutes.
	moved := time.Date(2025, 1, 6, 13, 0, 0, 0, time.Local)
	dur := 90
	require.True(t, q.Update("x", models.EventPatch{Date: &moved, Duration: &dur}))

	// A stale-relative-to-the-edit poll still carries 09:00 but has fresher
	// status and location.
	record := *newEvent("x", 9, 0, 60)
	record.Status = models.EventStatusTBC
	record.Location = "lagoon"
	q.Sync([]models.Event{record}, map[string]bool{"x": true})

	events := q.Events(EventsOptions{})
	require.Len(t, events, 1)
	assert.Equal(t, moved, events[0].Date)
	assert.Equal(t, 90, events[0].Duration)
	assert.Equal(t, models.EventStatusTBC, events[0].Status)
	assert.Equal(t, "lagoon", events[0].Location)
}

func TestSyncWithoutGuardTakesServerTiming(t *testing.T) {
	q := newQueue(newEvent("x", 9, 0, 60))

	moved := time.Date(2025, 1, 6, 13, 0, 0, 0, time.Local)
	require.True(t, q.Update("x", models.EventPatch{Date: &moved}))

	q.Sync([]models.Event{*newEvent("x", 9, 0, 60)}, nil)

	events := q.Events(EventsOptions{})
	require.Len(t, events, 1)
	assert.Equal(t, "09:00", events[0].Date.Format("15:04"))
}

func TestSyncSelfHealsDeletions(t *testing.T) {
	q := newQueue(newEvent("y", 9, 0, 60), newEvent("z", 10, 0, 60))
	require.True(t, q.StageDelete("y"))

	confirmed := q.Sync([]models.Event{*newEvent("z", 10, 0, 60)}, nil)

	assert.Contains(t, confirmed, "y")
	_, deletes := q.PendingIDs()
	assert.Empty(t, deletes)
	assert.Len(t, q.Events(EventsOptions{IncludeDeleted: true}), 1)
}

func TestSyncPendingDeleteStillOnServerStaysPending(t *testing.T) {
	q := newQueue(newEvent("y", 9, 0, 60))
	require.True(t, q.StageDelete("y"))

	confirmed := q.Sync([]models.Event{*newEvent("y", 9, 0, 60)}, nil)

	assert.Empty(t, confirmed)
	_, deletes := q.PendingIDs()
	assert.Equal(t, []string{"y"}, deletes)
	assert.Empty(t, q.Events(EventsOptions{}))
}

func TestSyncConfirmsCreationByBusinessKey(t *testing.T) {
	q := NewTeacherQueue("teacher-1", boardDay)
	local := newEvent("tmp-1", 9, 0, 60)
	local.LessonID = "L1"
	local.Date = local.Date.Add(20 * time.Second) // sub-minute noise must not matter
	q.StageCreate(local)

	record := *newEvent("srv-42", 9, 0, 60)
	record.LessonID = "L1"
	confirmed := q.Sync([]models.Event{record}, nil)

	assert.ElementsMatch(t, []string{"tmp-1", "srv-42"}, confirmed)
	events := q.Events(EventsOptions{})
	require.Len(t, events, 1)
	assert.Equal(t, "srv-42", events[0].ID)
	creates, _ := q.PendingIDs()
	assert.Empty(t, creates)
}

func TestSyncUnmatchedAdditionStaysPending(t *testing.T) {
	q := NewTeacherQueue("teacher-1", boardDay)
	local := newEvent("tmp-1", 9, 0, 60)
	local.LessonID = "L1"
	q.StageCreate(local)

	// Different lesson in the snapshot: the placeholder must remain pending.
	record := *newEvent("srv-1", 9, 0, 60)
	record.LessonID = "L2"
	confirmed := q.Sync([]models.Event{record}, nil)

	assert.Empty(t, confirmed)
	creates, _ := q.PendingIDs()
	assert.Equal(t, []string{"tmp-1"}, creates)
	assert.Len(t, q.Events(EventsOptions{}), 2)
}

func TestSyncPreservesNodeIdentity(t *testing.T) {
	q := newQueue(newEvent("a", 9, 0, 60))
	held := q.Events(EventsOptions{})[0]

	record := *newEvent("a", 11, 30, 90)
	q.Sync([]models.Event{record}, nil)

	assert.Equal(t, "11:30", held.Date.Format("15:04"), "external holders must observe the refreshed state")
	assert.Same(t, held, q.Events(EventsOptions{})[0])
}
