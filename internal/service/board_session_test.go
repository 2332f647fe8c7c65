package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctrubio/adrenalink-sub005/internal/dto"
	appErrors "github.com/vctrubio/adrenalink-sub005/pkg/errors"
)

func newSessionServiceFixture(t *testing.T) (*BoardService, *eventRepoStub) {
	t.Helper()
	svc, repo, _ := newBoardFixture(
		storedEvent("e1", "teacher-1", 9, 60),
		storedEvent("e2", "teacher-2", 11, 90),
	)
	return svc, repo
}

func TestOpenSessionSeedsPendingTeachers(t *testing.T) {
	svc, _ := newSessionServiceFixture(t)

	state, err := svc.OpenSession(context.Background(), serviceDay)
	require.NoError(t, err)
	assert.True(t, state.Active)
	assert.ElementsMatch(t, []string{"teacher-1", "teacher-2"}, state.Sync.PendingTeachers)
	assert.Equal(t, -1, state.DraftMinutes)
}

func TestOpenSessionTwiceFails(t *testing.T) {
	svc, _ := newSessionServiceFixture(t)

	_, err := svc.OpenSession(context.Background(), serviceDay)
	require.NoError(t, err)

	_, err = svc.OpenSession(context.Background(), serviceDay)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSessionState.Code, appErr.Code)
}

func TestDraftSessionTouchesNoStore(t *testing.T) {
	svc, repo := newSessionServiceFixture(t)

	_, err := svc.OpenSession(context.Background(), serviceDay)
	require.NoError(t, err)

	minutes := 10 * 60
	loc := "lagoon"
	state, err := svc.DraftSession(serviceDay, dto.AdjustDraftRequest{Minutes: &minutes, Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, 600, state.DraftMinutes)
	assert.Equal(t, "lagoon", state.DraftLocation)

	assert.Equal(t, serviceDay.Add(9*time.Hour), repo.events["e1"].Date)
	assert.Equal(t, serviceDay.Add(11*time.Hour), repo.events["e2"].Date)
}

func TestDraftSessionWithoutOpenFails(t *testing.T) {
	svc, _ := newSessionServiceFixture(t)

	minutes := 600
	_, err := svc.DraftSession(serviceDay, dto.AdjustDraftRequest{Minutes: &minutes})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSessionState.Code, appErr.Code)
}

func TestLockSessionTimePersistsBatchAndEnds(t *testing.T) {
	svc, repo := newSessionServiceFixture(t)

	_, err := svc.OpenSession(context.Background(), serviceDay)
	require.NoError(t, err)

	state, err := svc.LockSessionTime(context.Background(), serviceDay, 10*60)
	require.NoError(t, err)
	assert.False(t, state.Active)

	require.Len(t, repo.bulk, 1)
	assert.Len(t, repo.bulk[0], 2)
	target := serviceDay.Add(10 * time.Hour)
	assert.Equal(t, target, repo.events["e1"].Date)
	assert.Equal(t, target, repo.events["e2"].Date)
}

func TestLockSessionLocationPersistsAndEnds(t *testing.T) {
	svc, repo := newSessionServiceFixture(t)

	_, err := svc.OpenSession(context.Background(), serviceDay)
	require.NoError(t, err)

	state, err := svc.LockSessionLocation(context.Background(), serviceDay, "lagoon")
	require.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, "lagoon", repo.events["e1"].Location)
	assert.Equal(t, "lagoon", repo.events["e2"].Location)
}

func TestOptOutExcludesTeacherFromLock(t *testing.T) {
	svc, repo := newSessionServiceFixture(t)

	_, err := svc.OpenSession(context.Background(), serviceDay)
	require.NoError(t, err)

	state, err := svc.OptOutSession(serviceDay, "teacher-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-1"}, state.Sync.PendingTeachers)

	_, err = svc.LockSessionTime(context.Background(), serviceDay, 10*60)
	require.NoError(t, err)
	assert.Equal(t, serviceDay.Add(10*time.Hour), repo.events["e1"].Date)
	assert.Equal(t, serviceDay.Add(11*time.Hour), repo.events["e2"].Date)
}

func TestCancelSessionLeavesQueuesUntouched(t *testing.T) {
	svc, repo := newSessionServiceFixture(t)

	_, err := svc.OpenSession(context.Background(), serviceDay)
	require.NoError(t, err)

	state, err := svc.CancelSession(context.Background(), serviceDay)
	require.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, serviceDay.Add(9*time.Hour), repo.events["e1"].Date)

	fresh := svc.SessionState(serviceDay)
	assert.False(t, fresh.Active)
}

func TestEventMutationSpinnerDuringSession(t *testing.T) {
	svc, repo := newSessionServiceFixture(t)
	repo.deleteErr = assert.AnError

	_, err := svc.OpenSession(context.Background(), serviceDay)
	require.NoError(t, err)

	// Delete fails mid-session: the spinner must be cleaned up either way.
	err = svc.DeleteEvent(context.Background(), "teacher-1", serviceDay, "e1")
	require.Error(t, err)
	assert.Empty(t, svc.SessionState(serviceDay).Mutations)
}
