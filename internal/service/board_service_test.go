package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctrubio/adrenalink-sub005/internal/board"
	"github.com/vctrubio/adrenalink-sub005/internal/dto"
	"github.com/vctrubio/adrenalink-sub005/internal/models"
	appErrors "github.com/vctrubio/adrenalink-sub005/pkg/errors"
)

var serviceDay = time.Date(2025, 1, 6, 0, 0, 0, 0, time.Local)

type eventRepoStub struct {
	mu        sync.Mutex
	nextID    int
	events    map[string]models.Event
	bulk      [][]models.Reschedule
	createErr error
	updateErr error
	deleteErr error
	bulkErr   error
}

func newEventRepoStub(events ...models.Event) *eventRepoStub {
	stub := &eventRepoStub{events: make(map[string]models.Event)}
	for _, ev := range events {
		stub.events[ev.ID] = ev
	}
	return stub
}

func (s *eventRepoStub) ListByTeacherAndDate(ctx context.Context, teacherID string, day time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, ev := range s.events {
		if ev.TeacherID == teacherID && ev.Date.Year() == day.Year() && ev.Date.YearDay() == day.YearDay() {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *eventRepoStub) ListTeachersForDate(ctx context.Context, day time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, ev := range s.events {
		if ev.Date.Year() == day.Year() && ev.Date.YearDay() == day.YearDay() && !seen[ev.TeacherID] {
			seen[ev.TeacherID] = true
			out = append(out, ev.TeacherID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *eventRepoStub) FindByID(ctx context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev, ok := s.events[id]; ok {
		return &ev, nil
	}
	return nil, sql.ErrNoRows
}

func (s *eventRepoStub) Create(ctx context.Context, ev *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if ev.ID == "" {
		s.nextID++
		ev.ID = "srv-" + strconv.Itoa(s.nextID)
	}
	s.events[ev.ID] = *ev
	return nil
}

func (s *eventRepoStub) Update(ctx context.Context, ev *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.events[ev.ID]; !ok {
		return sql.ErrNoRows
	}
	s.events[ev.ID] = *ev
	return nil
}

func (s *eventRepoStub) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return sql.ErrNoRows
	}
	ev.Status = status
	s.events[id] = ev
	return nil
}

func (s *eventRepoStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.events[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.events, id)
	return nil
}

func (s *eventRepoStub) BulkReschedule(ctx context.Context, updates []models.Reschedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkErr != nil {
		return s.bulkErr
	}
	s.bulk = append(s.bulk, updates)
	for _, u := range updates {
		ev, ok := s.events[u.ID]
		if !ok {
			return sql.ErrNoRows
		}
		ev.Date = u.NewDate
		s.events[u.ID] = ev
	}
	return nil
}

type settingsRepoStub struct {
	settings models.ControllerSettings
	saved    []models.ControllerSettings
	err      error
}

func (s *settingsRepoStub) Get(ctx context.Context) (models.ControllerSettings, error) {
	if s.err != nil {
		return models.ControllerSettings{}, s.err
	}
	return s.settings, nil
}

func (s *settingsRepoStub) Save(ctx context.Context, settings *models.ControllerSettings) error {
	if s.err != nil {
		return s.err
	}
	s.settings = *settings
	s.saved = append(s.saved, *settings)
	return nil
}

func newBoardFixture(events ...models.Event) (*BoardService, *eventRepoStub, *settingsRepoStub) {
	repo := newEventRepoStub(events...)
	settings := &settingsRepoStub{settings: models.DefaultControllerSettings()}
	return NewBoardService(repo, settings, nil, nil), repo, settings
}

func storedEvent(id, teacherID string, hour, duration int) models.Event {
	return models.Event{
		ID:        id,
		LessonID:  "lesson-" + id,
		TeacherID: teacherID,
		Date:      serviceDay.Add(time.Duration(hour) * time.Hour),
		Duration:  duration,
		Location:  "beach-north",
		Status:    models.EventStatusPlanned,
	}
}

func createRequest(teacherID string, hour int) dto.CreateEventRequest {
	return dto.CreateEventRequest{
		TeacherID: teacherID,
		LessonID:  "lesson-new",
		Date:      serviceDay.Add(time.Duration(hour) * time.Hour).Format(dto.WallClockLayout),
		Duration:  60,
		Location:  "beach-north",
	}
}

func TestCreateEventAdoptsStoreIdentity(t *testing.T) {
	svc, repo, _ := newBoardFixture()

	ev, err := svc.CreateEvent(context.Background(), createRequest("teacher-1", 9))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ev.ID, "srv-"))
	assert.Contains(t, repo.events, ev.ID)

	view, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	require.Len(t, view.Events, 1)
	assert.Equal(t, ev.ID, view.Events[0].ID)
	assert.Empty(t, view.PendingCreates)
}

func TestCreateEventRollsBackOnStoreFailure(t *testing.T) {
	svc, repo, _ := newBoardFixture()
	repo.createErr = errors.New("connection reset")

	_, err := svc.CreateEvent(context.Background(), createRequest("teacher-1", 9))
	require.Error(t, err)

	view, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	assert.Empty(t, view.Events)
	assert.Empty(t, view.PendingCreates)
}

func TestCreateEventRejectedWhileLocked(t *testing.T) {
	svc, _, settings := newBoardFixture()
	settings.settings.Locked = true

	_, err := svc.CreateEvent(context.Background(), createRequest("teacher-1", 9))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrBoardLocked.Code, appErr.Code)
}

func TestCreateEventEnforcesDurationBounds(t *testing.T) {
	svc, _, _ := newBoardFixture()

	req := createRequest("teacher-1", 9)
	req.Duration = 15
	_, err := svc.CreateEvent(context.Background(), req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUpdateEventPersistsMergedRecord(t *testing.T) {
	svc, repo, _ := newBoardFixture(storedEvent("e1", "teacher-1", 9, 60))

	duration := 90
	updated, err := svc.UpdateEvent(context.Background(), "teacher-1", serviceDay, "e1", dto.UpdateEventRequest{Duration: &duration})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.Duration)
	assert.Equal(t, 90, repo.events["e1"].Duration)
}

func TestUpdateEventUnknownID(t *testing.T) {
	svc, _, _ := newBoardFixture(storedEvent("e1", "teacher-1", 9, 60))

	duration := 90
	_, err := svc.UpdateEvent(context.Background(), "teacher-1", serviceDay, "ghost", dto.UpdateEventRequest{Duration: &duration})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUpdateEventRollsBackOnStoreFailure(t *testing.T) {
	svc, repo, _ := newBoardFixture(storedEvent("e1", "teacher-1", 9, 60))
	repo.updateErr = errors.New("connection reset")

	date := serviceDay.Add(13 * time.Hour).Format(dto.WallClockLayout)
	_, err := svc.UpdateEvent(context.Background(), "teacher-1", serviceDay, "e1", dto.UpdateEventRequest{Date: &date})
	require.Error(t, err)

	view, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	require.Len(t, view.Events, 1)
	assert.Equal(t, "09:00", view.Events[0].Date[11:])
}

func TestDeleteEventRestoresOnStoreFailure(t *testing.T) {
	svc, repo, _ := newBoardFixture(storedEvent("e1", "teacher-1", 9, 60))
	repo.deleteErr = errors.New("connection reset")

	err := svc.DeleteEvent(context.Background(), "teacher-1", serviceDay, "e1")
	require.Error(t, err)

	view, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	require.Len(t, view.Events, 1)
	assert.Empty(t, view.PendingDeletes)
}

func TestDeleteEventCompletes(t *testing.T) {
	svc, repo, _ := newBoardFixture(storedEvent("e1", "teacher-1", 9, 60))

	require.NoError(t, svc.DeleteEvent(context.Background(), "teacher-1", serviceDay, "e1"))
	assert.NotContains(t, repo.events, "e1")

	view, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	assert.Empty(t, view.Events)
}

func TestOptimisePersistsBatch(t *testing.T) {
	svc, repo, _ := newBoardFixture(
		storedEvent("e1", "teacher-1", 9, 60),
		storedEvent("e2", "teacher-1", 11, 60),
	)

	resp, err := svc.Optimise(context.Background(), serviceDay, dto.OptimiseRequest{TeacherID: "teacher-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)
	assert.Empty(t, resp.Skipped)
	require.Len(t, repo.bulk, 1)
	assert.Equal(t, "e2", repo.bulk[0][0].ID)
	assert.Equal(t, serviceDay.Add(10*time.Hour), repo.events["e2"].Date)

	view, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	assert.True(t, view.Optimised)
}

func TestOptimiseRollsBackOnStoreFailure(t *testing.T) {
	svc, repo, _ := newBoardFixture(
		storedEvent("e1", "teacher-1", 9, 60),
		storedEvent("e2", "teacher-1", 11, 60),
	)
	repo.bulkErr = errors.New("serialization failure")

	_, err := svc.Optimise(context.Background(), serviceDay, dto.OptimiseRequest{TeacherID: "teacher-1"})
	require.Error(t, err)

	view, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	assert.Equal(t, "11:00", view.Events[1].Date[11:])
}

func TestNextSlotAfterExistingEvent(t *testing.T) {
	svc, _, settings := newBoardFixture(storedEvent("e1", "teacher-1", 14, 60))
	settings.settings.GapMinutes = 15

	resp, err := svc.NextSlot(context.Background(), dto.NextSlotRequest{
		TeacherID: "teacher-1",
		Date:      serviceDay.Add(14*time.Hour + 30*time.Minute).Format(dto.WallClockLayout),
		Duration:  30,
	})
	require.NoError(t, err)
	assert.True(t, resp.Available)
	assert.Equal(t, serviceDay.Add(15*time.Hour+15*time.Minute).Format(dto.WallClockLayout), resp.Date)
}

func TestNextSlotNoRoomLeft(t *testing.T) {
	svc, _, _ := newBoardFixture(storedEvent("e1", "teacher-1", 23, 60))

	_, err := svc.NextSlot(context.Background(), dto.NextSlotRequest{
		TeacherID: "teacher-1",
		Date:      serviceDay.Add(23*time.Hour + 30*time.Minute).Format(dto.WallClockLayout),
		Duration:  60,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoSlot.Code, appErr.Code)
}

func TestSyncTeacherHealsForeignDeletion(t *testing.T) {
	svc, repo, _ := newBoardFixture(storedEvent("e1", "teacher-1", 9, 60))

	_, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)

	repo.mu.Lock()
	delete(repo.events, "e1")
	repo.mu.Unlock()

	_, err = svc.SyncTeacher(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)

	view, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	assert.Empty(t, view.Events)
}

func TestSyncTeacherCountsHeals(t *testing.T) {
	svc, repo, _ := newBoardFixture(storedEvent("e1", "teacher-1", 9, 60))
	metrics := NewMetricsService()
	svc.WithMetrics(metrics)

	_, err := svc.Board(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)

	// One foreign deletion plus one foreign insertion, neither pending
	// locally.
	repo.mu.Lock()
	delete(repo.events, "e1")
	repo.events["e2"] = storedEvent("e2", "teacher-1", 11, 60)
	repo.mu.Unlock()

	confirmed, err := svc.SyncTeacher(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	assert.Empty(t, confirmed)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.syncHealed))

	// A quiet pass heals nothing further.
	_, err = svc.SyncTeacher(context.Background(), "teacher-1", serviceDay)
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.syncHealed))
}

func TestStatsFoldsDay(t *testing.T) {
	first := storedEvent("e1", "teacher-1", 9, 60)
	first.Students = models.StudentRoster{{ID: "s1", Name: "Ana"}, {ID: "s2", Name: "Ben"}}
	first.PricePerStudent = 50
	first.CommissionRate = 0.2
	second := storedEvent("e2", "teacher-2", 10, 120)

	svc, _, _ := newBoardFixture(first, second)

	total, perTeacher, err := svc.Stats(context.Background(), serviceDay, board.StatsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total.EventCount)
	assert.Equal(t, 2, total.StudentCount)
	assert.InDelta(t, 3.0, total.TotalHours, 0.001)
	assert.InDelta(t, 100.0, total.TotalRevenue.Revenue, 0.001)
	require.Len(t, perTeacher, 2)
}

func TestSaveSettingsValidatesWindow(t *testing.T) {
	svc, _, _ := newBoardFixture()

	bad := models.DefaultControllerSettings()
	bad.DayStartMinutes = 20 * 60
	bad.DayEndMinutes = 8 * 60
	_, err := svc.SaveSettings(context.Background(), &bad)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPollKeysRoundTrip(t *testing.T) {
	now := time.Now()
	ev := storedEvent("e1", "teacher-1", 9, 60)
	ev.Date = time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.Local)
	svc, _, _ := newBoardFixture(ev)

	keys := svc.PollKeys(context.Background())
	require.Len(t, keys, 1)
	confirmed, err := svc.HandlePollKey(context.Background(), keys[0])
	require.NoError(t, err)
	assert.Zero(t, confirmed)
	_, err = svc.HandlePollKey(context.Background(), "not-a-key")
	assert.Error(t, err)
}

func TestHandlePollKeyReportsConfirmedDeletes(t *testing.T) {
	now := time.Now()
	ev := storedEvent("e1", "teacher-1", 9, 60)
	ev.Date = time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.Local)
	svc, repo, _ := newBoardFixture(ev)

	day := dayOf(ev.Date)
	q, err := svc.queueFor(context.Background(), "teacher-1", day)
	require.NoError(t, err)
	require.True(t, q.StageDelete("e1"))

	// The row vanished server-side in the meantime; the poll pass should
	// acknowledge the pending delete.
	repo.mu.Lock()
	delete(repo.events, "e1")
	repo.mu.Unlock()

	confirmed, err := svc.HandlePollKey(context.Background(), dayKey(day)+"|teacher-1")
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)
}
