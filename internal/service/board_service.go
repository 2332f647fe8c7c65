package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vctrubio/adrenalink-sub005/internal/board"
	"github.com/vctrubio/adrenalink-sub005/internal/dto"
	"github.com/vctrubio/adrenalink-sub005/internal/models"
	appErrors "github.com/vctrubio/adrenalink-sub005/pkg/errors"
)

type eventRepository interface {
	ListByTeacherAndDate(ctx context.Context, teacherID string, day time.Time) ([]models.Event, error)
	ListTeachersForDate(ctx context.Context, day time.Time) ([]string, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, ev *models.Event) error
	Update(ctx context.Context, ev *models.Event) error
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
	Delete(ctx context.Context, id string) error
	BulkReschedule(ctx context.Context, updates []models.Reschedule) error
}

type settingsRepository interface {
	Get(ctx context.Context) (models.ControllerSettings, error)
	Save(ctx context.Context, settings *models.ControllerSettings) error
}

// BoardService owns the in-memory teacher queues and keeps them consistent
// with the event store: every write is staged on a queue first, persisted,
// then confirmed or rolled back, and periodic snapshots reconcile whatever
// drifted in between.
type BoardService struct {
	events    eventRepository
	settings  settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService

	mu       sync.Mutex
	boards   map[string]*board.TeacherQueue
	inflight map[string]map[string]bool
	sessions map[string]*daySession
}

type daySession struct {
	session *board.AdjustmentSession
	queues  map[string]*board.TeacherQueue
}

// NewBoardService constructs the board service.
func NewBoardService(events eventRepository, settings settingsRepository, validate *validator.Validate, logger *zap.Logger) *BoardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardService{
		events:    events,
		settings:  settings,
		validator: validate,
		logger:    logger,
		boards:    make(map[string]*board.TeacherQueue),
		inflight:  make(map[string]map[string]bool),
		sessions:  make(map[string]*daySession),
	}
}

// WithMetrics attaches reconciliation instrumentation and returns the
// service.
func (s *BoardService) WithMetrics(m *MetricsService) *BoardService {
	s.metrics = m
	return s
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayKey(day time.Time) string {
	return day.Format("2006-01-02")
}

func boardKey(teacherID string, day time.Time) string {
	return dayKey(day) + "|" + teacherID
}

// queueFor returns the cached queue for a teacher/day, loading a snapshot
// from the store on first access.
func (s *BoardService) queueFor(ctx context.Context, teacherID string, day time.Time) (*board.TeacherQueue, error) {
	day = dayOf(day)
	key := boardKey(teacherID, day)

	s.mu.Lock()
	q, ok := s.boards[key]
	if !ok {
		q = board.NewTeacherQueue(teacherID, day)
		s.boards[key] = q
	}
	s.mu.Unlock()

	if !ok {
		snapshot, err := s.events.ListByTeacherAndDate(ctx, teacherID, day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teacher board")
		}
		q.Sync(snapshot, s.inflightFor(key))
	}
	return q, nil
}

func (s *BoardService) markInflight(key, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.inflight[key]
	if ids == nil {
		ids = make(map[string]bool)
		s.inflight[key] = ids
	}
	ids[eventID] = true
}

func (s *BoardService) clearInflight(key, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ids := s.inflight[key]; ids != nil {
		delete(ids, eventID)
		if len(ids) == 0 {
			delete(s.inflight, key)
		}
	}
}

func (s *BoardService) inflightFor(key string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.inflight[key]
	if len(ids) == 0 {
		return nil
	}
	copied := make(map[string]bool, len(ids))
	for id := range ids {
		copied[id] = true
	}
	return copied
}

func (s *BoardService) sessionFor(day time.Time) *daySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[dayKey(dayOf(day))]
}

func (s *BoardService) notifyMutation(day time.Time, eventID string, kind board.MutationKind, teacherID string) {
	if entry := s.sessionFor(day); entry != nil && entry.session.Active() {
		entry.session.NotifyEventMutation(eventID, kind, teacherID)
	}
}

func (s *BoardService) clearMutation(day time.Time, eventID string) {
	if entry := s.sessionFor(day); entry != nil {
		entry.session.ClearEventMutation(eventID)
	}
}

func (s *BoardService) loadSettings(ctx context.Context) (models.ControllerSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return models.ControllerSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load board settings")
	}
	return settings, nil
}

func (s *BoardService) requireUnlocked(ctx context.Context) (models.ControllerSettings, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return settings, err
	}
	if settings.Locked {
		return settings, appErrors.ErrBoardLocked
	}
	return settings, nil
}

// CreateEvent stages a new event on the teacher's queue, persists it, and
// swaps the placeholder for the stored record. On store failure the staged
// node is removed again.
func (s *BoardService) CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	date, err := dto.ParseWallClock(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	settings, err := s.requireUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	if req.Duration < settings.MinDuration || req.Duration > settings.MaxDuration {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("duration must be between %d and %d minutes", settings.MinDuration, settings.MaxDuration))
	}

	day := dayOf(date)
	q, err := s.queueFor(ctx, req.TeacherID, day)
	if err != nil {
		return nil, err
	}

	localID := "local-" + uuid.NewString()
	ev := &models.Event{
		ID:              localID,
		LessonID:        req.LessonID,
		BookingID:       req.BookingID,
		TeacherID:       req.TeacherID,
		Date:            date,
		Duration:        req.Duration,
		Location:        req.Location,
		Status:          models.EventStatusPlanned,
		Students:        models.StudentRoster(req.Students),
		PricePerStudent: req.PricePerStudent,
		CommissionRate:  req.CommissionRate,
		PackageDuration: req.PackageDuration,
	}

	key := boardKey(req.TeacherID, day)
	q.StageCreate(ev)
	s.markInflight(key, localID)
	s.notifyMutation(day, localID, board.MutationCreating, req.TeacherID)

	stored := *ev
	stored.ID = ""
	if err := s.events.Create(ctx, &stored); err != nil {
		q.UnstageCreate(localID)
		s.clearInflight(key, localID)
		s.clearMutation(day, localID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist event")
	}

	q.CompleteCreate(localID, stored)
	s.clearInflight(key, localID)
	s.clearMutation(day, localID)
	s.logger.Info("event created",
		zap.String("event_id", stored.ID),
		zap.String("teacher_id", req.TeacherID),
		zap.Time("date", date))
	return &stored, nil
}

// GetEvent fetches one event straight from the store.
func (s *BoardService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load event")
	}
	return ev, nil
}

// UpdateEvent applies a partial edit to a queue node first, then persists the
// merged record. A store failure resynchronizes the queue from a fresh
// snapshot instead of guessing at the previous state.
func (s *BoardService) UpdateEvent(ctx context.Context, teacherID string, day time.Time, id string, req dto.UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.requireUnlocked(ctx); err != nil {
		return nil, err
	}

	patch := models.EventPatch{Duration: req.Duration, Location: req.Location}
	if req.Date != nil {
		date, err := dto.ParseWallClock(*req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		patch.Date = &date
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *req.Status))
		}
		patch.Status = req.Status
	}

	day = dayOf(day)
	q, err := s.queueFor(ctx, teacherID, day)
	if err != nil {
		return nil, err
	}
	if !q.Update(id, patch) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found on board")
	}

	key := boardKey(teacherID, day)
	s.markInflight(key, id)
	s.notifyMutation(day, id, board.MutationUpdating, teacherID)

	ev := findEvent(q, id)
	if ev == nil {
		s.clearInflight(key, id)
		s.clearMutation(day, id)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found on board")
	}
	if err := s.events.Update(ctx, ev); err != nil {
		// Drop the in-flight mark first, or the resync guard would keep
		// the edit that just failed to persist.
		s.clearInflight(key, id)
		s.clearMutation(day, id)
		s.resync(ctx, teacherID, day)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist event update")
	}
	s.clearInflight(key, id)
	s.clearMutation(day, id)
	out := *ev
	return &out, nil
}

// UpdateEventStatus flips an event's lifecycle status. Allowed even while the
// board is locked, since it changes no timing.
func (s *BoardService) UpdateEventStatus(ctx context.Context, teacherID string, day time.Time, id string, status models.EventStatus) error {
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
	}
	day = dayOf(day)
	q, err := s.queueFor(ctx, teacherID, day)
	if err != nil {
		return err
	}
	if !q.UpdateStatus(id, status) {
		return appErrors.Clone(appErrors.ErrNotFound, "event not found on board")
	}
	if err := s.events.UpdateStatus(ctx, id, status); err != nil {
		s.resync(ctx, teacherID, day)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event no longer exists")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist status update")
	}
	return nil
}

// DeleteEvent hides the event immediately as a pending delete, then removes
// it from the store. A store failure makes the event visible again.
func (s *BoardService) DeleteEvent(ctx context.Context, teacherID string, day time.Time, id string) error {
	if _, err := s.requireUnlocked(ctx); err != nil {
		return err
	}
	day = dayOf(day)
	q, err := s.queueFor(ctx, teacherID, day)
	if err != nil {
		return err
	}
	if !q.StageDelete(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "event not found on board")
	}

	key := boardKey(teacherID, day)
	s.markInflight(key, id)
	s.notifyMutation(day, id, board.MutationDeleting, teacherID)
	defer func() {
		s.clearInflight(key, id)
		s.clearMutation(day, id)
	}()

	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already gone server-side; the local delete just completes.
			q.CompleteDelete(id)
			return nil
		}
		q.UnstageDelete(id)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist event delete")
	}
	q.CompleteDelete(id)
	return nil
}

// Board returns one teacher's queue as a read view.
func (s *BoardService) Board(ctx context.Context, teacherID string, day time.Time) (*dto.TeacherBoardResponse, error) {
	day = dayOf(day)
	q, err := s.queueFor(ctx, teacherID, day)
	if err != nil {
		return nil, err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	events := q.Events(board.EventsOptions{})
	resp := &dto.TeacherBoardResponse{
		TeacherID: teacherID,
		Day:       dayKey(day),
		Version:   q.Version(),
		Optimised: q.IsOptimised(settings.GapMinutes),
		Events:    make([]dto.EventResponse, 0, len(events)),
	}
	for _, ev := range events {
		resp.Events = append(resp.Events, dto.NewEventResponse(ev))
	}
	resp.PendingCreates, resp.PendingDeletes = q.PendingIDs()
	return resp, nil
}

// Optimise packs the teacher's queue toward the start of the day and
// persists the resulting batch in one transaction.
func (s *BoardService) Optimise(ctx context.Context, day time.Time, req dto.OptimiseRequest) (*dto.OptimiseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	settings, err := s.requireUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	gap := settings.GapMinutes
	if req.GapMinutes != nil {
		gap = *req.GapMinutes
	}

	day = dayOf(day)
	q, err := s.queueFor(ctx, req.TeacherID, day)
	if err != nil {
		return nil, err
	}

	var plan board.SlotPlan
	if req.FromMinutes != nil {
		plan = q.OptimiseFrom(*req.FromMinutes, gap)
	} else {
		plan = q.Optimise(gap)
	}
	resp := &dto.OptimiseResponse{Skipped: plan.Skipped}
	if len(plan.Updates) == 0 {
		return resp, nil
	}

	key := boardKey(req.TeacherID, day)
	for _, u := range plan.Updates {
		date := u.NewDate
		q.Update(u.ID, models.EventPatch{Date: &date})
		s.markInflight(key, u.ID)
	}
	clear := func() {
		for _, u := range plan.Updates {
			s.clearInflight(key, u.ID)
		}
	}

	if err := s.events.BulkReschedule(ctx, plan.Updates); err != nil {
		// Drop the in-flight marks first, or the resync guard would keep
		// the repacked dates that just failed to persist.
		clear()
		s.resync(ctx, req.TeacherID, day)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist optimised schedule")
	}
	clear()
	resp.Applied = len(plan.Updates)
	s.logger.Info("queue optimised",
		zap.String("teacher_id", req.TeacherID),
		zap.Int("applied", resp.Applied),
		zap.Int("skipped", len(plan.Skipped)))
	return resp, nil
}

// NextSlot finds the first free position for a new event at or after the
// requested time.
func (s *BoardService) NextSlot(ctx context.Context, req dto.NextSlotRequest) (*dto.NextSlotResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	submit, err := dto.ParseWallClock(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	gap := settings.GapMinutes
	if req.GapMinutes != nil {
		gap = *req.GapMinutes
	}

	q, err := s.queueFor(ctx, req.TeacherID, dayOf(submit))
	if err != nil {
		return nil, err
	}
	slot, ok := q.NextAvailableSlot(submit, req.Duration, gap, nil)
	if !ok {
		return nil, appErrors.ErrNoSlot
	}
	return &dto.NextSlotResponse{Available: true, Date: slot.Format(dto.WallClockLayout)}, nil
}

// SyncTeacher reconciles one queue against a fresh store snapshot and
// returns the ids whose pending creation was confirmed.
func (s *BoardService) SyncTeacher(ctx context.Context, teacherID string, day time.Time) ([]string, error) {
	day = dayOf(day)
	q, err := s.queueFor(ctx, teacherID, day)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.events.ListByTeacherAndDate(ctx, teacherID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load snapshot")
	}
	before := eventIDSet(q)
	confirmed := q.Sync(snapshot, s.inflightFor(boardKey(teacherID, day)))
	retired := make(map[string]bool, len(confirmed))
	for _, id := range confirmed {
		retired[id] = true
		s.clearMutation(day, id)
	}
	if s.metrics != nil {
		// Ids that appeared or vanished without a matching pending
		// confirmation were healed from server truth.
		after := eventIDSet(q)
		healed := 0
		for id := range after {
			if !before[id] && !retired[id] {
				healed++
			}
		}
		for id := range before {
			if !after[id] && !retired[id] {
				healed++
			}
		}
		s.metrics.ObserveHeal(healed)
	}
	return confirmed, nil
}

func eventIDSet(q *board.TeacherQueue) map[string]bool {
	events := q.Events(board.EventsOptions{IncludeDeleted: true})
	ids := make(map[string]bool, len(events))
	for _, ev := range events {
		ids[ev.ID] = true
	}
	return ids
}

// SyncDay reconciles every queue that has events on the given day.
func (s *BoardService) SyncDay(ctx context.Context, day time.Time) error {
	day = dayOf(day)
	teachers, err := s.events.ListTeachersForDate(ctx, day)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list teachers")
	}
	seen := make(map[string]bool, len(teachers))
	for _, teacherID := range teachers {
		seen[teacherID] = true
	}
	// Queues already in memory may hold pending deletes for teachers the
	// store no longer lists; they still need the reconciliation pass.
	s.mu.Lock()
	prefix := dayKey(day) + "|"
	for key, q := range s.boards {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && !seen[q.TeacherID()] {
			teachers = append(teachers, q.TeacherID())
		}
	}
	s.mu.Unlock()

	for _, teacherID := range teachers {
		if _, err := s.SyncTeacher(ctx, teacherID, day); err != nil {
			s.logger.Warn("teacher sync failed",
				zap.String("teacher_id", teacherID),
				zap.Error(err))
		}
	}
	return nil
}

// resync is the failure path: throw away optimistic guesses and take the
// store's word for it.
func (s *BoardService) resync(ctx context.Context, teacherID string, day time.Time) {
	if _, err := s.SyncTeacher(ctx, teacherID, day); err != nil {
		s.logger.Warn("post-failure resync failed",
			zap.String("teacher_id", teacherID),
			zap.Error(err))
	}
}

// Stats folds every queue on the day into the board aggregates.
func (s *BoardService) Stats(ctx context.Context, day time.Time, opts board.StatsOptions) (models.BoardStats, []models.TeacherStats, error) {
	day = dayOf(day)
	queues, err := s.dayQueues(ctx, day)
	if err != nil {
		return models.BoardStats{}, nil, err
	}
	ids := make([]string, 0, len(queues))
	for teacherID := range queues {
		ids = append(ids, teacherID)
	}
	sort.Strings(ids)

	perTeacher := make([]models.TeacherStats, 0, len(queues))
	all := make([]*board.TeacherQueue, 0, len(queues))
	for _, teacherID := range ids {
		q := queues[teacherID]
		all = append(all, q)
		perTeacher = append(perTeacher, models.TeacherStats{
			TeacherID: teacherID,
			Stats:     board.Stats(board.DefaultRevenue, opts, q),
		})
	}
	return board.Stats(board.DefaultRevenue, opts, all...), perTeacher, nil
}

// GetSettings returns the live board configuration.
func (s *BoardService) GetSettings(ctx context.Context) (models.ControllerSettings, error) {
	return s.loadSettings(ctx)
}

// SaveSettings validates and persists the board configuration.
func (s *BoardService) SaveSettings(ctx context.Context, settings *models.ControllerSettings) (models.ControllerSettings, error) {
	if err := s.validator.Struct(settings); err != nil {
		return models.ControllerSettings{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if settings.DayEndMinutes <= settings.DayStartMinutes {
		return models.ControllerSettings{}, appErrors.Clone(appErrors.ErrValidation, "day end must come after day start")
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		return models.ControllerSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist settings")
	}
	s.logger.Info("board settings saved", zap.Bool("locked", settings.Locked))
	return *settings, nil
}

// dayQueues loads and returns every queue with events on the day, sorted by
// teacher id for stable output.
func (s *BoardService) dayQueues(ctx context.Context, day time.Time) (map[string]*board.TeacherQueue, error) {
	teachers, err := s.events.ListTeachersForDate(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list teachers")
	}
	queues := make(map[string]*board.TeacherQueue, len(teachers))
	for _, teacherID := range teachers {
		q, err := s.queueFor(ctx, teacherID, day)
		if err != nil {
			return nil, err
		}
		queues[teacherID] = q
	}
	// Include in-memory queues carrying unconfirmed creations.
	s.mu.Lock()
	prefix := dayKey(day) + "|"
	for key, q := range s.boards {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			if _, ok := queues[q.TeacherID()]; !ok && q.Len() > 0 {
				queues[q.TeacherID()] = q
			}
		}
	}
	s.mu.Unlock()
	return queues, nil
}

// findEvent scans a queue for an event by id, pending deletes included.
func findEvent(q *board.TeacherQueue, id string) *models.Event {
	for _, ev := range q.Events(board.EventsOptions{IncludeDeleted: true}) {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

// PollKeys enumerates "day|teacher" keys for the background reconciler.
func (s *BoardService) PollKeys(ctx context.Context) []string {
	day := dayOf(time.Now())
	teachers, err := s.events.ListTeachersForDate(ctx, day)
	if err != nil {
		s.logger.Warn("poll key listing failed", zap.Error(err))
		return nil
	}
	keys := make([]string, 0, len(teachers))
	for _, teacherID := range teachers {
		keys = append(keys, boardKey(teacherID, day))
	}
	return keys
}

// HandlePollKey reconciles the queue named by one poll key and returns how
// many pending ids the pass confirmed.
func (s *BoardService) HandlePollKey(ctx context.Context, key string) (int, error) {
	var dayPart, teacherID string
	if n := len("2006-01-02"); len(key) > n+1 && key[n] == '|' {
		dayPart, teacherID = key[:n], key[n+1:]
	} else {
		return 0, fmt.Errorf("malformed poll key %q", key)
	}
	day, err := time.ParseInLocation("2006-01-02", dayPart, time.Local)
	if err != nil {
		return 0, fmt.Errorf("malformed poll key %q: %w", key, err)
	}
	confirmed, err := s.SyncTeacher(ctx, teacherID, day)
	if err != nil {
		return 0, err
	}
	return len(confirmed), nil
}
