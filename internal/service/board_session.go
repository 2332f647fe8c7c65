package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vctrubio/adrenalink-sub005/internal/board"
	"github.com/vctrubio/adrenalink-sub005/internal/dto"
	"github.com/vctrubio/adrenalink-sub005/internal/models"
	appErrors "github.com/vctrubio/adrenalink-sub005/pkg/errors"
)

// OpenSession starts a cross-teacher adjustment session over every queue
// holding events on the day. Only one session per day can be active.
func (s *BoardService) OpenSession(ctx context.Context, day time.Time) (*dto.SessionStateResponse, error) {
	day = dayOf(day)
	if existing := s.sessionFor(day); existing != nil && existing.session.Active() {
		return nil, appErrors.Clone(appErrors.ErrSessionState, "an adjustment session is already open for this day")
	}
	queues, err := s.dayQueues(ctx, day)
	if err != nil {
		return nil, err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	entry := &daySession{
		session: board.NewAdjustmentSession(queues, settings),
		queues:  queues,
	}
	entry.session.Open()

	s.mu.Lock()
	s.sessions[dayKey(day)] = entry
	s.mu.Unlock()

	s.logger.Info("adjustment session opened",
		zap.String("day", dayKey(day)),
		zap.Int("teachers", len(queues)))
	return sessionStateResponse(entry.session), nil
}

func (s *BoardService) activeSession(day time.Time) (*daySession, error) {
	entry := s.sessionFor(day)
	if entry == nil || !entry.session.Active() {
		return nil, appErrors.Clone(appErrors.ErrSessionState, "no adjustment session is open for this day")
	}
	return entry, nil
}

// DraftSession updates the session drafts without touching any queue.
func (s *BoardService) DraftSession(day time.Time, req dto.AdjustDraftRequest) (*dto.SessionStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	entry, err := s.activeSession(day)
	if err != nil {
		return nil, err
	}
	if req.Minutes != nil {
		entry.session.AdjustTime(*req.Minutes)
	}
	if req.Location != nil {
		entry.session.AdjustLocation(*req.Location)
	}
	return sessionStateResponse(entry.session), nil
}

// LockSessionTime moves the earliest event of every still-pending teacher to
// the given minute and persists the batch.
func (s *BoardService) LockSessionTime(ctx context.Context, day time.Time, minutes int) (*dto.SessionStateResponse, error) {
	if minutes < 0 || minutes >= 24*60 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "minutes out of range")
	}
	entry, err := s.activeSession(day)
	if err != nil {
		return nil, err
	}
	day = dayOf(day)

	pending := entry.session.State().PendingTeachers
	entry.session.LockToTime(minutes)

	var updates []models.Reschedule
	for _, teacherID := range pending {
		q := entry.queues[teacherID]
		if q == nil {
			continue
		}
		for _, ev := range q.Events(board.EventsOptions{}) {
			if ev.StartMinutes() == minutes {
				updates = append(updates, models.Reschedule{ID: ev.ID, NewDate: ev.Date, Duration: ev.Duration})
				break
			}
		}
	}
	if len(updates) > 0 {
		if err := s.events.BulkReschedule(ctx, updates); err != nil {
			for _, teacherID := range pending {
				s.resync(ctx, teacherID, day)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist locked times")
		}
	}
	return sessionStateResponse(entry.session), nil
}

// LockSessionLocation rewrites every event of every still-pending teacher to
// the given location and persists each record.
func (s *BoardService) LockSessionLocation(ctx context.Context, day time.Time, location string) (*dto.SessionStateResponse, error) {
	if location == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "location must not be empty")
	}
	entry, err := s.activeSession(day)
	if err != nil {
		return nil, err
	}
	day = dayOf(day)

	pending := entry.session.State().PendingTeachers
	entry.session.LockToLocation(location)

	for _, teacherID := range pending {
		q := entry.queues[teacherID]
		if q == nil {
			continue
		}
		for _, ev := range q.Events(board.EventsOptions{}) {
			if err := s.events.Update(ctx, ev); err != nil {
				s.resync(ctx, teacherID, day)
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist locked location")
			}
		}
	}
	return sessionStateResponse(entry.session), nil
}

// OptOutSession removes one teacher from the session, leaving their queue as
// it stands.
func (s *BoardService) OptOutSession(day time.Time, teacherID string) (*dto.SessionStateResponse, error) {
	entry, err := s.activeSession(day)
	if err != nil {
		return nil, err
	}
	entry.session.OptOut(teacherID)
	return sessionStateResponse(entry.session), nil
}

// SubmitSession closes the session keeping everything locked in so far.
// Locked changes were persisted as they happened, so there is nothing left
// to write.
func (s *BoardService) SubmitSession(day time.Time) (*dto.SessionStateResponse, error) {
	entry, err := s.activeSession(day)
	if err != nil {
		return nil, err
	}
	entry.session.Submit()
	s.logger.Info("adjustment session submitted", zap.String("day", dayKey(dayOf(day))))
	return sessionStateResponse(entry.session), nil
}

// CancelSession restores every queue to the state captured at open and
// writes the restored records back, undoing any lock already persisted.
func (s *BoardService) CancelSession(ctx context.Context, day time.Time) (*dto.SessionStateResponse, error) {
	entry, err := s.activeSession(day)
	if err != nil {
		return nil, err
	}
	day = dayOf(day)
	entry.session.Cancel()

	for teacherID, q := range entry.queues {
		for _, ev := range q.Events(board.EventsOptions{}) {
			if err := s.events.Update(ctx, ev); err != nil {
				s.logger.Warn("session rollback write failed",
					zap.String("teacher_id", teacherID),
					zap.String("event_id", ev.ID),
					zap.Error(err))
			}
		}
	}
	s.logger.Info("adjustment session cancelled", zap.String("day", dayKey(day)))
	return sessionStateResponse(entry.session), nil
}

// SessionState reports the session view for a day; Active is false when no
// session has been opened or the last one ended.
func (s *BoardService) SessionState(day time.Time) *dto.SessionStateResponse {
	entry := s.sessionFor(day)
	if entry == nil {
		return &dto.SessionStateResponse{DraftMinutes: -1, Mutations: map[string]board.EventMutation{}}
	}
	return sessionStateResponse(entry.session)
}

func sessionStateResponse(session *board.AdjustmentSession) *dto.SessionStateResponse {
	minutes, location := session.Drafts()
	return &dto.SessionStateResponse{
		Active:        session.Active(),
		DraftMinutes:  minutes,
		DraftLocation: location,
		Sync:          session.State(),
		Mutations:     session.Mutations(),
	}
}
