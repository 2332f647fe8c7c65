package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vctrubio/adrenalink-sub005/internal/board"
	"github.com/vctrubio/adrenalink-sub005/internal/dto"
	"github.com/vctrubio/adrenalink-sub005/internal/models"
	"github.com/vctrubio/adrenalink-sub005/internal/service"
	appErrors "github.com/vctrubio/adrenalink-sub005/pkg/errors"
	"github.com/vctrubio/adrenalink-sub005/pkg/response"
)

// BoardHandler exposes the teacher queue endpoints.
type BoardHandler struct {
	service *service.BoardService
}

// NewBoardHandler constructs a board handler.
func NewBoardHandler(svc *service.BoardService) *BoardHandler {
	return &BoardHandler{service: svc}
}

// parseDay reads the "date" query parameter, defaulting to today.
func parseDay(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	return day, nil
}

// Get returns one teacher's queue for a day.
func (h *BoardHandler) Get(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Board(c.Request.Context(), c.Param("teacherId"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Sync forces a snapshot reconciliation for one teacher's queue.
func (h *BoardHandler) Sync(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	confirmed, err := h.service.SyncTeacher(c.Request.Context(), c.Param("teacherId"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"confirmed": confirmed}, nil)
}

// CreateEvent stages and persists a new event.
func (h *BoardHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ev, err := h.service.CreateEvent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewEventResponse(ev))
}

// GetEvent returns one event by id, straight from the store.
func (h *BoardHandler) GetEvent(c *gin.Context) {
	ev, err := h.service.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewEventResponse(ev), nil)
}

// UpdateEvent applies a partial edit to an event.
func (h *BoardHandler) UpdateEvent(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teacherID := c.Query("teacher_id")
	if teacherID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required"))
		return
	}
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ev, err := h.service.UpdateEvent(c.Request.Context(), teacherID, day, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewEventResponse(ev), nil)
}

// UpdateStatus flips an event's lifecycle status.
func (h *BoardHandler) UpdateStatus(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teacherID := c.Query("teacher_id")
	if teacherID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required"))
		return
	}
	var req struct {
		Status models.EventStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.UpdateEventStatus(c.Request.Context(), teacherID, day, c.Param("id"), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": req.Status}, nil)
}

// DeleteEvent removes an event from the board and the store.
func (h *BoardHandler) DeleteEvent(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teacherID := c.Query("teacher_id")
	if teacherID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required"))
		return
	}
	if err := h.service.DeleteEvent(c.Request.Context(), teacherID, day, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Optimise packs one teacher's queue and persists the batch.
func (h *BoardHandler) Optimise(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.OptimiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.service.Optimise(c.Request.Context(), day, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// NextSlot reports the first free position for a prospective event.
func (h *BoardHandler) NextSlot(c *gin.Context) {
	var req dto.NextSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.service.NextSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Stats returns the day's aggregates plus a per-teacher breakdown.
func (h *BoardHandler) Stats(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	opts := board.StatsOptions{
		IncludeCancelled: c.Query("include_cancelled") == "true",
		CompletedOnly:    c.Query("completed_only") == "true",
	}
	total, perTeacher, err := h.service.Stats(c.Request.Context(), day, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"total": total, "teachers": perTeacher}, nil)
}
