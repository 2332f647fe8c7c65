package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vctrubio/adrenalink-sub005/internal/dto"
	"github.com/vctrubio/adrenalink-sub005/internal/service"
	appErrors "github.com/vctrubio/adrenalink-sub005/pkg/errors"
	"github.com/vctrubio/adrenalink-sub005/pkg/response"
)

// SessionHandler exposes the cross-teacher adjustment session endpoints.
type SessionHandler struct {
	service *service.BoardService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(svc *service.BoardService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Open starts a new session over every queue with events on the day.
func (h *SessionHandler) Open(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, err := h.service.OpenSession(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, state)
}

// State returns the live session view.
func (h *SessionHandler) State(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.service.SessionState(day), nil)
}

// Draft updates the session draft values without touching any queue.
func (h *SessionHandler) Draft(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AdjustDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.service.DraftSession(day, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// LockTime pushes the draft time into every pending queue.
func (h *SessionHandler) LockTime(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.Minutes == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "minutes is required"))
		return
	}
	state, err := h.service.LockSessionTime(c.Request.Context(), day, *req.Minutes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// LockLocation pushes the draft location into every pending queue.
func (h *SessionHandler) LockLocation(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.Location == nil || *req.Location == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "location is required"))
		return
	}
	state, err := h.service.LockSessionLocation(c.Request.Context(), day, *req.Location)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// OptOut removes one teacher from the session.
func (h *SessionHandler) OptOut(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, err := h.service.OptOutSession(day, c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Submit closes the session keeping all locked changes.
func (h *SessionHandler) Submit(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, err := h.service.SubmitSession(day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Cancel closes the session and restores the state captured at open.
func (h *SessionHandler) Cancel(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, err := h.service.CancelSession(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}
