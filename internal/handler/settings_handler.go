package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
	"github.com/vctrubio/adrenalink-sub005/internal/service"
	appErrors "github.com/vctrubio/adrenalink-sub005/pkg/errors"
	"github.com/vctrubio/adrenalink-sub005/pkg/response"
)

// SettingsHandler exposes the board configuration endpoints.
type SettingsHandler struct {
	service *service.BoardService
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(svc *service.BoardService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// Get returns the live board configuration.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Put replaces the board configuration.
func (h *SettingsHandler) Put(c *gin.Context) {
	var settings models.ControllerSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	saved, err := h.service.SaveSettings(c.Request.Context(), &settings)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, saved, nil)
}
