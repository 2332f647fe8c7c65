package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vctrubio/adrenalink-sub005/internal/service"
	"github.com/vctrubio/adrenalink-sub005/pkg/response"
)

// ExportHandler streams rendered day sheets.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// DaySheet renders the day's schedule as CSV or PDF.
func (h *ExportHandler) DaySheet(c *gin.Context) {
	day, err := parseDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.service.DaySheet(c.Request.Context(), day, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(200, file.ContentType, file.Data)
}
