package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
	appErrors "github.com/vctrubio/adrenalink-sub005/pkg/errors"
	"github.com/vctrubio/adrenalink-sub005/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFile is one rendered day sheet.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders day sheets straight from the store, so an export is
// always server truth rather than optimistic board state.
type ExportService struct {
	events eventRepository
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(events eventRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{events: events, csv: csv, pdf: pdf, logger: logger}
}

var daySheetHeaders = []string{"Teacher", "Start", "Duration", "Location", "Status", "Students", "Lesson"}

// DaySheet renders every event of the day grouped by teacher and ordered by
// start time.
func (s *ExportService) DaySheet(ctx context.Context, day time.Time, format ExportFormat) (*ExportFile, error) {
	day = dayOf(day)
	teachers, err := s.events.ListTeachersForDate(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list teachers")
	}
	sort.Strings(teachers)

	data := export.Dataset{Headers: daySheetHeaders}
	for _, teacherID := range teachers {
		events, err := s.events.ListByTeacherAndDate(ctx, teacherID, day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teacher events")
		}
		for i := range events {
			data.Rows = append(data.Rows, daySheetRow(teacherID, &events[i]))
		}
	}

	stamp := day.Format("2006-01-02")
	switch format {
	case ExportCSV:
		raw, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("day-sheet-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        raw,
		}, nil
	case ExportPDF:
		raw, err := s.pdf.Render(data, "Day Sheet "+stamp)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("day-sheet-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        raw,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func daySheetRow(teacherID string, ev *models.Event) map[string]string {
	names := make([]string, 0, len(ev.Students))
	for _, st := range ev.Students {
		names = append(names, st.Name)
	}
	return map[string]string{
		"Teacher":  teacherID,
		"Start":    ev.Date.Format("15:04"),
		"Duration": strconv.Itoa(ev.Duration),
		"Location": ev.Location,
		"Status":   string(ev.Status),
		"Students": strings.Join(names, ", "),
		"Lesson":   ev.LessonID,
	}
}
