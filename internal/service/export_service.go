package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
	"github.com/noah-isme/admissions-api/pkg/export"
)

type applicationLister interface {
	ListApplications(ctx context.Context, query dto.ApplicationListQuery) ([]models.ApplicationView, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var exportHeaders = []string{"ID", "Full Name", "Email", "Phone", "Program", "Status", "Submitted", "Verified", "Missing"}

// ExportService renders application listings as CSV or PDF.
type ExportService struct {
	apps     applicationLister
	activity activityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(apps applicationLister, activity activityRecorder, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{apps: apps, activity: activity, logger: logger, now: time.Now}
}

// Export renders the applications matching query in format.
func (s *ExportService) Export(ctx context.Context, adminID int64, format string, query dto.ApplicationListQuery) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	exporter, ok := export.ForFormat(format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	views, err := s.apps.ListApplications(ctx, query)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "ETEEAP Applications",
		Headers: exportHeaders,
		Rows:    make([][]string, 0, len(views)),
	}
	for i := range views {
		data.Rows = append(data.Rows, exportRow(&views[i]))
	}

	body, err := exporter.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	if s.activity != nil {
		s.activity.Log(ctx, adminID, "export_applications", fmt.Sprintf("Exported %d applications as %s", len(views), strings.TrimPrefix(exporter.Extension(), ".")))
	}
	s.logger.Info("applications exported", zap.Int("rows", len(views)), zap.String("format", exporter.Extension()))

	return &ExportFile{
		Filename:    fmt.Sprintf("applications-%s%s", s.now().UTC().Format("20060102-150405"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

func exportRow(view *models.ApplicationView) []string {
	uploaded := view.Uploaded()
	verified := 0
	for _, key := range uploaded {
		if view.Verified[key] {
			verified++
		}
	}
	return []string{
		strconv.FormatInt(view.ID, 10),
		deref(view.FullName),
		deref(view.Email),
		deref(view.Phone),
		deref(view.ProgramName),
		string(view.Status),
		view.CreatedAt.UTC().Format("2006-01-02"),
		fmt.Sprintf("%d/%d", verified, len(uploaded)),
		strings.Join(view.MissingRequirements(), "; "),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
