package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/models"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
	"github.com/chapterhub/event-gallery/pkg/export"
)

// Export formats.
const (
	ExportCSV = "csv"
	ExportPDF = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered catalogue ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the event catalogue as CSV or PDF.
type ExportService struct {
	events EventLister
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers use the defaults.
func NewExportService(events EventLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{events: events, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

var catalogueColumns = []export.Column{
	{Key: "date", Title: "Date", Width: 1.2},
	{Key: "title", Title: "Title", Width: 3},
	{Key: "speaker", Title: "Speaker", Width: 2},
	{Key: "type", Title: "Type", Width: 1.6},
	{Key: "location", Title: "Location", Width: 2},
	{Key: "photos", Title: "Photos", Width: 0.7},
	{Key: "video", Title: "Video", Width: 2.5},
}

// Export renders events matching filter in format (csv when empty).
func (s *ExportService) Export(ctx context.Context, format string, filter models.EventFilter) (*ExportFile, error) {
	if format == "" {
		format = ExportCSV
	}
	if format != ExportCSV && format != ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Columns: catalogueColumns, Rows: make([]map[string]string, 0, len(events))}
	for _, evt := range events {
		data.Rows = append(data.Rows, map[string]string{
			"date":     evt.Date,
			"title":    evt.Title,
			"speaker":  evt.Speaker,
			"type":     string(evt.Type),
			"location": evt.Location,
			"photos":   strconv.Itoa(len(evt.Photos)),
			"video":    evt.WatchURL(),
		})
	}

	stamp := s.now().UTC().Format("20060102")
	file := &ExportFile{Filename: fmt.Sprintf("events-%s.%s", stamp, format)}
	switch format {
	case ExportPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(data, "Event catalogue")
	default:
		file.ContentType = "text/csv; charset=utf-8"
		file.Body, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Info("event catalogue exported", zap.String("format", format), zap.Int("events", len(events)))
	return file, nil
}
