package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type authorItemLister interface {
	ListAllByAuthor(ctx context.Context, authorID string) ([]models.ArchiveItem, error)
}

type datasetRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered document ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a staff member's archive items as CSV or PDF.
type ExportService struct {
	items     authorItemLister
	renderers map[string]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the default CSV and PDF exporters.
func NewExportService(items authorItemLister, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		items:     items,
		renderers: map[string]datasetRenderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Export renders every item authored by actor in the requested format.
func (s *ExportService) Export(ctx context.Context, actor *models.JWTClaims, format string) (*ExportFile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	items, err := s.items.ListAllByAuthor(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load archive items")
	}

	payload, err := renderer.Render(buildContentDataset(actor.Username, items))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("content export rendered", zap.String("user_id", actor.UserID), zap.String("format", format), zap.Int("items", len(items)))

	return &ExportFile{
		Filename:    s.buildFilename(actor.Username, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}

func buildContentDataset(username string, items []models.ArchiveItem) export.Dataset {
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Archive entries by %s", username),
		Headers: []string{"Title", "Slug", "Category", "Sub-type", "Tags", "Created", "Updated"},
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for i := range items {
		item := &items[i]
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":    item.Title,
			"Slug":     item.Slug,
			"Category": string(item.Category),
			"Sub-type": item.SubType(),
			"Tags":     strings.Join(item.Tags, ", "),
			"Created":  item.CreatedAt.UTC().Format("2006-01-02"),
			"Updated":  item.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}
	return dataset
}

func (s *ExportService) buildFilename(username, ext string) string {
	timestamp := s.now().Format("20060102_150405")
	return fmt.Sprintf("archive_%s_%s%s", sanitizeFilename(username), timestamp, ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
