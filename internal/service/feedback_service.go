package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/la-portal-api/internal/authz"
	"github.com/noah-isme/la-portal-api/internal/models"
	"github.com/noah-isme/la-portal-api/pkg/export"
)

// Export formats supported by FeedbackService.Export.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type feedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error)
}

// ExportFile is a rendered feedback export.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// FeedbackService accepts public feedback and serves it to staff.
type FeedbackService struct {
	repo      feedbackRepository
	gate      Authorizer
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(repo feedbackRepository, gate Authorizer, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &FeedbackService{
		repo:      repo,
		gate:      gate,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a submission. Text must be non-blank and a rating, when
// present, must be within 1..5.
func (s *FeedbackService) Create(ctx context.Context, actor *models.Principal, req models.CreateFeedbackRequest) (*models.Feedback, error) {
	if err := s.gate.Authorize(ctx, actor, authz.CreateFeedback, authz.Target{}); err != nil {
		return nil, err
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	kind := strings.ToLower(strings.TrimSpace(req.Type))
	if kind == "" {
		kind = models.DefaultFeedbackType
	}
	feedback := &models.Feedback{
		Course:    upperOrNil(req.Course),
		Type:      kind,
		Rating:    req.Rating,
		Text:      req.Text,
		Submitter: trimmedOrNil(req.Submitter),
		Year:      req.Year,
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		return nil, internal(err, "failed to save feedback")
	}
	return feedback, nil
}

// List returns feedback newest first.
func (s *FeedbackService) List(ctx context.Context, actor *models.Principal, filter models.FeedbackFilter) ([]models.Feedback, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ReadFeedback, authz.Target{}); err != nil {
		return nil, err
	}
	filter.Course = strings.ToUpper(strings.TrimSpace(filter.Course))
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list feedback")
	}
	return items, nil
}

// Export renders the filtered feedback as CSV or PDF.
func (s *FeedbackService) Export(ctx context.Context, actor *models.Principal, filter models.FeedbackFilter, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, invalid("format must be one of: csv pdf")
	}

	items, err := s.List(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	dataset := feedbackDataset(items)
	stamp := s.now().UTC().Format("20060102-150405")

	if format == FormatPDF {
		content, err := s.pdf.Render(dataset, "Feedback")
		if err != nil {
			return nil, internal(err, "failed to render export")
		}
		return &ExportFile{Filename: fmt.Sprintf("feedback-%s.pdf", stamp), ContentType: "application/pdf", Content: content}, nil
	}

	content, err := s.csv.Render(dataset)
	if err != nil {
		return nil, internal(err, "failed to render export")
	}
	s.logger.Debug("feedback exported", zap.String("format", format), zap.Int("rows", len(items)))
	return &ExportFile{Filename: fmt.Sprintf("feedback-%s.csv", stamp), ContentType: "text/csv; charset=utf-8", Content: content}, nil
}

func feedbackDataset(items []models.Feedback) export.Dataset {
	headers := []string{"Created", "Course", "Type", "Rating", "Year", "Submitter", "Text"}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		row := map[string]string{
			"Created":   item.CreatedAt.UTC().Format(time.RFC3339),
			"Course":    deref(item.Course),
			"Type":      item.Type,
			"Submitter": deref(item.Submitter),
			"Text":      item.Text,
		}
		if item.Rating != nil {
			row["Rating"] = strconv.Itoa(*item.Rating)
		}
		if item.Year != nil {
			row["Year"] = strconv.Itoa(*item.Year)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows, Widths: []float64{1.6, 1, 1, 0.7, 0.7, 1.4, 4}}
}
