package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/la-portal-api/internal/models"
	"github.com/noah-isme/la-portal-api/internal/service"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

type feedbackService interface {
	Create(ctx context.Context, actor *models.Principal, req models.CreateFeedbackRequest) (*models.Feedback, error)
	List(ctx context.Context, actor *models.Principal, filter models.FeedbackFilter) ([]models.Feedback, error)
	Export(ctx context.Context, actor *models.Principal, filter models.FeedbackFilter, format string) (*service.ExportFile, error)
}

// FeedbackHandler accepts and lists feedback.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler constructs a FeedbackHandler.
func NewFeedbackHandler(svc feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: svc}
}

// Create godoc
// @Summary Submit feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body models.CreateFeedbackRequest true "Feedback"
// @Success 201 {object} models.OKResponse
// @Failure 400 {object} response.ErrorBody
// @Router /feedback [post]
func (h *FeedbackHandler) Create(c *gin.Context) {
	var req models.CreateFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.service.Create(c.Request.Context(), actor(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, models.OKResponse{OK: true})
}

// List godoc
// @Summary List feedback
// @Tags Feedback
// @Security BearerAuth
// @Produce json
// @Param course query string false "Course code"
// @Param year query int false "Submission year"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} models.Feedback
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	filter, err := feedbackFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Export godoc
// @Summary Export feedback
// @Tags Feedback
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param course query string false "Course code"
// @Param year query int false "Submission year"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /feedback/export [get]
func (h *FeedbackHandler) Export(c *gin.Context) {
	filter, err := feedbackFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Export(c.Request.Context(), actor(c), filter, c.DefaultQuery("format", service.FormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func feedbackFilter(c *gin.Context) (models.FeedbackFilter, error) {
	filter := models.FeedbackFilter{Course: c.Query("course")}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "year must be a number")
		}
		filter.Year = &year
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive number")
		}
		if limit > models.MaxFeedbackLimit {
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("limit must be at most %d", models.MaxFeedbackLimit))
		}
		filter.Limit = limit
	}
	return filter, nil
}
