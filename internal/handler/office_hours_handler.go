package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/la-portal-api/internal/models"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

type officeHoursService interface {
	List(ctx context.Context, actor *models.Principal, course string) ([]models.OfficeHour, error)
	Upcoming(ctx context.Context, actor *models.Principal, course string) ([]models.UpcomingSession, error)
	JoinQueue(ctx context.Context, actor *models.Principal, sessionID string) (*models.QueueEntry, error)
}

// OfficeHoursHandler serves office-hour listings and session queues.
type OfficeHoursHandler struct {
	service officeHoursService
}

// NewOfficeHoursHandler constructs an OfficeHoursHandler.
func NewOfficeHoursHandler(svc officeHoursService) *OfficeHoursHandler {
	return &OfficeHoursHandler{service: svc}
}

// List godoc
// @Summary Weekly office hours
// @Tags Office Hours
// @Produce json
// @Param course query string false "Course code"
// @Success 200 {array} models.OfficeHour
// @Router /office-hours [get]
func (h *OfficeHoursHandler) List(c *gin.Context) {
	hours, err := h.service.List(c.Request.Context(), actor(c), c.Query("course"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, hours)
}

// Upcoming godoc
// @Summary Upcoming dated sessions
// @Tags Office Hours
// @Produce json
// @Param course query string false "Course code"
// @Success 200 {array} models.UpcomingSession
// @Router /office-hours/sessions [get]
func (h *OfficeHoursHandler) Upcoming(c *gin.Context) {
	sessions, err := h.service.Upcoming(c.Request.Context(), actor(c), c.Query("course"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions)
}

// JoinQueue godoc
// @Summary Join the queue of a session
// @Tags Office Hours
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 201 {object} models.QueueEntry
// @Failure 401 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /office-hours/sessions/{id}/queue [post]
func (h *OfficeHoursHandler) JoinQueue(c *gin.Context) {
	entry, err := h.service.JoinQueue(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}
