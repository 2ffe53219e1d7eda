package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/la-portal-api/internal/models"
	"github.com/noah-isme/la-portal-api/internal/service"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

type scheduleService interface {
	ListMine(ctx context.Context, actor *models.Principal) ([]models.ScheduleEntry, error)
	ListForStaff(ctx context.Context, actor *models.Principal, nuid string) ([]models.ScheduleEntry, error)
	Create(ctx context.Context, actor *models.Principal, req models.CreateScheduleRequest) (*models.ScheduleEntry, error)
	Update(ctx context.Context, actor *models.Principal, id string, input models.ScheduleEntryInput) (*models.ScheduleEntry, error)
	Delete(ctx context.Context, actor *models.Principal, id string) error
	Replace(ctx context.Context, actor *models.Principal, nuid string, req models.ReplaceScheduleRequest) ([]models.ScheduleEntry, error)
	GenerateSessions(ctx context.Context, actor *models.Principal, id string, req models.GenerateSessionsRequest) (*service.GeneratedSessions, error)
}

// ScheduleHandler manages weekly schedule entries.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Mine godoc
// @Summary Caller's schedule
// @Tags Schedule
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.ScheduleEntry
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /schedule/mine [get]
func (h *ScheduleHandler) Mine(c *gin.Context) {
	entries, err := h.service.ListMine(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// ListForStaff godoc
// @Summary A staff member's schedule
// @Description Owners, senior leads and supervising course leads may read it.
// @Tags Schedule
// @Security BearerAuth
// @Produce json
// @Param nuid path string true "Staff NUID"
// @Success 200 {array} models.ScheduleEntry
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /staff/{nuid}/schedule [get]
func (h *ScheduleHandler) ListForStaff(c *gin.Context) {
	entries, err := h.service.ListForStaff(c.Request.Context(), actor(c), c.Param("nuid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// ReplaceForStaff godoc
// @Summary Replace a staff member's whole schedule
// @Tags Schedule
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param nuid path string true "Staff NUID"
// @Param payload body models.ReplaceScheduleRequest true "New entries"
// @Success 200 {array} models.ScheduleEntry
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /staff/{nuid}/schedule [put]
func (h *ScheduleHandler) ReplaceForStaff(c *gin.Context) {
	var req models.ReplaceScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	entries, err := h.service.Replace(c.Request.Context(), actor(c), c.Param("nuid"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Create godoc
// @Summary Add a schedule entry
// @Tags Schedule
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.CreateScheduleRequest true "Entry"
// @Success 201 {object} models.ScheduleEntry
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /schedule [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req models.CreateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.service.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update a schedule entry
// @Tags Schedule
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body models.ScheduleEntryInput true "Entry"
// @Success 200 {object} models.ScheduleEntry
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /schedule/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var input models.ScheduleEntryInput
	if !bindJSON(c, &input) {
		return
	}
	entry, err := h.service.Update(c.Request.Context(), actor(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Delete godoc
// @Summary Delete a schedule entry
// @Tags Schedule
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /schedule/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GenerateSessions godoc
// @Summary Generate dated sessions for an entry
// @Description Sessions already stored for the same start are skipped.
// @Tags Schedule
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body models.GenerateSessionsRequest true "Inclusive YYYY-MM-DD range"
// @Success 201 {object} service.GeneratedSessions
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /schedule/{id}/sessions [post]
func (h *ScheduleHandler) GenerateSessions(c *gin.Context) {
	var req models.GenerateSessionsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.GenerateSessions(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
