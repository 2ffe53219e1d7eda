package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

type staffService interface {
	Directory(ctx context.Context, actor *models.Principal, filter models.StaffFilter) ([]models.StaffSummary, error)
	Courses(ctx context.Context, actor *models.Principal) ([]string, error)
	Create(ctx context.Context, actor *models.Principal, req models.CreateStaffRequest) (*models.StaffSummary, error)
	Update(ctx context.Context, actor *models.Principal, nuid string, req models.UpdateStaffRequest) (*models.StaffSummary, error)
	Delete(ctx context.Context, actor *models.Principal, nuid string) error
	Supervision(ctx context.Context, actor *models.Principal, clNUID string) (*models.Supervision, error)
	ReplaceSupervision(ctx context.Context, actor *models.Principal, clNUID string, req models.SupervisionRequest) (*models.Supervision, error)
}

// StaffHandler exposes the staff directory.
type StaffHandler struct {
	service staffService
}

// NewStaffHandler constructs a StaffHandler.
func NewStaffHandler(svc staffService) *StaffHandler {
	return &StaffHandler{service: svc}
}

// List godoc
// @Summary Staff directory
// @Tags Staff
// @Produce json
// @Param role query string false "SL, CL or LA"
// @Param course query string false "Course code"
// @Success 200 {array} models.StaffSummary
// @Failure 400 {object} response.ErrorBody
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	filter := models.StaffFilter{Course: strings.ToUpper(strings.TrimSpace(c.Query("course")))}
	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "role must be one of: SL CL LA"))
			return
		}
		filter.Role = &role
	}

	staff, err := h.service.Directory(c.Request.Context(), actor(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, staff)
}

// Courses godoc
// @Summary Course codes with assigned staff
// @Tags Staff
// @Produce json
// @Success 200 {array} string
// @Router /courses [get]
func (h *StaffHandler) Courses(c *gin.Context) {
	courses, err := h.service.Courses(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Create godoc
// @Summary Add a staff member
// @Tags Staff
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.CreateStaffRequest true "Staff payload"
// @Success 201 {object} models.StaffSummary
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	var req models.CreateStaffRequest
	if !bindJSON(c, &req) {
		return
	}
	staff, err := h.service.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, staff)
}

// Update godoc
// @Summary Update a staff member
// @Tags Staff
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param nuid path string true "Staff NUID"
// @Param payload body models.UpdateStaffRequest true "Fields to change"
// @Success 200 {object} models.StaffSummary
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /staff/{nuid} [put]
func (h *StaffHandler) Update(c *gin.Context) {
	var req models.UpdateStaffRequest
	if !bindJSON(c, &req) {
		return
	}
	staff, err := h.service.Update(c.Request.Context(), actor(c), c.Param("nuid"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, staff)
}

// Delete godoc
// @Summary Remove a staff member
// @Tags Staff
// @Security BearerAuth
// @Param nuid path string true "Staff NUID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /staff/{nuid} [delete]
func (h *StaffHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actor(c), c.Param("nuid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Supervision godoc
// @Summary Learning assistants supervised by a course lead
// @Tags Staff
// @Security BearerAuth
// @Produce json
// @Param nuid path string true "Course lead NUID"
// @Success 200 {object} models.Supervision
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /staff/{nuid}/supervision [get]
func (h *StaffHandler) Supervision(c *gin.Context) {
	supervision, err := h.service.Supervision(c.Request.Context(), actor(c), c.Param("nuid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, supervision)
}

// ReplaceSupervision godoc
// @Summary Replace a course lead's learning assistants
// @Tags Staff
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param nuid path string true "Course lead NUID"
// @Param payload body models.SupervisionRequest true "Learning assistant NUIDs"
// @Success 200 {object} models.Supervision
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /staff/{nuid}/supervision [put]
func (h *StaffHandler) ReplaceSupervision(c *gin.Context) {
	var req models.SupervisionRequest
	if !bindJSON(c, &req) {
		return
	}
	supervision, err := h.service.ReplaceSupervision(c.Request.Context(), actor(c), c.Param("nuid"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, supervision)
}
