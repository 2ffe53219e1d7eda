package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/la-portal-api/internal/models"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Signup(ctx context.Context, req models.StudentSignupRequest) (*models.Student, error)
	ListPending(ctx context.Context, actor *models.Principal) ([]models.Student, error)
	Approve(ctx context.Context, actor *models.Principal, studentID string) error
	Reject(ctx context.Context, actor *models.Principal, studentID string) error
	ChangePassword(ctx context.Context, actor *models.Principal, req models.ChangePasswordRequest) error
	AdminResetPassword(ctx context.Context, actor *models.Principal, req models.AdminResetPasswordRequest) error
	Me(ctx context.Context, actor *models.Principal) (*models.Principal, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate staff or student
// @Description Accepts a NUID or an email address. Every failure is the same 401.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 429 {object} response.ErrorBody
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Signup godoc
// @Summary Register a student
// @Description New students start pending until a senior lead approves them.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.StudentSignupRequest true "Signup payload"
// @Success 201 {object} models.OKResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /auth/student/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.StudentSignupRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := h.service.Signup(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, models.OKResponse{OK: true})
}

// ListPending godoc
// @Summary List pending students
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Student
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /auth/students/pending [get]
func (h *AuthHandler) ListPending(c *gin.Context) {
	students, err := h.service.ListPending(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, students)
}

// Approve godoc
// @Summary Approve a student
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} models.OKResponse
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /auth/students/{id}/approve [post]
func (h *AuthHandler) Approve(c *gin.Context) {
	if err := h.service.Approve(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, models.OKResponse{OK: true})
}

// Reject godoc
// @Summary Reject a student
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} models.OKResponse
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /auth/students/{id}/reject [post]
func (h *AuthHandler) Reject(c *gin.Context) {
	if err := h.service.Reject(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, models.OKResponse{OK: true})
}

// ChangePassword godoc
// @Summary Change own password
// @Tags Authentication
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Passwords"
// @Success 200 {object} models.OKResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), actor(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, models.OKResponse{OK: true})
}

// AdminResetPassword godoc
// @Summary Reset any password
// @Description Senior leads reset staff by NUID and students by email.
// @Tags Authentication
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.AdminResetPasswordRequest true "Reset payload"
// @Success 200 {object} models.OKResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /auth/admin/reset-password [post]
func (h *AuthHandler) AdminResetPassword(c *gin.Context) {
	var req models.AdminResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.AdminResetPassword(c.Request.Context(), actor(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, models.OKResponse{OK: true})
}

// Me godoc
// @Summary Current principal
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Principal
// @Failure 401 {object} response.ErrorBody
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, err := h.service.Me(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, principal)
}

// Logout godoc
// @Summary Logout
// @Description Tokens are stateless; the client discards its copy.
// @Tags Authentication
// @Security BearerAuth
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	response.NoContent(c)
}
