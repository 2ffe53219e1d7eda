package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/la-portal-api/internal/middleware"
	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

func actor(c *gin.Context) *models.Principal {
	return middleware.Principal(c)
}

// bindJSON decodes the body into dest and writes a 400 when it is not valid JSON.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return false
	}
	return true
}
