package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Error sends an error body with the given status
func (h *BaseHandler) Error(c *gin.Context, status int, message string) {
	c.JSON(status, dto.NewErrorResponse(message))
}
