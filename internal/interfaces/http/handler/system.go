package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/dto"
)

// SystemHandler serves operational endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{startTime: time.Now()}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	})
}
