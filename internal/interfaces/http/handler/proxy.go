package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/bitrix"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/logger"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/dto"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/middleware"
)

// ProxyHandler forwards REST calls to the portal named in the request
type ProxyHandler struct {
	BaseHandler
	invoker bitrix.Invoker
}

// NewProxyHandler creates a new ProxyHandler
func NewProxyHandler(invoker bitrix.Invoker) *ProxyHandler {
	return &ProxyHandler{invoker: invoker}
}

// Call handles POST /api/call.
//
// Answers:
//
//	200  the portal's JSON body, unchanged
//	400  method, auth.domain or auth.access_token missing or malformed,
//	     or params not an object ([] and null count as empty)
//	502  the portal reported an error; body carries its description
//	500  the portal could not be reached or answered unreadably
func (h *ProxyHandler) Call(c *gin.Context) {
	log := logger.GetGinLogger(c)

	var req dto.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("Rejected proxy call", zap.Strings("fields", middleware.ValidationFields(err)), zap.Error(err))
		if errors.Is(err, dto.ErrParamsNotObject) {
			h.Error(c, http.StatusBadRequest, dto.MsgParamsNotObject)
			return
		}
		h.Error(c, http.StatusBadRequest, dto.MsgCallFieldsRequired)
		return
	}

	auth := req.Auth.PortalAuth()
	ctx, log := logger.WithPortal(c.Request.Context(), log, auth.Domain)
	log = logger.WithTraceContext(ctx, log.With(zap.String("bitrix_method", req.Method)))

	env, err := h.invoker.Invoke(ctx, auth, req.Method, req.PortalParams())
	if err != nil {
		log.Error("API call failed", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.MsgUpstreamFailed)
		return
	}

	if apiErr := env.APIError(); apiErr != nil {
		log.Error("Bitrix24 API error",
			zap.String("error", apiErr.Code),
			zap.String("description", apiErr.Description),
		)
		h.Error(c, http.StatusBadGateway, apiErr.Message())
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", env.Raw)
}
