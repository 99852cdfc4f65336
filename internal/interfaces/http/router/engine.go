package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/bitrix"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/logger"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/metrics"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/dto"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/handler"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/middleware"
)

// EngineConfig holds everything needed to assemble the proxy's HTTP engine
type EngineConfig struct {
	Logger         *zap.Logger
	Invoker        bitrix.Invoker
	Metrics        *metrics.Collector // nil disables /metrics
	CORS           middleware.CORSConfig
	Tracing        middleware.TracingConfig
	MaxBodySize    int64
	TrustedProxies []string
	// StaticDir is served with an index.html fallback when Production is set
	StaticDir  string
	Production bool
}

// NewEngine builds the gin engine with the middleware stack and every route
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(cfg.Logger, dto.NewErrorResponse(dto.MsgInternal)))
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(middleware.Tracing(cfg.Tracing))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.SpanAttributes())
	}
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	engine.Use(middleware.Secure())
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics.Middleware())
	}

	system := handler.NewSystemHandler()
	engine.GET("/health", system.Health)
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	r := NewRouter(engine)
	r.Register(NewDomainGroup("proxy", "").POST("/call", handler.NewProxyHandler(cfg.Invoker).Call))
	r.Setup()

	if cfg.Production {
		engine.NoRoute(handler.NewStaticHandler(cfg.StaticDir).Serve)
	} else {
		engine.NoRoute(handler.NotFound)
	}
	return engine, nil
}
