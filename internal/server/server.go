package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/panelquote/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/internal/catalog/store"
	"github.com/smallbiznis/panelquote/internal/config"
	"github.com/smallbiznis/panelquote/internal/governance/credential"
	governancedomain "github.com/smallbiznis/panelquote/internal/governance/domain"
	"github.com/smallbiznis/panelquote/internal/observability"
	obslogger "github.com/smallbiznis/panelquote/internal/observability/logger"
	obstracing "github.com/smallbiznis/panelquote/internal/observability/tracing"
	quotationdomain "github.com/smallbiznis/panelquote/internal/quotation/domain"
	"github.com/smallbiznis/panelquote/internal/ratelimit"
	"github.com/smallbiznis/panelquote/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, apiMetrics *telemetry.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(APIMetrics(apiMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, apiMetrics *telemetry.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, apiMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	store         *store.Store
	catalogSvc    catalogdomain.Service
	quoteSvc      quotationdomain.Service
	governanceSvc governancedomain.Service
	auditSvc      auditdomain.Service
	quoteLimiter  *ratelimit.QuoteLimiter
	credential    credential.Verifier
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Store         *store.Store
	CatalogSvc    catalogdomain.Service
	QuoteSvc      quotationdomain.Service
	GovernanceSvc governancedomain.Service
	AuditSvc      auditdomain.Service
	QuoteLimiter  *ratelimit.QuoteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		store:         p.Store,
		catalogSvc:    p.CatalogSvc,
		quoteSvc:      p.QuoteSvc,
		governanceSvc: p.GovernanceSvc,
		auditSvc:      p.AuditSvc,
		quoteLimiter:  p.QuoteLimiter,
		credential:    credential.New(p.Cfg.Governance.WriteCredential),
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	// -------- Catalog --------
	api.GET("/catalog/items", s.ListCatalogItems)
	api.GET("/catalog/items/:sku", s.GetCatalogItem)
	api.POST("/catalog/reload", s.WriteCredentialRequired(), s.ReloadCatalog)

	// -------- Quotations --------
	api.POST("/quotations", s.QuoteRateLimit(), s.CreateQuotation)
	api.GET("/quotations/:id", s.GetQuotation)
	api.POST("/quotations/:id/requote", s.QuoteRateLimit(), s.Requote)

	// -------- Corrections --------
	// Commit and reject check the write credential inside the workflow.
	api.GET("/corrections", s.ListCorrections)
	api.POST("/corrections", s.ProposeCorrection)
	api.GET("/corrections/:id", s.GetCorrection)
	api.POST("/corrections/:id/validate", s.ValidateCorrection)
	api.POST("/corrections/:id/commit", s.CommitCorrection)
	api.POST("/corrections/:id/reject", s.RejectCorrection)

	// -------- Audit --------
	api.GET("/audit", s.ListAuditEntries)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
