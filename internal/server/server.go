package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	"github.com/heraerp/hera/internal/cache"
	"github.com/heraerp/hera/internal/config"
	dynamicdomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/export"
	"github.com/heraerp/hera/internal/observability"
	obslogger "github.com/heraerp/hera/internal/observability/logger"
	obsmetrics "github.com/heraerp/hera/internal/observability/metrics"
	obstracing "github.com/heraerp/hera/internal/observability/tracing"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	"github.com/heraerp/hera/internal/ratelimit"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"github.com/heraerp/hera/internal/universal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(
		func(s *universal.Service) UniversalExecutor { return s },
		func(s *export.Service) Exporter { return s },
	),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(RunHTTP),
)

// UniversalExecutor runs {table, operation, payload} requests.
type UniversalExecutor interface {
	Execute(ctx context.Context, req universal.Request) (universal.Response, error)
}

// Exporter renders one organization's rows.
type Exporter interface {
	Export(ctx context.Context, orgID snowflake.ID, format string) (export.Artifact, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	SetupValidator()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	OrganizationSvc organizationdomain.Service
	EntitySvc       entitydomain.Service
	DynamicDataSvc  dynamicdomain.Service
	RelationshipSvc relationshipdomain.Service
	TransactionSvc  transactiondomain.Service
	AuditSvc        auditdomain.Service `optional:"true"`
	Universal       UniversalExecutor
	Exporter        Exporter
	OrgCache        cache.OrganizationCache `optional:"true"`
	Limiter         *ratelimit.WriteLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics     `optional:"true"`
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	organizationSvc organizationdomain.Service
	entitySvc       entitydomain.Service
	dynamicDataSvc  dynamicdomain.Service
	relationshipSvc relationshipdomain.Service
	transactionSvc  transactiondomain.Service
	auditSvc        auditdomain.Service
	universal       UniversalExecutor
	exporter        Exporter
	orgCache        cache.OrganizationCache
	limiter         *ratelimit.WriteLimiter
	metrics         *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             log.Named("http"),
		organizationSvc: p.OrganizationSvc,
		entitySvc:       p.EntitySvc,
		dynamicDataSvc:  p.DynamicDataSvc,
		relationshipSvc: p.RelationshipSvc,
		transactionSvc:  p.TransactionSvc,
		auditSvc:        p.AuditSvc,
		universal:       p.Universal,
		exporter:        p.Exporter,
		orgCache:        p.OrgCache,
		limiter:         p.Limiter,
		metrics:         p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.ServiceTokenRequired())
	api.Use(s.OrgContext())
	api.Use(s.WriteRateLimit())

	// -------- Convention --------
	api.POST("/guardrail/validate", s.ValidateRequest)
	api.POST("/universal", s.ExecuteUniversal)

	// -------- Organizations --------
	api.POST("/organizations", s.CreateOrganization)
	api.GET("/organizations", s.ListOrganizations)
	api.GET("/organizations/:id", s.GetOrganizationByID)
	api.PATCH("/organizations/:id/status", s.UpdateOrganizationStatus)
	api.GET("/organizations/:id/export", s.ExportOrganization)

	tenant := api.Group("", RequireOrg())

	// -------- Entities --------
	tenant.POST("/entities", s.CreateEntity)
	tenant.GET("/entities", s.ListEntities)
	tenant.GET("/entities/:id", s.GetEntityByID)
	tenant.PATCH("/entities/:id", s.UpdateEntity)
	tenant.DELETE("/entities/:id", s.DeleteEntity)

	// -------- Dynamic data --------
	tenant.GET("/entities/:id/dynamic", s.ListDynamicFields)
	tenant.PUT("/entities/:id/dynamic", s.SetDynamicField)
	tenant.GET("/entities/:id/dynamic/:field", s.GetDynamicField)
	tenant.DELETE("/entities/:id/dynamic/:field", s.DeleteDynamicField)

	// -------- Relationships --------
	tenant.POST("/relationships", s.CreateRelationship)
	tenant.GET("/relationships", s.ListRelationships)
	tenant.GET("/relationships/:id", s.GetRelationshipByID)
	tenant.POST("/relationships/:id/deactivate", s.DeactivateRelationship)

	// -------- Transactions --------
	tenant.POST("/transactions", s.CreateTransaction)
	tenant.GET("/transactions", s.ListTransactions)
	tenant.GET("/transactions/:id", s.GetTransactionByID)
	tenant.GET("/transactions/:id/reconcile", s.ReconcileTransaction)

	// -------- Audit --------
	tenant.GET("/audit-logs", s.ListAuditLogs)
}
