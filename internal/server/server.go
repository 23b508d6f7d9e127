package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/contractledger/internal/audit/domain"
	commissiondomain "github.com/smallbiznis/contractledger/internal/commission/domain"
	"github.com/smallbiznis/contractledger/internal/config"
	contractdomain "github.com/smallbiznis/contractledger/internal/contract/domain"
	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/contractledger/internal/notification/domain"
	obsmiddleware "github.com/smallbiznis/contractledger/internal/observability/logger"
	obstracing "github.com/smallbiznis/contractledger/internal/observability/tracing"
	"github.com/smallbiznis/contractledger/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, promMetric *telemetry.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           cfg.LogLevel == "debug",
		ErrorClassifier: classifyErrorForLog,
		SlowThreshold:   time.Second,
		QuietRoutes:     []string{"/health", "/metrics"},
	}))
	r.Use(obstracing.GinMiddleware(classifyErrorForLog))
	r.Use(RequestMetrics(promMetric))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, promMetric *telemetry.Metrics) *gin.Engine {
	return NewEngine(cfg, promMetric)
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
	engine         *gin.Engine
	cfg            config.Config
	contractSvc    contractdomain.Service
	installmentSvc installmentdomain.Service
	commissionSvc  commissiondomain.Service
	salespersonSvc commissiondomain.SalespersonService
	ledgerSvc      ledgerdomain.Service
	notifySvc      notificationdomain.Service
	auditSvc       auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	ContractSvc    contractdomain.Service
	InstallmentSvc installmentdomain.Service
	CommissionSvc  commissiondomain.Service
	SalespersonSvc commissiondomain.SalespersonService
	LedgerSvc      ledgerdomain.Service
	NotifySvc      notificationdomain.Service
	AuditSvc       auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		contractSvc:    p.ContractSvc,
		installmentSvc: p.InstallmentSvc,
		commissionSvc:  p.CommissionSvc,
		salespersonSvc: p.SalespersonSvc,
		ledgerSvc:      p.LedgerSvc,
		notifySvc:      p.NotifySvc,
		auditSvc:       p.AuditSvc,
	}

	svc.RegisterAPIRoutes()
	return svc
}

// RegisterAPIRoutes mounts every tenant-scoped endpoint under /api/v1.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(OrgContext())
	api.Use(ActorContext())

	s.registerContractRoutes(api)
	s.registerInstallmentRoutes(api)
	s.registerCommissionRoutes(api)
	s.registerLedgerRoutes(api)
	s.registerNotificationRoutes(api)
	s.registerAuditRoutes(api)
}

func (s *Server) registerContractRoutes(r *gin.RouterGroup) {
	r.POST("/contracts", s.CreateContract)
	r.POST("/contracts/preview", s.PreviewContract)
	r.GET("/contracts", s.ListContracts)
	r.GET("/contracts/:id", s.GetContract)
	r.PUT("/contracts/:id", s.UpdateContract)
	r.POST("/contracts/:id/status", s.SetContractStatus)
	r.GET("/contracts/:id/installments", s.ListContractInstallments)
}

func (s *Server) registerInstallmentRoutes(r *gin.RouterGroup) {
	r.GET("/installments/:id", s.GetInstallment)
	r.POST("/installments/:id/go-live", s.CompleteGoLive)
	r.POST("/installments/:id/go-live/revert", s.RevertGoLive)
	r.POST("/installments/:id/settle", s.SettleInstallment)
}

func (s *Server) registerCommissionRoutes(r *gin.RouterGroup) {
	r.POST("/salespeople", s.CreateSalesperson)
	r.GET("/salespeople", s.ListSalespeople)
	r.GET("/salespeople/:id", s.GetSalesperson)
	r.PATCH("/salespeople/:id", s.UpdateSalesperson)

	r.POST("/commissions", s.CreateCommission)
	r.GET("/commissions", s.ListCommissions)
	r.GET("/commissions/:id", s.GetCommission)
	r.POST("/commissions/:id/approve", s.ApproveCommission)
	r.POST("/commissions/:id/reject", s.RejectCommission)
	r.POST("/commissions/:id/revert", s.RevertCommission)
}

func (s *Server) registerLedgerRoutes(r *gin.RouterGroup) {
	r.GET("/ledger-entries", s.ListLedgerEntries)
	r.GET("/ledger-entries/:id", s.GetLedgerEntry)
}

func (s *Server) registerNotificationRoutes(r *gin.RouterGroup) {
	r.GET("/notifications", s.ListNotifications)
	r.POST("/notifications/:id/read", s.MarkNotificationRead)
}

func (s *Server) registerAuditRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", s.ListAuditLogs)
}
