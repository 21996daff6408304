// Package server exposes the billing operations over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"github.com/smallbiznis/aquabill/internal/config"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
	obsmetrics "github.com/smallbiznis/aquabill/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	readingdomain "github.com/smallbiznis/aquabill/internal/reading/domain"
	rebillingdomain "github.com/smallbiznis/aquabill/internal/rebilling/domain"
	statementdomain "github.com/smallbiznis/aquabill/internal/statement/domain"
	tariffdomain "github.com/smallbiznis/aquabill/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	accountSvc    accountdomain.Service
	readingSvc    readingdomain.Service
	tariffRepo    tariffdomain.Repository
	billingSvc    billingdomain.Service
	billingRepo   billingdomain.Repository
	paymentSvc    paymentdomain.Service
	creditNoteSvc creditnotedomain.Service
	rebillingSvc  rebillingdomain.Service
	statementSvc  statementdomain.Service
	genID         *snowflake.Node
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	AccountSvc    accountdomain.Service
	ReadingSvc    readingdomain.Service
	TariffRepo    tariffdomain.Repository
	BillingSvc    billingdomain.Service
	BillingRepo   billingdomain.Repository
	PaymentSvc    paymentdomain.Service
	CreditNoteSvc creditnotedomain.Service
	RebillingSvc  rebillingdomain.Service
	StatementSvc  statementdomain.Service
	GenID         *snowflake.Node
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		accountSvc:    p.AccountSvc,
		readingSvc:    p.ReadingSvc,
		tariffRepo:    p.TariffRepo,
		billingSvc:    p.BillingSvc,
		billingRepo:   p.BillingRepo,
		paymentSvc:    p.PaymentSvc,
		creditNoteSvc: p.CreditNoteSvc,
		rebillingSvc:  p.RebillingSvc,
		statementSvc:  p.StatementSvc,
		genID:         p.GenID,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/accounts", s.CreateAccount)
	v1.POST("/accounts/:id/suspend", s.SuspendAccount)
	v1.POST("/accounts/:id/reactivate", s.ReactivateAccount)
	v1.GET("/accounts/:id/statement", s.AccountStatement)

	v1.POST("/meters", s.RegisterMeter)
	v1.POST("/meters/:id/deactivate", s.DeactivateMeter)

	v1.POST("/readings", s.CreateReading)
	v1.PATCH("/readings/:id", s.UpdateReading)
	v1.DELETE("/readings/:id", s.DeleteReading)

	v1.POST("/tariffs", s.CreateTariff)

	v1.POST("/billings/generate", s.GenerateBill)
	v1.GET("/billings/:id", s.GetBill)
	v1.GET("/billings/:id/balance", s.BillBalance)
	v1.POST("/billings/:id/void", s.VoidBill)
	v1.POST("/billings/:id/rebill", s.RebillBill)

	v1.POST("/payments", s.RecordPayment)
	v1.POST("/payments/:id/reconcile", s.ReconcilePayment)
	v1.POST("/payments/:id/reverse", s.ReversePayment)

	v1.POST("/credit-notes", s.CreateCreditNote)
	v1.POST("/credit-notes/:id/void", s.VoidCreditNote)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.Error(lastErr.Err))
			log.Warn("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
