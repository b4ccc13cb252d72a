package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/orderdesk/internal/backup"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/customer"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/orderdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/orderdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/orderdesk/internal/observability/tracing"
	"github.com/smallbiznis/orderdesk/internal/order"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/slip"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	order.Module,
	customer.Module,
	slip.Module,
	backup.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(obsmetrics.GinMiddleware(httpMetrics))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
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
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	orderSvc    orderdomain.Service
	customerSvc customerdomain.Service
	slipSvc     *slip.Service
	backupSvc   *backup.Service
	profile     *config.StoreProfileHolder
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	OrderSvc    orderdomain.Service
	CustomerSvc customerdomain.Service
	SlipSvc     *slip.Service
	BackupSvc   *backup.Service
	Profile     *config.StoreProfileHolder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		orderSvc:    p.OrderSvc,
		customerSvc: p.CustomerSvc,
		slipSvc:     p.SlipSvc,
		backupSvc:   p.BackupSvc,
		profile:     p.Profile,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/profile", s.GetStoreProfile)

	// -------- Orders --------
	api.POST("/orders/preview", s.PreviewOrder)
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/summary", s.ListOrderSummary)
	api.GET("/orders/:id", s.GetOrderByID)
	api.PUT("/orders/:id", s.UpdateOrder)
	api.POST("/orders/:id/toggle-status", s.ToggleOrderStatus)
	api.DELETE("/orders/:id", s.DeleteOrder)

	// -------- Slips --------
	api.GET("/orders/:id/slip.html", s.slipHandler(slip.FormatHTML))
	api.GET("/orders/:id/slip.pdf", s.slipHandler(slip.FormatPDF))

	// -------- Backup --------
	api.GET("/backup/export", s.ExportBackup)
	api.POST("/backup/import", s.ImportBackup)

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/directory", s.ListCustomerDirectory)
	api.GET("/customers/prefill", s.GetCustomerPrefill)
	api.POST("/customers/normalize-name", s.NormalizeCustomerName)
	api.PUT("/customers/:id", s.UpdateCustomer)
	api.DELETE("/customers/:id", s.DeleteCustomer)
}

func (s *Server) GetStoreProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.profile.Get()})
}
