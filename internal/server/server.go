package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/plansync/internal/config"
	"github.com/railzwaylabs/plansync/internal/event"
	"github.com/railzwaylabs/plansync/internal/plan/ledger"
	"github.com/railzwaylabs/plansync/internal/plan/registry"
	"github.com/railzwaylabs/plansync/internal/stripe"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	Engine     *gin.Engine
	DB         *gorm.DB `optional:"true"`
	Registry   *registry.Registry
	Ledger     *ledger.Repository `optional:"true"`
	Dispatcher *event.Dispatcher
	Verifier   *stripe.WebhookVerifier
	Metrics    *prometheus.Registry `optional:"true"`
}

type Server struct {
	cfg        config.Config
	log        *zap.Logger
	engine     *gin.Engine
	db         *gorm.DB
	registry   *registry.Registry
	ledger     *ledger.Repository
	dispatcher *event.Dispatcher
	verifier   *stripe.WebhookVerifier
	metrics    *prometheus.Registry
}

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID())
	return engine
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		engine:     p.Engine,
		db:         p.DB,
		registry:   p.Registry,
		ledger:     p.Ledger,
		dispatcher: p.Dispatcher,
		verifier:   p.Verifier,
		metrics:    p.Metrics,
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)

	api := s.engine.Group("/api")
	api.GET("/plans", s.ListPlans)
	api.GET("/plans/:id", s.GetPlan)
	api.GET("/plans/:id/syncs", s.ListPlanSyncs)

	s.RegisterSystemRoutes()
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

const requestIDHeader = "X-Request-Id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
