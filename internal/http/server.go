package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/comandaqr/ticket-gateway/internal/config"
	"github.com/comandaqr/ticket-gateway/internal/decode"
	"github.com/comandaqr/ticket-gateway/internal/http/middleware"
	"github.com/comandaqr/ticket-gateway/internal/logger"
	"github.com/comandaqr/ticket-gateway/internal/metrics"
	"github.com/comandaqr/ticket-gateway/internal/notifier"
	"github.com/comandaqr/ticket-gateway/internal/repository"
	"github.com/comandaqr/ticket-gateway/internal/service/confirm"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	stationsRepo := repository.NewStationsRepository(mysqlDB)
	ordersRepo := repository.NewOrdersRepository(mysqlDB)

	// repos (ClickHouse)
	eventsRepo := repository.NewScanEventsRepository(clickhouseDB)

	// decode pipeline + confirmation flow
	notif := notifier.New(cfg.Notifier, logger.L())
	confirmSvc := confirm.New(ordersRepo, eventsRepo, notif, logger.L())
	still := decode.NewStillDecoder(logger.L())
	orch := decode.NewOrchestrator(still, confirmSvc, logger.L())

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(stationsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:station:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/scan/image", scanImageHandler(orch, confirmSvc))
	v1.POST("/scan/live", scanLiveHandler(orch, confirmSvc))
	v1.GET("/reports/scans", listScansHandler(eventsRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
