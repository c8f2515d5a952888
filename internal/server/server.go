package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/nestegg-labs/nestegg/config"
	"github.com/nestegg-labs/nestegg/internal/analysis"
	"github.com/nestegg-labs/nestegg/internal/dialogue"
	"github.com/nestegg-labs/nestegg/internal/discovery"
	"github.com/nestegg-labs/nestegg/internal/runtime"
	"github.com/nestegg-labs/nestegg/internal/store"
	"github.com/nestegg-labs/nestegg/provider"
	"github.com/nestegg-labs/nestegg/session"
	"github.com/nestegg-labs/nestegg/session/inmemory"
)

// Run wires the full service and blocks serving HTTP.
func Run(cfg *appconfig.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging.
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return err
	}
	dsn := cfg.Storage.Postgres.DSN()
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	// Remote advisor is optional; without an endpoint every component runs
	// on local heuristics.
	advisor, err := provider.NewAdvisor(provider.HTTP, provider.Options{
		Endpoint: cfg.Advisor.Endpoint,
		APIKey:   cfg.Advisor.APIKey,
		Timeout:  cfg.Advisor.Timeout,
		Retries:  cfg.Advisor.Retries,
		Backoff:  cfg.Advisor.Backoff,
	})
	if errors.Is(err, provider.ErrNotConfigured) {
		log.Printf("advisor endpoint not configured; running in local mode")
		advisor = nil
	} else if err != nil {
		return err
	}

	disc := discovery.NewClient(advisor, nil)
	seq := dialogue.New(disc, nil)
	analyzer := analysis.New(advisor, nil)

	var sessions session.Store
	switch session.StoreType(cfg.Sessions.StoreType) {
	case session.InMemoryStore, "":
		sessions = inmemory.NewStore()
	default:
		return fmt.Errorf("unsupported session store type: %s", cfg.Sessions.StoreType)
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}
	auth := &AuthHandler{Store: st, Secret: secret}

	api := e.Group("/api")
	auth.Register(api.Group("/auth"))

	protected := api.Group("")
	protected.Use(runtime.EchoAuthMiddleware(secret))

	ph := &ProfilesHandler{Store: st}
	ph.Register(protected.Group("/profile"))

	sh := &SessionsHandler{Store: st, Sessions: sessions, Seq: seq, TTL: cfg.Sessions.TTL}
	sh.Register(protected.Group("/sessions"))

	ah := &AnalyzeHandler{Store: st, Analyzer: analyzer}
	ah.Register(protected)

	// Sweeper runs with a redis lock when redis is configured, alone
	// otherwise.
	var rdb *redis.Client
	if cfg.Storage.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}
	sweeper := &Sweeper{
		Sessions: sessions,
		Schedule: cfg.Sessions.SweepSchedule,
		Rdb:      rdb,
		Stop:     make(chan struct{}),
	}
	sweeper.Start()

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10001"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
