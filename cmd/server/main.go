package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DocumentationTool/Backend-sub000/internal/config"
	"github.com/DocumentationTool/Backend-sub000/internal/db"
	eventservice "github.com/DocumentationTool/Backend-sub000/internal/events/service"
	identitycontroller "github.com/DocumentationTool/Backend-sub000/internal/identity/controller"
	identityrepo "github.com/DocumentationTool/Backend-sub000/internal/identity/repository"
	identityservice "github.com/DocumentationTool/Backend-sub000/internal/identity/service"
	"github.com/DocumentationTool/Backend-sub000/internal/logger"
	"github.com/DocumentationTool/Backend-sub000/internal/metrics"
	permcontroller "github.com/DocumentationTool/Backend-sub000/internal/permissions/controller"
	permrepo "github.com/DocumentationTool/Backend-sub000/internal/permissions/repository"
	permservice "github.com/DocumentationTool/Backend-sub000/internal/permissions/service"
	"github.com/DocumentationTool/Backend-sub000/internal/reconcile"
	"github.com/DocumentationTool/Backend-sub000/internal/registry"
	resourcecontroller "github.com/DocumentationTool/Backend-sub000/internal/resources/controller"
	resourcerepo "github.com/DocumentationTool/Backend-sub000/internal/resources/repository"
	resourceservice "github.com/DocumentationTool/Backend-sub000/internal/resources/service"
	"github.com/DocumentationTool/Backend-sub000/internal/version"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.AppEnv)
	log.Info().Str("addr", cfg.AppAddr).Str("db", cfg.DatabasePath).Str("version", version.String()).Msg("starting server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqldb, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open database")
	}
	defer sqldb.Close()

	// Forward-only construction: identity first, then the repository
	// registry, then the permission and resource services.
	events := eventservice.NewLogger(log)
	identitySvc := identityservice.New(identityrepo.New(sqldb), log)
	resourceStore := resourcerepo.New(sqldb)

	defs, err := registry.LoadDefinitions(cfg.RepoConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load repository config")
	}
	reg, err := registry.Build(ctx, defs, resourceStore, cfg.ManagedExtension, log)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to build repository registry")
	}
	log.Info().Int("repos", reg.Len()).Msg("repository registry ready")

	permSvc := permservice.New(permrepo.New(sqldb), identitySvc, events, log)
	resourceSvc := resourceservice.New(reg.Handles(), permSvc, events, log)

	// One reconciliation worker per repository: a pass at startup,
	// then one per interval.
	schedulers := make([]*reconcile.Scheduler, 0, reg.Len())
	for _, engine := range reg.Engines() {
		s := reconcile.NewScheduler(engine, cfg.ReconcileInterval, log)
		s.Start(ctx)
		schedulers = append(schedulers, s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	identitycontroller.New(identitySvc).Register(e)
	permcontroller.New(permSvc).Register(e)
	resourcecontroller.New(resourceSvc).Register(e)

	e.GET("/healthz", func(c echo.Context) error {
		pingCtx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		start := time.Now()
		dbStatus := "ok"
		if err := sqldb.PingContext(pingCtx); err != nil {
			dbStatus = "down"
		}
		metrics.SetDBUp(dbStatus == "ok")
		metrics.ObserveDBPing(time.Since(start).Seconds())

		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version.String(),
			"time":    time.Now().UTC().Format(time.RFC3339),
			"db":      dbStatus,
			"repos":   reg.Len(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	for _, s := range schedulers {
		s.Wait()
	}
	log.Info().Msg("server stopped")
}
