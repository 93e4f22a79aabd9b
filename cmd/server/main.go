package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinema-ops/internal/config"
	"github.com/iliyamo/cinema-ops/internal/database"
	"github.com/iliyamo/cinema-ops/internal/handler"
	"github.com/iliyamo/cinema-ops/internal/inventory"
	"github.com/iliyamo/cinema-ops/internal/logger"
	"github.com/iliyamo/cinema-ops/internal/middleware"
	"github.com/iliyamo/cinema-ops/internal/queue"
	"github.com/iliyamo/cinema-ops/internal/repository"
	"github.com/iliyamo/cinema-ops/internal/router"
	"github.com/iliyamo/cinema-ops/internal/scheduler"
	"github.com/iliyamo/cinema-ops/internal/service"
	"github.com/iliyamo/cinema-ops/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MySQL only backs the sale archive; without it the API runs in memory.
	var db *sql.DB
	if cfg.DatabaseEnabled() {
		var err error
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Error("mysql unavailable, sale archive disabled", slog.String("error", err.Error()))
			db = nil
		} else if err := database.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed, sale archive disabled", slog.String("error", err.Error()))
			_ = db.Close()
			db = nil
		} else {
			defer db.Close()
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: cache and rate limit disabled, idempotency kept in memory")
	} else {
		defer rdb.Close()
	}

	// repositories
	users := repository.NewUserRepo()
	if cfg.SeedUsers {
		if err := users.Seed(ctx, repository.DefaultSeed, cfg.BcryptCost); err != nil {
			log.Error("seed users", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	sessionRepo := repository.NewSessionRepo()
	tokens := repository.NewTokenRepo()
	audit := repository.NewAuditRepo(cfg.AuditCapacity)
	archive := repository.NewSaleArchiveRepo(db)
	stock := inventory.NewStock()
	if cfg.SeedInventory {
		if err := stock.Seed(inventory.DefaultItems); err != nil {
			log.Error("seed inventory", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// sale events
	var events service.EventPublisher = service.NoopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.AMQPURL, log.Logger)
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: cfg.SalesLogDir, Log: log.Logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("sales consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// services
	issuer := utils.TokenIssuer{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience, TTL: cfg.AccessTTL()}
	sessionSvc := service.NewSessionService(sessionRepo, users, audit, archive, events, log)
	sessionSvc.SaleIDFormat = cfg.SaleIDFormat
	authSvc := service.NewAuthService(users, tokens, audit, issuer, cfg.RefreshTTL(), log)
	analyticsSvc := service.NewAnalyticsService(sessionRepo, users, audit, stock)
	inventorySvc := service.NewInventoryService(stock, audit, log)
	payrollSvc := service.NewPayrollService(users)

	var idemStore middleware.IdempotencyStore
	var memIdem *middleware.MemoryIdempotencyStore
	if rdb != nil {
		idemStore = &middleware.RedisIdempotencyStore{RDB: rdb, Prefix: "cinema-ops:idem"}
	} else {
		memIdem = middleware.NewMemoryIdempotencyStore()
		idemStore = memIdem
	}

	schedDeps := scheduler.Deps{Tokens: tokens, Sessions: sessionRepo, Stock: stock, Log: log}
	if memIdem != nil {
		schedDeps.Idempotency = memIdem
	}
	sched, err := scheduler.Start(scheduler.Jobs(schedDeps), log)
	if err != nil {
		log.Error("scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Validator = handler.Validator{}
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("ip", v.RemoteIP),
			)
			return nil
		},
	}))

	router.Register(e, router.Deps{
		Health:      handler.NewHealthHandler(db, rdb),
		Auth:        handler.NewAuthHandler(authSvc),
		Pricing:     handler.NewPricingHandler(service.NewPricingService()),
		Sessions:    handler.NewSessionHandler(sessionSvc),
		Analytics:   handler.NewAnalyticsHandler(analyticsSvc),
		Inventory:   handler.NewInventoryHandler(inventorySvc),
		Payroll:     handler.NewPayrollHandler(payrollSvc),
		Issuer:      issuer,
		Idempotency: middleware.Idempotency(idemStore, cfg.IdempotencyTTL),
		Cache:       middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log.Logger),
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log.Logger),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", slog.String("error", err.Error()))
	}
	if err := sched.Stop(); err != nil {
		log.Error("scheduler shutdown", slog.String("error", err.Error()))
	}
	sessionSvc.Wait()
}
