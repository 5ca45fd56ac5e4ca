package main // entry point of the booking API server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/csfahad/rbms-sub001/internal/config"
	"github.com/csfahad/rbms-sub001/internal/database"
	"github.com/csfahad/rbms-sub001/internal/handler"
	"github.com/csfahad/rbms-sub001/internal/middleware"
	"github.com/csfahad/rbms-sub001/internal/queue"
	"github.com/csfahad/rbms-sub001/internal/repository"
	"github.com/csfahad/rbms-sub001/internal/router"
	"github.com/csfahad/rbms-sub001/internal/service"
)

func logLevel(s string) log.Lvl {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return log.DEBUG
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	}
	return log.INFO
}

func main() {
	cfg := config.Load()
	log.SetLevel(logLevel(cfg.LogLevel))

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		LockWaitTimeout: cfg.DBLockWaitTimeout,
	})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	bookings := service.NewBookingService(db, config.LoadBookingConfig(),
		service.WithPublisher(queue.NewPublisher(cfg.AMQPURL)),
	)
	if cfg.EventConsumerStart {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventLogPath)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("booking consumer stopped: %v", err)
			}
		}()
	}

	trains := handler.NewTrainHandler(repository.NewTrainRepo(db), bookings)
	trains.OnChange = func(ctx context.Context) {
		if err := middleware.PurgeCache(ctx, cacheCfg, rdb); err != nil {
			log.Warnf("purge registry cache: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterTrains(e, trains, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterBookings(e, handler.NewBookingHandler(bookings), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterAdmin(e, trains, handler.NewAdminHandler(bookings), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
