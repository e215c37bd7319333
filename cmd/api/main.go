package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/darshanam/internal/adapters/http"
	natsadapter "github.com/samirrijal/darshanam/internal/adapters/nats"
	"github.com/samirrijal/darshanam/internal/adapters/postgres"
	"github.com/samirrijal/darshanam/internal/adapters/sunapi"
	"github.com/samirrijal/darshanam/internal/adapters/telegram"
	"github.com/samirrijal/darshanam/internal/adapters/valkey"
	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/ports"
	"github.com/samirrijal/darshanam/internal/core/usecases"
	"github.com/samirrijal/darshanam/internal/pkg/config"
	"github.com/samirrijal/darshanam/internal/pkg/logging"
	"github.com/samirrijal/darshanam/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("darshanam-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup("darshanam-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr, cfg.Telemetry.SampleRatio)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	deps := &http.Dependencies{
		AdminToken: cfg.Server.AdminToken,
		DB:         db,
	}

	// Cache (optional). Interfaces stay nil when a backend is down.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	// NATS (optional)
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		deps.NATS = pub
	}

	// Repos
	guideRepo := postgres.NewGuideLocationRepo(db)
	eventRepo := postgres.NewAlignmentEventRepo(db)

	// Use cases
	guideSvc := usecases.NewGuideService(guideRepo, cache, publisher,
		time.Duration(cfg.Guide.StaleAfterMinutes)*time.Minute)
	trackingSvc := usecases.NewTrackingService(guideSvc, eventRepo, publisher, usecases.TrackingConfig{
		ThresholdDegrees:  cfg.Alignment.ThresholdDegrees,
		ExitMarginDegrees: cfg.Alignment.ExitMarginDegrees,
		SmoothingAlpha:    cfg.Alignment.SmoothingAlpha,
		SessionTTL:        time.Duration(cfg.Alignment.SessionTTLSeconds) * time.Second,
	})
	sunSvc := usecases.NewSunTimesService(
		sunapi.New(cfg.Sun.BaseURL, time.Duration(cfg.Sun.TimeoutSeconds)*time.Second),
		usecases.NewSunTimesCache(),
		cache,
	)

	deps.Guide = guideSvc
	deps.Tracking = trackingSvc
	deps.SunTimes = sunSvc

	if cfg.Telegram.Enabled() {
		deps.Bot = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.BaseURL, nil)
		deps.Telegram = http.TelegramConfig{
			SecretToken: cfg.Telegram.SecretToken,
			ChatID:      cfg.Telegram.ChatID,
		}
	}

	// Guide updates from any instance (API, Telegram webhook) retarget the
	// sessions hosted here.
	if publisher != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeGuideLocations(ctx, func(ctx context.Context, loc *domain.GuideLocation) error {
				return trackingSvc.Retarget(ctx, loc)
			})
			if err != nil {
				slog.Warn("guide location subscription failed", "error", err)
			}
		}
	}

	go reapSessions(ctx, trackingSvc, time.Minute)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024, // sensor samples are tiny
		AppName:      "Darshanam API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Location, Link",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reapSessions drops sessions that have not been touched within their TTL.
func reapSessions(ctx context.Context, svc *usecases.TrackingService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := svc.Reap(now); n > 0 {
				slog.Info("reaped idle sessions", "count", n, "live", svc.Count())
			}
		}
	}
}
