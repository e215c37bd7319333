package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/darshanam/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second

	// Per IP, for everything except sensor ingestion.
	generalRateLimit = 600
	// Per IP and session, for heading/location/tilt posts. Covers a 20 Hz
	// heading stream with room for location and tilt updates.
	sensorRateLimit = 3000
)

var sensorPaths = []string{"/heading", "/location", "/tilt"}

// isSensorIngest reports whether the request posts a sensor sample to a
// tracking session.
func isSensorIngest(c *fiber.Ctx) bool {
	if c.Method() != fiber.MethodPost {
		return false
	}
	p := c.Path()
	if !strings.HasPrefix(p, "/v1/sessions/") {
		return false
	}
	for _, suffix := range sensorPaths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func rateLimited(c *fiber.Ctx) error {
	return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(TracingMiddleware())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	app.Use(limiter.New(limiter.Config{
		Next:       isSensorIngest,
		Max:        generalRateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimited,
	}))
	sensorLimit := limiter.New(limiter.Config{
		Max:        sensorRateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + c.Params("id")
		},
		LimitReached: rateLimited,
	})

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	// Guide location (the target)
	v1.Get("/guide/location", withTimeout(GetGuideLocationHandler(deps)))
	v1.Put("/guide/location", withTimeout(UpdateGuideLocationHandler(deps)))
	v1.Get("/guide/status", withTimeout(GuideStatusHandler(deps)))
	v1.Get("/guide/history", withTimeout(GuideHistoryHandler(deps)))

	// One-shot geodesy
	v1.Get("/coordinates/parse", ParseCoordinatesHandler(deps))
	v1.Get("/bearing", withTimeout(BearingHandler(deps)))

	// Tracking sessions
	v1.Post("/sessions", withTimeout(StartSessionHandler(deps)))
	v1.Get("/sessions/:id", GetSessionHandler(deps))
	v1.Delete("/sessions/:id", StopSessionHandler(deps))
	v1.Post("/sessions/:id/heading", sensorLimit, HeadingHandler(deps))
	v1.Post("/sessions/:id/location", sensorLimit, LocationHandler(deps))
	v1.Post("/sessions/:id/tilt", sensorLimit, TiltHandler(deps))
	v1.Put("/sessions/:id/threshold", ThresholdHandler(deps))
	v1.Get("/sessions/:id/events", withTimeout(SessionEventsHandler(deps)))

	// Sun times
	v1.Get("/sun-times", withTimeout(SunTimesHandler(deps)))

	// Telegram bot
	v1.Get("/telegram/webhook", TelegramWebhookInfoHandler())
	v1.Post("/telegram/webhook", withTimeout(TelegramWebhookHandler(deps)))

	// GraphQL
	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket: one tracking session per connection
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if v := c.Query("threshold"); v != "" {
			t, err := strconv.ParseFloat(v, 64)
			if err != nil || t <= 0 || t > 180 {
				return errBadRequest(c, "threshold must be in (0, 180]")
			}
			c.Locals("threshold", t)
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.Tracking)))
}
