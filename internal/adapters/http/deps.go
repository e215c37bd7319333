package http

import (
	"context"

	"github.com/samirrijal/darshanam/internal/core/usecases"
)

// Pinger is a backing service readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnStatus reports whether a broker connection is up.
type ConnStatus interface {
	Connected() bool
}

// MessageSender sends a chat message (the Telegram bot).
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramConfig configures the webhook.
type TelegramConfig struct {
	// SecretToken must match X-Telegram-Bot-Api-Secret-Token. Empty skips the check.
	SecretToken string
	// ChatID is the only chat allowed to move the guide location.
	ChatID int64
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Guide    *usecases.GuideService
	Tracking *usecases.TrackingService
	SunTimes *usecases.SunTimesService

	Bot      MessageSender
	Telegram TelegramConfig

	// AdminToken guards guide location writes. Empty disables the check.
	AdminToken string

	DB    Pinger
	Cache Pinger
	NATS  ConnStatus
}
