package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/darshanam/internal/adapters/telegram"
	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
)

const (
	telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

	msgUnauthorized = "You are not authorized to update the guide's location using this bot."
	msgHelp         = "Send a location pin to update the guide's location. /status shows the current location, /debug checks system status."
)

// TelegramWebhookHandler receives bot updates. A location pin from the
// authorised chat moves the guide; other chats are refused.
func TelegramWebhookHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Bot == nil || deps.Telegram.ChatID == 0 {
			return errUnavailable(c, "telegram bot is not configured")
		}
		if secret := deps.Telegram.SecretToken; secret != "" {
			got := c.Get(telegramSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return errUnauthorized(c, "invalid secret token")
			}
		}

		var update telegram.Update
		if err := json.Unmarshal(c.Body(), &update); err != nil {
			return errBadRequest(c, "invalid update")
		}
		msg := update.Message
		if msg == nil {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		ctx := c.UserContext()
		log := LoggerFromCtx(ctx).With("chat_id", msg.Chat.ID, "update_id", update.UpdateID)
		reply := func(chatID int64, text string) {
			if err := deps.Bot.SendMessage(ctx, chatID, text); err != nil {
				log.Warn("telegram reply failed", "error", err)
			}
		}

		if msg.Chat.ID != deps.Telegram.ChatID {
			log.Warn("telegram update from unauthorised chat")
			reply(msg.Chat.ID, msgUnauthorized)
			return errForbidden(c, "chat not authorised")
		}
		owner := deps.Telegram.ChatID

		switch {
		case msg.Location != nil:
			coord, err := domain.NewGeoCoordinate(msg.Location.Latitude, msg.Location.Longitude)
			if err != nil {
				reply(owner, "❌ That location is not valid.")
				return errFromDomain(c, err)
			}
			mapsURL := telegram.MapsURL(coord.Latitude, coord.Longitude)
			prev, _ := deps.Guide.Current(ctx)
			if _, err := deps.Guide.Update(ctx, coord, "", mapsURL, "telegram"); err != nil {
				log.Error("guide location update failed", "error", err)
				reply(owner, "❌ Failed to update location.")
				return errInternal(c, "failed to update location")
			}
			log.Info("guide location updated from telegram", "location", coord.String())
			text := fmt.Sprintf("✅ Location updated successfully!\n🌍 [View on Map](%s)", mapsURL)
			if prev != nil {
				moved := geospatial.Haversine(prev.Location.Latitude, prev.Location.Longitude, coord.Latitude, coord.Longitude)
				text += "\n📏 Moved " + formatMeters(moved) + " from the previous location"
			}
			reply(owner, text)
			return c.JSON(fiber.Map{"status": "ok", "message": "location updated"})

		case strings.TrimSpace(msg.Text) == "/debug":
			reply(owner, debugReport(ctx, deps))
			return c.JSON(fiber.Map{"status": "ok", "message": "debug info sent"})

		case strings.TrimSpace(msg.Text) == "/status":
			status, err := deps.Guide.Status(ctx)
			if err != nil {
				return errFromDomain(c, err)
			}
			text := status.Message
			if status.Location != nil {
				text += "\n🌍 [View on Map](" + telegram.MapsURL(status.Location.Location.Latitude, status.Location.Location.Longitude) + ")"
			}
			reply(owner, text)
			return c.JSON(fiber.Map{"status": "ok", "message": "status sent"})

		case msg.Text != "":
			reply(owner, msgHelp)
			return c.JSON(fiber.Map{"status": "ok", "message": "help sent"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// TelegramWebhookInfoHandler answers GET probes of the webhook URL.
func TelegramWebhookInfoHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Telegram webhook endpoint is active. Use POST for updates from Telegram."})
	}
}

func formatMeters(m float64) string {
	if m < 1000 {
		return strconv.Itoa(int(math.Round(m))) + " m"
	}
	return strconv.FormatFloat(m/1000, 'f', 1, 64) + " km"
}

func debugReport(ctx context.Context, deps *Dependencies) string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	checks, _ := readiness(ctx, deps)
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("*🔍 Server Debug Info*\n\n")
	for _, name := range names {
		mark := "❌"
		if checks[name] == "ok" {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", mark, name, checks[name])
	}
	if deps.Tracking != nil {
		b.WriteString("Live sessions: " + strconv.Itoa(deps.Tracking.Count()) + "\n")
	}
	return b.String()
}
