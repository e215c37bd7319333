package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// ErrAPI is returned when Telegram answers ok=false.
var ErrAPI = errors.New("telegram api error")

// Bot is a minimal Telegram Bot API client. It implements
// ports.NotificationService with the recipient as a chat id.
type Bot struct {
	token   string
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

// New creates a bot. client may be nil.
func New(token, baseURL string, client *fasthttp.Client) *Bot {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &fasthttp.Client{
			Name:                "darshanam",
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: time.Minute,
		}
	}
	return &Bot{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		timeout: 10 * time.Second,
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// SendMessage sends a Markdown message to a chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(b.baseURL + "/bot" + b.token + "/sendMessage")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := b.timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}
	if err := b.http.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}

	var out apiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return fmt.Errorf("telegram sendMessage: HTTP %d: %w", resp.StatusCode(), err)
	}
	if !out.OK {
		return fmt.Errorf("%w: %d %s", ErrAPI, out.ErrorCode, out.Description)
	}
	return nil
}

// SendPush sends title and body as one message to the chat id in recipient.
func (b *Bot) SendPush(ctx context.Context, recipient, title, body string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram recipient %q: %w", recipient, err)
	}
	text := body
	if title != "" {
		text = "*" + title + "*\n" + body
	}
	return b.SendMessage(ctx, chatID, text)
}
