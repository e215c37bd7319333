package telegram_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/samirrijal/darshanam/internal/adapters/telegram"
)

type captured struct {
	path string
	body map[string]any
}

func startFakeAPI(t *testing.T, reply string) (*telegram.Bot, *captured) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	got := &captured{}
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		got.path = string(ctx.Path())
		_ = json.Unmarshal(ctx.PostBody(), &got.body)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(reply)
	}}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client := &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
	return telegram.New("123:abc", "http://telegram.test", client), got
}

func TestBot_SendPush(t *testing.T) {
	bot, got := startFakeAPI(t, `{"ok":true}`)
	if err := bot.SendPush(context.Background(), "42", "Sunset soon", "Sunset in 20 minutes."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.path != "/bot123:abc/sendMessage" {
		t.Errorf("unexpected path %q", got.path)
	}
	if got.body["chat_id"] != float64(42) {
		t.Errorf("unexpected chat_id %v", got.body["chat_id"])
	}
	if got.body["text"] != "*Sunset soon*\nSunset in 20 minutes." {
		t.Errorf("unexpected text %q", got.body["text"])
	}
}

func TestBot_APIError(t *testing.T) {
	bot, _ := startFakeAPI(t, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
	err := bot.SendMessage(context.Background(), 42, "hi")
	if !errors.Is(err, telegram.ErrAPI) {
		t.Fatalf("expected ErrAPI, got %v", err)
	}
}

func TestBot_BadRecipient(t *testing.T) {
	bot := telegram.New("t", "", nil)
	if err := bot.SendPush(context.Background(), "@guide", "", "x"); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

func TestMapsURL(t *testing.T) {
	if got := telegram.MapsURL(12.3052, 76.6552); got != "https://www.google.com/maps?q=12.305200,76.655200" {
		t.Errorf("unexpected url %q", got)
	}
}
