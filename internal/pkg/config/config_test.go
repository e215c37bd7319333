package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/darshanam/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("darshanam-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Alignment.ThresholdDegrees != 15 {
		t.Errorf("expected threshold 15, got %g", cfg.Alignment.ThresholdDegrees)
	}
	if cfg.Alignment.SmoothingAlpha != 0.25 {
		t.Errorf("expected alpha 0.25, got %g", cfg.Alignment.SmoothingAlpha)
	}
	if cfg.Guide.StaleAfterMinutes != 60 {
		t.Errorf("expected stale after 60, got %d", cfg.Guide.StaleAfterMinutes)
	}
	if cfg.Telemetry.ServiceName != "darshanam-test" {
		t.Errorf("expected service name default, got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Telegram.Enabled() {
		t.Error("telegram should be disabled without a token")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DARSHANAM_ALIGNMENT_THRESHOLD_DEGREES", "20")
	t.Setenv("DARSHANAM_SERVER_PORT", "9090")
	cfg, err := config.Load("darshanam-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Alignment.ThresholdDegrees != 20 {
		t.Errorf("expected threshold 20, got %g", cfg.Alignment.ThresholdDegrees)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestLoad_EnvInvalid(t *testing.T) {
	t.Setenv("DARSHANAM_ALIGNMENT_SMOOTHING_ALPHA", "1.5")
	if _, err := config.Load("darshanam-test"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, want := range []string{"server.port", "database.host", "alignment.threshold_degrees", "alignment.smoothing_alpha", "sun.base_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got %v", want, err)
		}
	}
}

func TestValidate_TelegramNeedsChat(t *testing.T) {
	cfg, err := config.Load("darshanam-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Telegram.BotToken = "123:abc"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "telegram.chat_id") {
		t.Errorf("expected telegram.chat_id error, got %v", err)
	}
	cfg.Telegram.ChatID = 42
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
