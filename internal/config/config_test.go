package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDetectChannelProviderTelegram(t *testing.T) {
	oldProvider := os.Getenv("CHANNEL_PROVIDER")
	oldTelegram := os.Getenv("TELEGRAM_BOT_TOKEN")
	oldDiscord := os.Getenv("DISCORD_BOT_TOKEN")
	defer func() {
		os.Setenv("CHANNEL_PROVIDER", oldProvider)
		os.Setenv("TELEGRAM_BOT_TOKEN", oldTelegram)
		os.Setenv("DISCORD_BOT_TOKEN", oldDiscord)
	}()

	os.Setenv("CHANNEL_PROVIDER", "")
	os.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	os.Setenv("DISCORD_BOT_TOKEN", "")

	if provider := DetectChannelProvider(); provider != "telegram" {
		t.Errorf("expected telegram, got %s", provider)
	}
}

func TestDetectChannelProviderOverride(t *testing.T) {
	oldProvider := os.Getenv("CHANNEL_PROVIDER")
	oldTelegram := os.Getenv("TELEGRAM_BOT_TOKEN")
	defer func() {
		os.Setenv("CHANNEL_PROVIDER", oldProvider)
		os.Setenv("TELEGRAM_BOT_TOKEN", oldTelegram)
	}()

	os.Setenv("CHANNEL_PROVIDER", "discord")
	os.Setenv("TELEGRAM_BOT_TOKEN", "test-token")

	if provider := DetectChannelProvider(); provider != "discord" {
		t.Errorf("explicit provider should win, got %s", provider)
	}
}

func TestEnvIntFallback(t *testing.T) {
	oldVal := os.Getenv("GAMBOT_HISTORY_WINDOW")
	defer os.Setenv("GAMBOT_HISTORY_WINDOW", oldVal)

	os.Setenv("GAMBOT_HISTORY_WINDOW", "")
	if got := envInt("GAMBOT_HISTORY_WINDOW", 5); got != 5 {
		t.Errorf("expected fallback 5, got %d", got)
	}

	os.Setenv("GAMBOT_HISTORY_WINDOW", "12")
	if got := envInt("GAMBOT_HISTORY_WINDOW", 5); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}

	os.Setenv("GAMBOT_HISTORY_WINDOW", "not-a-number")
	if got := envInt("GAMBOT_HISTORY_WINDOW", 5); got != 5 {
		t.Errorf("garbage should fall back to 5, got %d", got)
	}
}

func TestApplyOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gambot.yml")

	content := []byte(`
history_window: 8
generation_timeout_seconds: 30
combine_keywords:
  - "stitch pictures"
generate_keywords:
  - "paint"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	oldPath := os.Getenv("GAMBOT_CONFIG")
	defer os.Setenv("GAMBOT_CONFIG", oldPath)
	os.Setenv("GAMBOT_CONFIG", path)

	cfg := &Config{HistoryWindow: 5, GenerationTimeout: 60 * time.Second}
	if err := applyOverlay(cfg); err != nil {
		t.Fatalf("overlay failed: %v", err)
	}

	if cfg.HistoryWindow != 8 {
		t.Errorf("expected history window 8, got %d", cfg.HistoryWindow)
	}

	if cfg.GenerationTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.GenerationTimeout)
	}

	if len(cfg.Intent.CombineKeywords) != 1 || cfg.Intent.CombineKeywords[0] != "stitch pictures" {
		t.Errorf("combine keywords not applied: %v", cfg.Intent.CombineKeywords)
	}

	if len(cfg.Intent.GenerateKeywords) != 1 || cfg.Intent.GenerateKeywords[0] != "paint" {
		t.Errorf("generate keywords not applied: %v", cfg.Intent.GenerateKeywords)
	}
}

func TestApplyOverlayMissingFileIsFine(t *testing.T) {
	oldPath := os.Getenv("GAMBOT_CONFIG")
	defer os.Setenv("GAMBOT_CONFIG", oldPath)
	os.Setenv("GAMBOT_CONFIG", filepath.Join(t.TempDir(), "nope.yml"))

	cfg := &Config{HistoryWindow: 5}
	if err := applyOverlay(cfg); err != nil {
		t.Fatalf("missing overlay should not error: %v", err)
	}

	if cfg.HistoryWindow != 5 {
		t.Errorf("config should be unchanged, got %d", cfg.HistoryWindow)
	}
}
