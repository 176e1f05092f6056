package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHistoryWindow      = 5
	defaultTimeoutSeconds     = 60
	defaultMediaWarnThreshold = 50
)

func Load() (*Config, error) {
	cfg := &Config{
		HistoryWindow:      envInt("GAMBOT_HISTORY_WINDOW", defaultHistoryWindow),
		GenerationTimeout:  time.Duration(envInt("GAMBOT_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second,
		CacheTTL:           time.Duration(envInt("GAMBOT_CACHE_TTL_MINUTES", 0)) * time.Minute,
		MediaWarnThreshold: envInt("GAMBOT_MEDIA_WARN_THRESHOLD", defaultMediaWarnThreshold),
		TranscriptPath:     os.Getenv("GAMBOT_TRANSCRIPT"),
	}

	cfg.Text = GeneratorConfig{
		APIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:  os.Getenv("GAMBOT_TEXT_MODEL"),
	}
	if cfg.Text.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	cfg.Image = GeneratorConfig{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  os.Getenv("GAMBOT_IMAGE_MODEL"),
	}
	if cfg.Image.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	channel, err := loadChannelConfig()
	if err != nil {
		return nil, err
	}
	cfg.Channel = channel

	cfg.Artifact = loadArtifactConfig()

	if err := applyOverlay(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DetectChannelProvider picks a channel from whichever token is set.
// CHANNEL_PROVIDER overrides.
func DetectChannelProvider() string {
	if p := os.Getenv("CHANNEL_PROVIDER"); p != "" {
		return p
	}
	if os.Getenv("TELEGRAM_BOT_TOKEN") != "" {
		return "telegram"
	}
	if os.Getenv("DISCORD_BOT_TOKEN") != "" {
		return "discord"
	}
	return ""
}

func loadChannelConfig() (ChannelConfig, error) {
	provider := DetectChannelProvider()

	switch provider {
	case "telegram":
		token := os.Getenv("TELEGRAM_BOT_TOKEN")
		if token == "" {
			return ChannelConfig{}, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
		}
		return ChannelConfig{Provider: provider, Token: token}, nil
	case "discord":
		token := os.Getenv("DISCORD_BOT_TOKEN")
		if token == "" {
			return ChannelConfig{}, fmt.Errorf("DISCORD_BOT_TOKEN not set")
		}
		return ChannelConfig{Provider: provider, Token: token}, nil
	case "":
		return ChannelConfig{}, fmt.Errorf("no channel token set (TELEGRAM_BOT_TOKEN or DISCORD_BOT_TOKEN)")
	default:
		return ChannelConfig{}, fmt.Errorf("unknown channel provider: %s", provider)
	}
}

func loadArtifactConfig() ArtifactConfig {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")

	return ArtifactConfig{
		Enabled:   accessKey != "" && secretKey != "",
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		Bucket:    os.Getenv("MINIO_BUCKET"),
	}
}

// overlay is the optional YAML file for non-secret tunables. Secrets
// stay in the environment.
type overlay struct {
	HistoryWindow      int      `yaml:"history_window"`
	TimeoutSeconds     int      `yaml:"generation_timeout_seconds"`
	CacheTTLMinutes    int      `yaml:"cache_ttl_minutes"`
	MediaWarnThreshold int      `yaml:"media_warn_threshold"`
	CombineKeywords    []string `yaml:"combine_keywords"`
	GenerateKeywords   []string `yaml:"generate_keywords"`
}

func applyOverlay(cfg *Config) error {
	path := os.Getenv("GAMBOT_CONFIG")
	if path == "" {
		path = "gambot.yml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config overlay: %w", err)
	}

	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parse config overlay %s: %w", path, err)
	}

	if o.HistoryWindow > 0 {
		cfg.HistoryWindow = o.HistoryWindow
	}
	if o.TimeoutSeconds > 0 {
		cfg.GenerationTimeout = time.Duration(o.TimeoutSeconds) * time.Second
	}
	if o.CacheTTLMinutes > 0 {
		cfg.CacheTTL = time.Duration(o.CacheTTLMinutes) * time.Minute
	}
	if o.MediaWarnThreshold > 0 {
		cfg.MediaWarnThreshold = o.MediaWarnThreshold
	}
	cfg.Intent.CombineKeywords = o.CombineKeywords
	cfg.Intent.GenerateKeywords = o.GenerateKeywords

	return nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return n
}
