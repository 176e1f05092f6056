package config

import "time"

type Config struct {
	HistoryWindow      int
	GenerationTimeout  time.Duration
	CacheTTL           time.Duration
	MediaWarnThreshold int

	// TranscriptPath enables the durable turn log when non-empty.
	TranscriptPath string

	Text     GeneratorConfig
	Image    GeneratorConfig
	Channel  ChannelConfig
	Artifact ArtifactConfig
	Intent   IntentConfig
}

type GeneratorConfig struct {
	APIKey string
	Model  string
}

type ChannelConfig struct {
	Provider string
	Token    string
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type IntentConfig struct {
	CombineKeywords  []string
	GenerateKeywords []string
}
