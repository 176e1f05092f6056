package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arifsetiawan/gambot/internal/artifact"
	"github.com/arifsetiawan/gambot/internal/cache"
	"github.com/arifsetiawan/gambot/internal/channel"
	"github.com/arifsetiawan/gambot/internal/compose"
	"github.com/arifsetiawan/gambot/internal/config"
	"github.com/arifsetiawan/gambot/internal/genai"
	"github.com/arifsetiawan/gambot/internal/intent"
	"github.com/arifsetiawan/gambot/internal/logger"
	"github.com/arifsetiawan/gambot/internal/maintenance"
	"github.com/arifsetiawan/gambot/internal/router"
	"github.com/arifsetiawan/gambot/internal/session"
	"github.com/arifsetiawan/gambot/internal/transcript"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func init() {
	godotenv.Load()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	textGen := genai.NewTextGenerator(genai.Config{
		APIKey: cfg.Text.APIKey,
		Model:  cfg.Text.Model,
	})
	imageGen := genai.NewImageGenerator(genai.Config{
		APIKey: cfg.Image.APIKey,
		Model:  cfg.Image.Model,
	})

	sessions := session.NewStore(cfg.HistoryWindow)
	responseCache := cache.New(cfg.CacheTTL)

	fetcher := compose.NewHTTPFetcher(cfg.GenerationTimeout)
	workflow := compose.NewWorkflow(imageGen, responseCache, fetcher)

	// durable transcript (optional)
	var transcriptStore *transcript.Store
	if cfg.TranscriptPath != "" {
		db, err := sql.Open("sqlite3", cfg.TranscriptPath)
		if err != nil {
			logger.Fatal("failed to open transcript db", "error", err)
		}
		defer db.Close()

		transcriptStore, err = transcript.NewStore(db, 0)
		if err != nil {
			logger.Fatal("failed to create transcript store", "error", err)
		}
		logger.Info("transcript enabled", "path", cfg.TranscriptPath)
	}

	// minio artifact archive (optional)
	var archive *artifact.Client
	if cfg.Artifact.Enabled {
		archive, err = artifact.NewClient(artifact.Config{
			Endpoint:  cfg.Artifact.Endpoint,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			UseSSL:    cfg.Artifact.UseSSL,
			Bucket:    cfg.Artifact.Bucket,
		})
		if err != nil {
			logger.Error("failed to create artifact client", "error", err)
			archive = nil
		} else {
			initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := archive.Init(initCtx); err != nil {
				logger.Error("failed to init artifact bucket", "error", err)
				archive = nil
			} else {
				logger.Info("artifact archive enabled", "endpoint", cfg.Artifact.Endpoint)
			}
			cancel()
		}
	}

	r := router.New(router.Options{
		Classifier: intent.NewClassifier(cfg.Intent.CombineKeywords, cfg.Intent.GenerateKeywords),
		Sessions:   sessions,
		Cache:      responseCache,
		Text:       textGen,
		Image:      imageGen,
		Workflow:   workflow,
		Transcript: transcriptStore,
		Archive:    archive,
		Timeout:    cfg.GenerationTimeout,
	})

	sweeper := maintenance.NewSweeper(sessions, responseCache, cfg.MediaWarnThreshold)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("failed to start maintenance sweeper", "error", err)
	}
	defer sweeper.Stop()

	ch, err := channel.New(channel.Config{
		Provider: cfg.Channel.Provider,
		Token:    cfg.Channel.Token,
	}, r)
	if err != nil {
		logger.Fatal("failed to create channel", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := ch.Start(ctx); err != nil {
			logger.Fatal("channel stopped", "error", err)
		}
	}()

	logger.Info("gambot started",
		"channel", cfg.Channel.Provider,
		"text_model", cfg.Text.Model,
		"image_model", cfg.Image.Model,
		"history_window", cfg.HistoryWindow,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
}
