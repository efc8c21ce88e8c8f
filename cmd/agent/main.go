package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipforge/clipforge-agent/internal/api"
	"github.com/clipforge/clipforge-agent/internal/cache"
	"github.com/clipforge/clipforge-agent/internal/compositor"
	"github.com/clipforge/clipforge-agent/internal/config"
	"github.com/clipforge/clipforge-agent/internal/db"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/logging"
	"github.com/clipforge/clipforge-agent/internal/media"
	"github.com/clipforge/clipforge-agent/internal/oracle"
	"github.com/clipforge/clipforge-agent/internal/pipeline"
	"github.com/clipforge/clipforge-agent/internal/resolver"
	"github.com/clipforge/clipforge-agent/internal/session"
	"github.com/clipforge/clipforge-agent/internal/ui"
	"github.com/clipforge/clipforge-agent/internal/video"
	"github.com/clipforge/clipforge-agent/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipforge agent", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := video.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   CLIPFORGE AGENT v0.1.0                  ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	cacheStore, err := cache.NewStore(database.Conn(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis cache: %w", err)
	}

	doctor := pipeline.NewCachedDoctor(pipeline.NewToolProber(cfg.OracleDriver() != "stub"), logger)
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	caps, err := doctor.Refresh(initCtx)
	initCancel()
	if err != nil {
		logger.Warn("initial capability probe failed", "error", err)
	} else {
		logger.Info("capabilities detected",
			"ffmpeg", caps.HasFFmpeg,
			"ffprobe", caps.HasFFprobe,
			"oracle", caps.OracleConfigured,
		)
	}

	var ffmpeg pipeline.FFmpeg = pipeline.NewFFmpeg()
	if caps == nil || !caps.CanExport() {
		logger.Warn("media tools missing, probe and transcript extraction disabled")
		ffmpeg = pipeline.NewStubFFmpeg(logger)
	}

	oracleClient := buildOracle(cfg, ffmpeg, logger)

	videoSvc := video.NewService(repo, cacheStore, ffmpeg.Duration, logger)

	exports, err := export.NewStore(cfg.ArtifactsDir(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize export store: %w", err)
	}

	comp := compositor.New(
		compositor.NewFFmpegSource(logger),
		compositor.NewFFmpegSink(logger),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := video.NewRunner(repo, oracleClient, cacheStore, comp, cfg.ArtifactsDir(), logger)
	go runner.Start(ctx)

	startWatcher(ctx, cfg, videoSvc, logger)

	sessions := session.NewManager(logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		VideoService: videoSvc,
		Repository:   repo,
		Sessions:     sessions,
		Resolver:     resolver.New(logger),
		Oracle:       oracleClient,
		Cache:        cacheStore,
		Runner:       runner,
		Doctor:       doctor,
		Exports:      exports,
		Media:        media.NewServer(logger),
		Logger:       logger,
		StartTime:    startTime,
		DeviceID:     deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			VideoService: videoSvc,
			Runner:       runner,
			Logger:       logger,
			OnOpenExports: func() error {
				logger.Info("exports folder", "path", logging.SanitizePath(exports.Dir()))
				return nil
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildOracle selects the analysis/intent backend. Misconfiguration degrades
// to the stub so the agent still serves playback and manual edits.
func buildOracle(cfg config.Config, ffmpeg pipeline.FFmpeg, logger *slog.Logger) oracle.Client {
	switch cfg.OracleDriver() {
	case "openai":
		client, err := oracle.NewOpenAIClient(oracle.OpenAIConfig{
			APIKey:  cfg.OracleAPIKey(),
			BaseURL: cfg.OracleBaseURL(),
			Model:   cfg.OracleModel(),
		}, ffmpeg.Transcript, logger)
		if err != nil {
			logger.Warn("openai oracle unavailable, falling back to stub", "error", err)
			return oracle.NewStubClient(logger)
		}
		logger.Info("oracle configured", "driver", "openai", "model", cfg.OracleModel())
		return client
	case "remote":
		if cfg.OracleBaseURL() == "" {
			logger.Warn("remote oracle needs a base URL, falling back to stub")
			return oracle.NewStubClient(logger)
		}
		logger.Info("oracle configured", "driver", "remote", "base_url", cfg.OracleBaseURL())
		return oracle.NewHTTPClient(cfg.OracleBaseURL(), cfg.OracleAPIKey(), logger)
	default:
		logger.Info("oracle configured", "driver", "stub")
		return oracle.NewStubClient(logger)
	}
}

// startWatcher begins media-drop watching when a media dir is configured.
// Dropped videos register themselves; removed ones are marked missing.
func startWatcher(ctx context.Context, cfg config.Config, videoSvc *video.Service, logger *slog.Logger) {
	dir := cfg.MediaDir()
	if dir == "" {
		return
	}

	w, err := watcher.NewFSWatcher(logger, video.IsVideoFile)
	if err != nil {
		logger.Warn("filesystem watcher unavailable", "error", err)
		return
	}

	w.OnChange(func(path string, event watcher.EventType) {
		switch event {
		case watcher.EventDelete:
			if err := videoSvc.SetPresent(ctx, path, false); err != nil {
				logger.Warn("failed to mark video missing", "path", logging.SanitizePath(path), "error", err)
			}
		default:
			if _, _, err := videoSvc.Register(ctx, path); err != nil {
				logger.Warn("failed to register dropped video", "path", logging.SanitizePath(path), "error", err)
			}
		}
	})

	if err := w.Watch(ctx, dir); err != nil {
		logger.Warn("failed to watch media dir", "dir", logging.SanitizePath(dir), "error", err)
		return
	}
	logger.Info("watching media dir", "dir", logging.SanitizePath(dir))
}

func ensureDeviceID(repo video.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo video.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
