// Command menubarmaid is the desktop screenshot agent: it watches the
// desktop, serves the HTTP API and web grid, and answers the tray front end
// over a unix socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sebfried/menubarmaid/internal/api"
	"github.com/sebfried/menubarmaid/internal/backup"
	"github.com/sebfried/menubarmaid/internal/config"
	"github.com/sebfried/menubarmaid/internal/database"
	"github.com/sebfried/menubarmaid/internal/event"
	"github.com/sebfried/menubarmaid/internal/feed"
	"github.com/sebfried/menubarmaid/internal/ipc"
	"github.com/sebfried/menubarmaid/internal/launcher"
	"github.com/sebfried/menubarmaid/internal/logging"
	"github.com/sebfried/menubarmaid/internal/maintenance"
	"github.com/sebfried/menubarmaid/internal/screenshot"
	"github.com/sebfried/menubarmaid/internal/settings"
	"github.com/sebfried/menubarmaid/internal/version"
	"github.com/sebfried/menubarmaid/internal/watcher"
	"github.com/sebfried/menubarmaid/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Relaunches inside an app bundle on macOS when enabled; returns
	// immediately everywhere else.
	if cfg.App.Bundle {
		startBundle(cfg.App)
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	settingsService := settings.NewService(db)

	// Stored logging settings override the config file.
	if stored := settingsService.LoggingConfig(ctx, cfg.Logging); stored != cfg.Logging {
		logManager.Reconfigure(stored)
		logger.Info("applied stored logging settings", slog.String("config", stored.String()))
	}

	maintenanceService := maintenance.NewService(db, cfg.Database.Path, settingsService, logger)
	backupService := backup.NewService(db, cfg.Database.BackupDir, cfg.Database.BackupRetention, logger)

	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	matcher, err := screenshot.RuleByName(cfg.Desktop.Match)
	if err != nil {
		return fmt.Errorf("selecting match rule: %w", err)
	}
	locator := screenshot.NewLocator(cfg.Desktop.Path, matcher, logger)
	watcherService := watcher.NewService(locator, eventBus, logger, cfg.Desktop.WatcherOptions())

	screenshotFeed := feed.New(eventBus, cfg.Desktop.BufferSize, logger)
	screenshotFeed.Start()
	defer screenshotFeed.Stop()

	shortcutLauncher := launcher.New(logger, launcher.Options{
		Bus:   eventBus,
		Usage: settingsService,
	})

	dispatcher := webhook.NewDispatcher(webhookEndpoints(cfg.Webhooks), logger)
	defer dispatcher.Wait()
	for _, sub := range dispatcher.Subscribe(eventBus) {
		defer sub.Cancel()
	}

	router := api.NewRouter(api.RouterDeps{
		Feed:        screenshotFeed,
		Source:      watcherService,
		Shortcuts:   shortcutLauncher,
		Settings:    settingsService,
		Maintenance: maintenanceService,
		Backups:     backupService,
		LogManager:  logManager,
		Logger:      logger,
		BasePath:    cfg.Server.BasePath,
		Token:       cfg.Server.Token,
		WatchedDir:  cfg.Desktop.Path,
		Keepalive:   cfg.Server.Keepalive,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	wg.Go(func() { watcherService.Start(ctx) })
	wg.Go(func() { maintenanceService.StartScheduler(ctx) })
	if cfg.Database.BackupInterval > 0 {
		wg.Go(func() { backupService.StartScheduler(ctx, cfg.Database.BackupInterval) })
	}

	if cfg.IPC.Enabled {
		ipcServer := ipc.NewServer(cfg.IPC.Socket, watcherService, shortcutLauncher, logger)
		ln, err := ipcServer.Listen()
		if err != nil {
			stop()
			return fmt.Errorf("starting ipc: %w", err)
		}
		wg.Go(func() {
			if err := ipcServer.Serve(ctx, ln); err != nil {
				logger.Error("ipc server error", "error", err)
			}
		})
	}

	go func() {
		logger.Info("starting server",
			slog.String("addr", srv.Addr),
			slog.String("base_path", cfg.Server.BasePath),
			slog.String("desktop", cfg.Desktop.Path),
			slog.String("match", cfg.Desktop.Match),
			slog.String("version", version.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func webhookEndpoints(in []config.WebhookEndpoint) []webhook.Endpoint {
	out := make([]webhook.Endpoint, 0, len(in))
	for _, ep := range in {
		out = append(out, webhook.Endpoint{
			Name:   ep.Name,
			URL:    ep.URL,
			Type:   ep.Type,
			Events: ep.Events,
		})
	}
	return out
}
