package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/robalyx/warden/internal/automod/engine"
	"github.com/robalyx/warden/internal/guildstate"
	"github.com/robalyx/warden/internal/modlog"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config        *config.Config         // Application configuration
	Logger        *zap.Logger            // Main application logger
	Operator      *zap.Logger            // Logger for entries needing operator attention
	LogManager    *telemetry.Manager     // Log management system
	Modlog        *modlog.Store          // Notes and warnings store
	GuildLoader   *guildstate.FileLoader // Guild document loader
	States        *guildstate.Manager    // Per-guild moderation state
	metricsServer *metricsServer         // HTTP server for Prometheus metrics
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(logDir string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(logDir, &cfg.Debug)

	logger, operator, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	store, err := modlog.Open(cfg.Moderation.ModlogPath)
	if err != nil {
		logManager.Stop()
		return nil, fmt.Errorf("failed to open modlog: %w", err)
	}

	loader := guildstate.NewFileLoader(cfg.Moderation.GuildConfigDir, logger)
	states := guildstate.NewManager(loader, logger, operator, engine.Modules()...)

	var metricsSrv *metricsServer

	if cfg.Debug.MetricsPort > 0 {
		srv, err := startMetricsServer(cfg.Debug.MetricsPort, logger)
		if err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		} else {
			metricsSrv = srv
		}
	}

	logger.Info("Application initialized",
		zap.String("guild_config_dir", cfg.Moderation.GuildConfigDir),
		zap.Bool("watch_configs", cfg.Moderation.WatchConfigs))

	return &App{
		Config:        cfg,
		Logger:        logger,
		Operator:      operator,
		LogManager:    logManager,
		Modlog:        store,
		GuildLoader:   loader,
		States:        states,
		metricsServer: metricsSrv,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	if s.metricsServer != nil {
		if err := s.metricsServer.srv.Shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown metrics server", zap.Error(err))
		}

		s.metricsServer.listener.Close()
	}

	s.GuildLoader.Close()

	if err := s.Modlog.Close(); err != nil {
		log.Printf("Failed to close modlog: %v", err)
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.Operator.Sync(); err != nil {
		log.Printf("Failed to sync operator logger: %v", err)
	}

	s.LogManager.Stop()
}
