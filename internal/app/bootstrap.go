package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"relay/internal/config"
	"relay/pkg/logging"
)

// Application represents the main application structure that bootstraps and runs relay.
// It encapsulates the loaded configuration and the wired services.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: Load configuration, initialize logging, setup services
//  2. Execution phase: Run the serve loop, or let a command use Services directly
//
// Example usage:
//
//	cfg := app.NewConfig(false, false, "")
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	defer application.Close()
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
// This function performs the complete bootstrap sequence:
//
//  1. Configures logging based on debug settings
//  2. Loads config.yaml from the config directory
//  3. Opens the store and the secret vault
//  4. Wires the supervisor, reconciler, inspector and diagnostics
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stderr
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForCLI(logLevel(cfg, ""), logOutput)

	if cfg.ConfigPath == "" {
		dir, err := config.GetUserConfigDir()
		if err != nil {
			return nil, err
		}
		cfg.ConfigPath = dir
	}

	relayCfg, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load relay configuration from path: %s", cfg.ConfigPath)
		return nil, fmt.Errorf("failed to load relay configuration from path %s: %w", cfg.ConfigPath, err)
	}
	cfg.RelayConfig = &relayCfg

	// Re-initialize now that the configured level is known
	logging.InitForCLI(logLevel(cfg, relayCfg.LogLevel), logOutput)

	services, err := InitializeServices(ctx, cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func logLevel(cfg *Config, configured string) logging.LogLevel {
	if cfg.Debug {
		return logging.LevelDebug
	}
	return logging.ParseLevel(configured)
}

// Services returns the wired services.
func (a *Application) Services() *Services {
	return a.services
}

// Config returns the application configuration.
func (a *Application) Config() *Config {
	return a.config
}

// Run executes the serve loop.
//
// Handles graceful shutdown via context cancellation and system signals.
// The method blocks until the application is terminated.
func (a *Application) Run(ctx context.Context) error {
	return runServe(ctx, a.config, a.services)
}

// Close releases the store and the event broker.
func (a *Application) Close() error {
	return a.services.Close()
}
