package app

import (
	"context"
	"fmt"

	"relay/internal/config"
	"relay/internal/diagnostics"
	"relay/internal/events"
	"relay/internal/inspector"
	"relay/internal/mcpserver"
	"relay/internal/protocol"
	"relay/internal/reconciler"
	"relay/internal/secrets"
	"relay/internal/store"
	"relay/internal/supervisor"
	"relay/internal/traffic"
	"relay/pkg/logging"
)

// Services holds all initialized services used by the application.
//
// Service Dependencies:
// The services are initialized in a specific order to handle dependencies:
//  1. Storage, store and vault (shared dependencies)
//  2. Meter and event broker
//  3. Registry and profile reconciler
//  4. Inspector, diagnostics and the definition manager
type Services struct {
	ConfigPath string
	Config     config.RelayConfig

	Storage  *config.Storage
	Store    store.Store
	Vault    secrets.Vault
	Injector *secrets.Injector

	// Meter accumulates traffic of every session and supervised process.
	Meter  *traffic.Meter
	Broker *events.Broker
	Events *events.EventGenerator

	Registry    *supervisor.Registry
	Reconciler  *reconciler.ProfileReconciler
	Inspector   *inspector.Inspector
	Diagnostics *diagnostics.Diagnostics
	Manager     *mcpserver.Manager
}

// InitializeServices creates all services for the application from the
// configuration loaded during bootstrap.
func InitializeServices(ctx context.Context, cfg *Config) (*Services, error) {
	relayCfg := config.GetDefaultConfig()
	if cfg.RelayConfig != nil {
		relayCfg = *cfg.RelayConfig
	}

	storage := config.NewStorageWithPath(cfg.ConfigPath)
	st, err := store.Open(ctx, relayCfg.Store, storage)
	if err != nil {
		return nil, err
	}

	vault := secrets.NewFileVault(relayCfg.SecretsFilePath(cfg.ConfigPath))
	injector := secrets.NewInjector(vault, secrets.ParsePolicy(relayCfg.Secrets.Policy))
	logging.Debug("Services", "Using secret vault %s with policy %s", vault.Path(), relayCfg.Secrets.Policy)

	broker := events.NewBroker()
	meter := traffic.NewMeter(broker.PublishUsage)
	gen := events.NewEventGenerator(broker)

	registry := supervisor.NewRegistry(supervisor.Config{
		Injector:        injector,
		Definitions:     st,
		Meter:           meter,
		Broker:          broker,
		Events:          gen,
		StopGracePeriod: relayCfg.Supervisor.StopGracePeriod,
	})

	inspectorCfg := inspector.Config{
		Definitions:    st,
		Injector:       injector,
		Options:        protocol.OptionsFromConfig(relayCfg.Protocol),
		Recorder:       meter,
		TerminateGrace: relayCfg.Supervisor.StopGracePeriod,
	}

	services := &Services{
		ConfigPath:  cfg.ConfigPath,
		Config:      relayCfg,
		Storage:     storage,
		Store:       st,
		Vault:       vault,
		Injector:    injector,
		Meter:       meter,
		Broker:      broker,
		Events:      gen,
		Registry:    registry,
		Reconciler:  reconciler.NewProfileReconciler(st, registry, gen),
		Inspector:   inspector.New(inspectorCfg),
		Diagnostics: diagnostics.New(inspectorCfg),
		Manager:     mcpserver.NewManager(st, vault, nil),
	}

	logging.Debug("Services", "Initialized services from %s (store driver %s)", cfg.ConfigPath, relayCfg.Store.Driver)
	return services, nil
}

// AttachSupervisor makes definition changes start and stop processes in the
// registry. The serve loop calls it; one-shot commands leave processes alone.
func (s *Services) AttachSupervisor() {
	s.Manager = mcpserver.NewManager(s.Store, s.Vault, s.Registry)
}

// Close releases the store and the event broker.
func (s *Services) Close() error {
	s.Broker.Close()
	if err := s.Store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
