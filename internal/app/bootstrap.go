package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"ahpbridge/internal/agent"
	"ahpbridge/internal/bridge"
	"ahpbridge/internal/config"
	"ahpbridge/internal/document"
	"ahpbridge/internal/inject"
	"ahpbridge/pkg/logging"
)

// Application represents the main application structure that bootstraps
// and runs ahpbridge. It follows a two-phase initialization pattern:
//  1. Bootstrap phase: configure logging, load settings, set up services
//  2. Execution phase: Start runs the router loop until Close
type Application struct {
	config   *Config
	services *Services

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
}

// NewApplication creates and initializes a new application instance with
// the provided configuration.
func NewApplication(cfg *Config, opts ...ServiceOption) (*Application, error) {
	var logOutput io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	if cfg.Silent {
		logOutput = io.Discard
	}

	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", cfg.LogLevel)
	}
	logging.InitForCLI(level, logOutput)

	configDir := cfg.ConfigDir
	if configDir == "" {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configDir)
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// The flag wins; otherwise the configured level applies.
	if cfg.LogLevel == "" && manager.Current().LogLevel != "" {
		if configured, ok := logging.ParseLevel(manager.Current().LogLevel); ok {
			logging.InitForCLI(configured, logOutput)
		} else {
			logging.Warn("Bootstrap", "Ignoring unknown logLevel %q", manager.Current().LogLevel)
		}
	}

	services, err := InitializeServices(manager, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Settings returns the current settings.
func (a *Application) Settings() config.Settings {
	return a.services.Config.Current()
}

// Start runs the router loop, and the configuration watcher when enabled,
// until ctx is done or Close is called.
func (a *Application) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errors.New("application already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if a.config.Watch {
		if err := a.services.Config.Watch(runCtx); err != nil {
			cancel()
			return fmt.Errorf("failed to watch configuration: %w", err)
		}
	}

	go func() {
		if err := a.services.Router.Serve(runCtx); err != nil {
			logging.Error("Bootstrap", err, "Router stopped")
		}
	}()

	a.cancel = cancel
	a.started = true
	logging.Debug("Bootstrap", "Application started")
	return nil
}

// Close stops the router, waits for requests in flight and releases the
// services.
func (a *Application) Close() {
	a.mu.Lock()
	cancel, started := a.cancel, a.started
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-a.services.Router.Stopped()
	}
	a.services.Close()
}

// NewInjector creates a result injector for the current settings.
func (a *Application) NewInjector() (*inject.Injector, error) {
	return inject.FromSettings(a.Settings())
}

// NewController creates a bridge controller for doc.
func (a *Application) NewController(doc *document.Document, opts ...bridge.Option) (*bridge.Controller, error) {
	injector, err := a.NewInjector()
	if err != nil {
		return nil, err
	}
	return bridge.NewController(doc, a.services.Engine, a.services.Client, injector, opts...), nil
}

// NewSession creates an interactive session over the services, for the
// REPL and the MCP server.
func (a *Application) NewSession() *agent.Session {
	return agent.NewSession(a.services.Engine, a.services.Client, a.services.Broker,
		agent.WithToolLister(a.services.Catalog))
}
