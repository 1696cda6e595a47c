package app

import (
	"fmt"
	"path/filepath"

	"ahpbridge/internal/config"
	"ahpbridge/internal/detect"
	"ahpbridge/internal/pipeline"
	"ahpbridge/internal/token"
	"ahpbridge/pkg/logging"
)

// tokenDirName is the token store directory inside the config directory.
const tokenDirName = "tokens"

// Services holds all the initialized services.
type Services struct {
	Config   *config.Manager
	Store    token.Store
	Broker   *token.Broker
	Executor *pipeline.Executor
	Router   *pipeline.Router
	Client   *pipeline.Client
	Catalog  *pipeline.Catalog
	Engine   *detect.Engine

	unbind func()
}

// ServiceOption adjusts service construction.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	store token.Store
}

// WithTokenStore replaces the file token store, for tests and embedding.
func WithTokenStore(store token.Store) ServiceOption {
	return func(o *serviceOptions) {
		o.store = store
	}
}

// InitializeServices creates the services for the settings held by manager.
// The token store lives in the manager's config directory, or in memory
// when the manager has none.
func InitializeServices(manager *config.Manager, opts ...ServiceOption) (*Services, error) {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}

	settings := manager.Current()

	store := o.store
	if store == nil {
		if dir := manager.ConfigDir(); dir != "" {
			fileStore, err := token.NewFileStore(filepath.Join(dir, tokenDirName))
			if err != nil {
				return nil, fmt.Errorf("failed to initialize token store: %w", err)
			}
			store = fileStore
		} else {
			store = token.NewMemoryStore()
		}
	}

	brokerOpts := []token.Option{token.WithStore(store)}
	if settings.Bridge.TokenSafetyMargin > 0 {
		brokerOpts = append(brokerOpts, token.WithSafetyMargin(settings.Bridge.TokenSafetyMargin))
	}
	broker := token.NewBroker(manager, brokerOpts...)

	serverURL := func() string { return manager.Current().ServerBaseURL() }
	execOpts := []pipeline.ExecutorOption{pipeline.WithServerURL(serverURL)}
	if settings.Bridge.StartSession {
		execOpts = append(execOpts, pipeline.WithSessionStart())
	}
	executor := pipeline.NewExecutor(broker, execOpts...)
	router := pipeline.NewRouter(executor, pipeline.WithRequestTimeout(settings.Bridge.RequestTimeout))

	engine := detect.NewEngine()
	unbind := engine.Bind(manager)

	logging.Debug("Services", "Initialized services for %s", settings.ServerBaseURL())

	return &Services{
		Config:   manager,
		Store:    store,
		Broker:   broker,
		Executor: executor,
		Router:   router,
		Client:   pipeline.NewClient(router),
		Catalog:  pipeline.NewCatalog(broker, serverURL),
		Engine:   engine,
		unbind:   unbind,
	}, nil
}

// Close detaches the services from configuration changes.
func (s *Services) Close() {
	if s.unbind != nil {
		s.unbind()
		s.unbind = nil
	}
}
