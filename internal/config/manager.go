package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"ahpbridge/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval collapses the burst of events an editor or an
// atomic rename produces into one reload.
const DefaultDebounceInterval = 250 * time.Millisecond

// Manager owns the current settings and fans out change notifications.
// It is safe for concurrent use.
type Manager struct {
	mu sync.RWMutex
	// notifyMu serializes Set so subscribers see changes in update order.
	notifyMu    sync.Mutex
	configDir   string
	current     Settings
	subscribers map[int]func(Settings)
	nextID      int

	debounceInterval time.Duration
}

// NewManager loads settings from configDir and returns a manager for them.
func NewManager(configDir string) (*Manager, error) {
	settings, err := LoadSettings(configDir)
	if err != nil {
		return nil, err
	}
	return &Manager{
		configDir:        configDir,
		current:          settings,
		subscribers:      make(map[int]func(Settings)),
		debounceInterval: DefaultDebounceInterval,
	}, nil
}

// NewStaticManager wraps fixed settings, for tests and embedded use.
// Reload and Watch are no-ops without a config directory.
func NewStaticManager(settings Settings) *Manager {
	return &Manager{
		current:          withDefaults(settings),
		subscribers:      make(map[int]func(Settings)),
		debounceInterval: DefaultDebounceInterval,
	}
}

// ConfigDir returns the directory the manager loads from.
func (m *Manager) ConfigDir() string {
	return m.configDir
}

// Current returns a copy of the current settings.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Credential returns the current credential. It satisfies the token
// broker's credential source.
func (m *Manager) Credential() Credential {
	return m.Current().Credential()
}

// Subscribe registers fn to be called with the new settings after every
// change. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Settings)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Set replaces the settings and notifies subscribers when they differ.
// Subscribers must not call Set.
func (m *Manager) Set(settings Settings) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	changed := !reflect.DeepEqual(m.current, settings)
	m.current = settings
	subs := make([]func(Settings), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(settings)
	}
}

// Reload re-reads the settings file. On failure the previous settings stay
// in effect.
func (m *Manager) Reload() error {
	if m.configDir == "" {
		return nil
	}
	settings, err := LoadSettings(m.configDir)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", ConfigFilePath(m.configDir), err)
	}
	m.Set(settings)
	return nil
}

// Watch reloads the settings whenever config.yaml changes until ctx is done.
// It returns once the watch is established.
func (m *Manager) Watch(ctx context.Context) error {
	if m.configDir == "" {
		return nil
	}
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Watch the directory: atomic saves replace the file, which drops a
	// watch placed on the file itself.
	if err := watcher.Add(m.configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", m.configDir, err)
	}

	logging.Info("Config", "Watching %s for configuration changes", m.configDir)
	go m.processEvents(ctx, watcher)
	return nil
}

func (m *Manager) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	target := ConfigFilePath(m.configDir)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.debounceInterval, func() {
				if err := m.Reload(); err != nil {
					logging.Warn("Config", "Keeping previous configuration: %v", err)
					return
				}
				logging.Debug("Config", "Configuration reloaded from %s", target)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Config", err, "Configuration watcher error")
		}
	}
}
