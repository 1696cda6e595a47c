package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600))
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	settings, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, ServerTypeDefault, settings.ServerType)
	assert.Equal(t, DefaultServerURL, settings.ServerBaseURL())
	assert.Equal(t, DefaultSettleDelay, settings.Bridge.SettleDelay)
	assert.Equal(t, DefaultInputSelectors, settings.Bridge.InputSelectors)
}

func TestLoadSettings_File(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
serverType: custom
customServerUrl: http://localhost:8080/
email: a@b.com
preSharedKey: k1
bridge:
  settleDelay: 50ms
  inputSelectors: ["#chat-input"]
`)

	settings, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", settings.ServerBaseURL())
	assert.Equal(t, 50*time.Millisecond, settings.Bridge.SettleDelay)
	assert.Equal(t, []string{"#chat-input"}, settings.Bridge.InputSelectors)
	// Untouched defaults survive the overlay.
	assert.Equal(t, DefaultTokenSafetyMargin, settings.Bridge.TokenSafetyMargin)

	cred := settings.Credential()
	assert.True(t, cred.Complete())
	assert.Equal(t, "a@b.com", cred.AgentIdentity)
}

func TestLoadSettings_ParseError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "serverType: [unclosed")

	_, err := LoadSettings(dir)
	require.Error(t, err)

	var ce ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "parse", ce.ErrorType)
	assert.Equal(t, "config.yaml", ce.FileName)
	assert.NotEmpty(t, ce.Suggestions)
}

func TestLoadSettings_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "email: file@b.com\n")

	t.Setenv(EnvServerURL, "http://env-server")
	t.Setenv(EnvPreSharedKey, "env-key")

	settings, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, ServerTypeCustom, settings.ServerType)
	assert.Equal(t, "http://env-server", settings.ServerBaseURL())
	assert.Equal(t, "env-key", settings.PreSharedKey)
	assert.Equal(t, "file@b.com", settings.Email)
}

func TestLoadFileSettings_IgnoresEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "email: file@b.com\n")
	t.Setenv(EnvServerURL, "http://env-server")
	t.Setenv(EnvEmail, "env@b.com")

	settings, err := LoadFileSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, ServerTypeDefault, settings.ServerType)
	assert.Equal(t, "file@b.com", settings.Email)
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	settings := GetDefaultSettings()
	settings.Email = "a@b.com"
	settings.PreSharedKey = "k1"

	require.NoError(t, SaveSettings(dir, settings))

	info, err := os.Stat(ConfigFilePath(dir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestCredential_Missing(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		missing  []string
	}{
		{"complete", Settings{Email: "a@b.com", PreSharedKey: "k1"}, nil},
		{"no email", Settings{PreSharedKey: "k1"}, []string{"email"}},
		{"no key", Settings{Email: "a@b.com"}, []string{"preSharedKey"}},
		{"custom without url", Settings{ServerType: ServerTypeCustom, Email: "a@b.com", PreSharedKey: "k1"}, []string{"customServerUrl"}},
		{"whitespace only", Settings{Email: "  ", PreSharedKey: "\t"}, []string{"email", "preSharedKey"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, tt.settings.Credential().Missing())
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	valid := GetDefaultSettings()
	assert.NoError(t, valid.Validate())

	bad := GetDefaultSettings()
	bad.ServerType = ServerTypeCustom
	bad.CustomServerURL = "ftp://nope"
	bad.Email = "not-an-email"
	bad.Bridge.ResultTemplate = "{{ .Payload "
	bad.Bridge.InputSelectors = []string{"textarea", "div[["}

	err := bad.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 4)
}

func TestManager_SubscribeAndSet(t *testing.T) {
	m := NewStaticManager(Settings{Email: "a@b.com"})

	var got []Settings
	unsubscribe := m.Subscribe(func(s Settings) { got = append(got, s) })

	next := m.Current()
	next.ServerType = ServerTypeCustom
	next.CustomServerURL = "http://other"
	m.Set(next)
	m.Set(next) // unchanged: no notification

	require.Len(t, got, 1)
	assert.Equal(t, "http://other", got[0].ServerBaseURL())

	unsubscribe()
	next.Email = "c@d.com"
	m.Set(next)
	assert.Len(t, got, 1)
}

func TestManager_ConcurrentSetNotifiesInOrder(t *testing.T) {
	m := NewStaticManager(Settings{Email: "a@b.com"})

	var mu sync.Mutex
	var last string
	m.Subscribe(func(s Settings) {
		mu.Lock()
		last = s.ServerBaseURL()
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := m.Current()
			next.ServerType = ServerTypeCustom
			next.CustomServerURL = fmt.Sprintf("http://server-%d", i)
			m.Set(next)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, m.Current().ServerBaseURL(), last)
}

func TestManager_WatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "email: a@b.com\n")

	m, err := NewManager(dir)
	require.NoError(t, err)
	m.debounceInterval = 10 * time.Millisecond

	var mu sync.Mutex
	var notified []Settings
	m.Subscribe(func(s Settings) {
		mu.Lock()
		notified = append(notified, s)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	writeConfig(t, dir, "serverType: custom\ncustomServerUrl: http://changed\nemail: a@b.com\n")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notified) > 0 && notified[len(notified)-1].ServerBaseURL() == "http://changed"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "http://changed", m.Current().ServerBaseURL())
}

func TestManager_ReloadKeepsPreviousOnInvalid(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "email: a@b.com\n")

	m, err := NewManager(dir)
	require.NoError(t, err)

	writeConfig(t, dir, "serverType: bogus\n")
	assert.Error(t, m.Reload())
	assert.Equal(t, "a@b.com", m.Current().Email)
}
