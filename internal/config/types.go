package config

import (
	"strings"
	"time"

	"ahpbridge/pkg/ahp"
)

// ServerType selects between the public server and a user-supplied one.
type ServerType string

const (
	ServerTypeDefault ServerType = "default"
	ServerTypeCustom  ServerType = "custom"
)

// Settings is the top-level configuration structure for ahpbridge.
type Settings struct {
	ServerType      ServerType   `yaml:"serverType"`
	CustomServerURL string       `yaml:"customServerUrl,omitempty"`
	Email           string       `yaml:"email,omitempty"`
	PreSharedKey    string       `yaml:"preSharedKey,omitempty"`
	LogLevel        string       `yaml:"logLevel,omitempty"`
	Bridge          BridgeConfig `yaml:"bridge"`
}

// BridgeConfig tunes detection, execution and injection.
type BridgeConfig struct {
	// RequestTimeout bounds one execution request end to end. Zero disables it.
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
	// SettleDelay is the pause between writing the input surface and submitting.
	SettleDelay time.Duration `yaml:"settleDelay,omitempty"`
	// TokenSafetyMargin is subtracted from the server-declared token lifetime.
	TokenSafetyMargin time.Duration `yaml:"tokenSafetyMargin,omitempty"`
	// StartSession opens a server session after authentication and sends
	// its session_id with every call. Read at startup.
	StartSession bool `yaml:"startSession,omitempty"`

	CodeSelectors   []string `yaml:"codeSelectors,omitempty"`
	InputSelectors  []string `yaml:"inputSelectors,omitempty"`
	SubmitSelectors []string `yaml:"submitSelectors,omitempty"`

	// ResultTemplate is a text/template (with sprig functions) rendering the
	// injected message. See DefaultResultTemplate for the available fields.
	ResultTemplate string `yaml:"resultTemplate,omitempty"`
}

// Credential is what the token broker needs to authenticate.
type Credential struct {
	PreSharedKey  string
	AgentIdentity string
	ServerBaseURL string
}

// Missing lists the absent credential fields by their settings name.
func (c Credential) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.AgentIdentity) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.PreSharedKey) == "" {
		missing = append(missing, "preSharedKey")
	}
	if c.ServerBaseURL == "" {
		missing = append(missing, "customServerUrl")
	}
	return missing
}

// Complete reports whether every field is present.
func (c Credential) Complete() bool {
	return len(c.Missing()) == 0
}

// ServerBaseURL resolves the server the bridge talks to. An unknown server
// type falls back to the default server; a custom type without URL yields "".
func (s Settings) ServerBaseURL() string {
	if s.ServerType == ServerTypeCustom {
		return ahp.NormalizeBaseURL(s.CustomServerURL)
	}
	return DefaultServerURL
}

// Credential returns the authentication material of these settings.
func (s Settings) Credential() Credential {
	return Credential{
		PreSharedKey:  strings.TrimSpace(s.PreSharedKey),
		AgentIdentity: strings.TrimSpace(s.Email),
		ServerBaseURL: s.ServerBaseURL(),
	}
}
