package config

import "time"

const (
	// DefaultServerURL is the public AHP server.
	DefaultServerURL = "https://ahp.nuts.services"

	// DefaultRequestTimeout bounds an execution request.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultSettleDelay lets the host page react to the input event before submit.
	DefaultSettleDelay = 500 * time.Millisecond

	// DefaultTokenSafetyMargin turns a one hour token into a 55 minute cache entry.
	DefaultTokenSafetyMargin = 5 * time.Minute

	// DefaultResultTemplate renders the payload as a fenced JSON block.
	// Templates see .URL, .Tool, .Payload (decoded) and .JSON (indented).
	DefaultResultTemplate = "```json\n{{ .JSON }}\n```"
)

// DefaultCodeSelectors are the code-like regions scanned for call URLs.
var DefaultCodeSelectors = []string{"pre", "code"}

// DefaultInputSelectors are tried in order to find the chat input surface.
var DefaultInputSelectors = []string{
	"#prompt-textarea",
	`div[contenteditable="true"]`,
	"textarea",
}

// DefaultSubmitSelectors are tried in order to find the send control.
var DefaultSubmitSelectors = []string{
	`button[data-testid="send-button"]`,
	`button[aria-label*="Send"]`,
	`button[type="submit"]`,
}

// GetDefaultSettings returns the default configuration.
func GetDefaultSettings() Settings {
	return Settings{
		ServerType: ServerTypeDefault,
		LogLevel:   "info",
		Bridge: BridgeConfig{
			RequestTimeout:    DefaultRequestTimeout,
			SettleDelay:       DefaultSettleDelay,
			TokenSafetyMargin: DefaultTokenSafetyMargin,
			CodeSelectors:     append([]string(nil), DefaultCodeSelectors...),
			InputSelectors:    append([]string(nil), DefaultInputSelectors...),
			SubmitSelectors:   append([]string(nil), DefaultSubmitSelectors...),
			ResultTemplate:    DefaultResultTemplate,
		},
	}
}

// withDefaults fills zero values left by a partial file.
func withDefaults(s Settings) Settings {
	d := GetDefaultSettings()
	if s.ServerType == "" {
		s.ServerType = d.ServerType
	}
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
	if s.Bridge.SettleDelay == 0 {
		s.Bridge.SettleDelay = d.Bridge.SettleDelay
	}
	if s.Bridge.TokenSafetyMargin == 0 {
		s.Bridge.TokenSafetyMargin = d.Bridge.TokenSafetyMargin
	}
	if len(s.Bridge.CodeSelectors) == 0 {
		s.Bridge.CodeSelectors = d.Bridge.CodeSelectors
	}
	if len(s.Bridge.InputSelectors) == 0 {
		s.Bridge.InputSelectors = d.Bridge.InputSelectors
	}
	if len(s.Bridge.SubmitSelectors) == 0 {
		s.Bridge.SubmitSelectors = d.Bridge.SubmitSelectors
	}
	if s.Bridge.ResultTemplate == "" {
		s.Bridge.ResultTemplate = d.Bridge.ResultTemplate
	}
	return s
}
