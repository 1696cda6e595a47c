package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/andybalholm/cascadia"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// Validate checks the settings for values the bridge cannot work with.
// Missing credentials are not a validation error: the broker reports them
// as ConfigurationMissing when a token is first needed.
func (s Settings) Validate() error {
	var errs ValidationErrors

	switch s.ServerType {
	case ServerTypeDefault, "":
	case ServerTypeCustom:
		if strings.TrimSpace(s.CustomServerURL) == "" {
			errs.Add("customServerUrl", "is required when serverType is custom")
		} else if u, err := url.Parse(s.CustomServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Add("customServerUrl", "must be an absolute http(s) URL")
		}
	default:
		errs.Add("serverType", "must be 'default' or 'custom'")
	}

	if s.Email != "" && !emailPattern.MatchString(s.Email) {
		errs.Add("email", "is not an email address")
	}

	if s.Bridge.RequestTimeout < 0 {
		errs.Add("bridge.requestTimeout", "must not be negative")
	}
	if s.Bridge.SettleDelay < 0 {
		errs.Add("bridge.settleDelay", "must not be negative")
	}
	if s.Bridge.TokenSafetyMargin < 0 {
		errs.Add("bridge.tokenSafetyMargin", "must not be negative")
	}

	validateSelectors(&errs, "bridge.codeSelectors", s.Bridge.CodeSelectors)
	validateSelectors(&errs, "bridge.inputSelectors", s.Bridge.InputSelectors)
	validateSelectors(&errs, "bridge.submitSelectors", s.Bridge.SubmitSelectors)

	if s.Bridge.ResultTemplate != "" {
		if _, err := template.New("result").Funcs(sprig.TxtFuncMap()).Parse(s.Bridge.ResultTemplate); err != nil {
			errs.Add("bridge.resultTemplate", err.Error())
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateSelectors(errs *ValidationErrors, field string, selectors []string) {
	for _, sel := range selectors {
		if _, err := cascadia.Compile(sel); err != nil {
			errs.Add(field, fmt.Sprintf("invalid selector %q: %v", sel, err))
		}
	}
}
