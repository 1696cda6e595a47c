// Package config loads, validates, saves and watches the bridge settings.
//
// Settings live in a single YAML file, by default
// ~/.config/ahpbridge/config.yaml, mirroring the storage surface of the
// browser extension:
//
//	serverType: default        # or "custom"
//	customServerUrl: ""        # used when serverType is custom
//	email: agent@example.com   # sent as agent_id during authentication
//	preSharedKey: "..."        # exchanged for a bearer token
//	logLevel: info
//	bridge:
//	  requestTimeout: 60s
//	  settleDelay: 500ms
//	  tokenSafetyMargin: 5m
//
// Loading starts from defaults, overlays the file and finally the
// AHP_SERVER_URL, AHP_EMAIL and AHP_PRE_SHARED_KEY environment variables.
// A missing file is not an error.
//
// The Manager keeps the current settings and notifies subscribers when the
// file changes on disk, so the detection pattern can be re-derived without
// a restart.
package config
