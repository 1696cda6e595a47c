package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		configDir string
	}{
		{name: "full configuration", logLevel: "debug", configDir: "/custom/config/path"},
		{name: "minimal configuration"},
		{name: "level only", logLevel: "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(tt.logLevel, tt.configDir)
			assert.Equal(t, tt.logLevel, cfg.LogLevel)
			assert.Equal(t, tt.configDir, cfg.ConfigDir)
			assert.False(t, cfg.Silent)
			assert.False(t, cfg.Watch)
			assert.Nil(t, cfg.LogOutput)
		})
	}
}
