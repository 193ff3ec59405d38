package dbg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/parity/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{name: "console", cfg: config.LoggingConfig{Level: "info", Encoding: "console"}},
		{name: "json development", cfg: config.LoggingConfig{Level: "debug", Encoding: "json", Development: true}},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud", Encoding: "console"}, wantErr: true},
		{name: "bad encoding", cfg: config.LoggingConfig{Level: "info", Encoding: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parity.log")
	logger, err := NewLogger(config.LoggingConfig{
		Level:    "info",
		Encoding: "console",
		File:     config.LogFileConfig{Path: path, MaxSizeMB: 1},
	})
	require.NoError(t, err)

	logger.Info("scenario finished")
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "scenario finished")
	assert.Contains(t, string(content), `"ts"`)
}
