package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"basic path", "logs", filepath.Join("logs", "combat_tracker.20260212_213836.log")},
		{"relative path with dot", "./logs", filepath.Join(".", "logs", "combat_tracker.20260212_213836.log")},
		{"absolute path", filepath.Join("/var", "log", "tracker"), filepath.Join("/var", "log", "tracker", "combat_tracker.20260212_213836.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "combat_tracker", sessionStart))
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	f, err := OpenLogFile(dir, "combat_tracker", start)
	require.NoError(t, err)
	_, err = f.WriteString("line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(LogFilePath(dir, "combat_tracker", start))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
