package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	dev := ForEnvironment("development", "ekaty-server")
	assert.Equal(t, "debug", dev.Level)
	assert.Equal(t, "console", dev.Format)

	prod := ForEnvironment("production", "ekaty-server")
	assert.Equal(t, "info", prod.Level)
	assert.Equal(t, "json", prod.Format)
	assert.Equal(t, "ekaty-server", prod.Service)

	assert.Equal(t, "warn", ForCLI("seed").Level)
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "info", Format: "json", Output: &buf, Service: "ekaty-test"})
	t.Cleanup(func() { globalLogger = nil })

	Debug("hidden")
	WithContext(map[string]interface{}{"run_id": "r-1"}).
		Error("Sync failed", errors.New("quota exceeded"), map[string]interface{}{"discovered": 12})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "Sync failed", entry["message"])
	assert.Equal(t, "quota exceeded", entry["error"])
	assert.Equal(t, "ekaty-test", entry["service"])
	assert.Equal(t, "r-1", entry["run_id"])
	assert.Equal(t, float64(12), entry["discovered"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}
