package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(newFlags(t, "--data-dir", dir))
	require.NoError(t, err)

	assert.Equal(t, dir, s.DataDir)
	assert.Equal(t, "https://api.geckoterminal.com/api/v2", s.APIBaseURL)
	assert.Equal(t, 15*time.Second, s.APITimeout)
	assert.Equal(t, 2, s.APIRetries)
	assert.Equal(t, StrategyBatch, s.Strategy)
	assert.Equal(t, 300*time.Millisecond, s.Debounce)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("CRYPTICK_API_RETRIES", "5")
	t.Setenv("CRYPTICK_API_STRATEGY", "single")

	s, err := Load(newFlags(t, "--data-dir", t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, 5, s.APIRetries)
	assert.Equal(t, StrategySingle, s.Strategy)
}

func TestLoadFlagWinsOverEnv(t *testing.T) {
	t.Setenv("CRYPTICK_LOG_LEVEL", "warn")

	s, err := Load(newFlags(t, "--data-dir", t.TempDir(), "--log-level", "debug"))
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CRYPTICK_METRICS_ADDR=127.0.0.1:9464\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CRYPTICK_METRICS_ADDR") })

	s, err := Load(newFlags(t, "--data-dir", dir))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9464", s.MetricsAddr)
}

func TestLoadRejectsBadStrategy(t *testing.T) {
	_, err := Load(newFlags(t, "--data-dir", t.TempDir(), "--api-strategy", "parallel"))
	assert.Error(t, err)
}
