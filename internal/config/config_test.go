package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.Equal(t, "text", cfg.LogFormat)
	require.False(t, cfg.Debug)
	require.Equal(t, uint64(50), cfg.WatchdogBudgetTicks)
	require.NotEmpty(t, cfg.LogDir)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "logFormat: json\ndebug: true\ndefaultTickBudget: 1000\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, "json", cfg.LogFormat)
	require.True(t, cfg.Debug)
	require.Equal(t, uint64(1000), cfg.DefaultTickBudget)
	// fields the file doesn't mention keep their defaults
	require.Equal(t, 100*time.Millisecond, cfg.WatchdogPollInterval)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFlagOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logFormat: json\n"), 0o644))

	cmd := &cobra.Command{Use: "run"}
	RegisterFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--log-format", "text"}))

	v := viper.New()
	require.NoError(t, BindFlags(cmd, v))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	require.Equal(t, "text", cfg.LogFormat)
}

func TestBindFlagsSkipsUnregisteredNames(t *testing.T) {
	cmd := &cobra.Command{Use: "bare"}
	v := viper.New()
	require.NoError(t, BindFlags(cmd, v))
}
