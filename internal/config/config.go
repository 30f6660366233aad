// Package config loads the driver's own configuration: log destination and
// format, watchdog thresholds, and the default tick budget for a run. This
// is distinct from the simulation's Parameter/ParameterSet tree, which
// remains an external collaborator the kernel never parses itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the driver-level configuration for a run.
type Config struct {
	LogDir    string `yaml:"logDir" mapstructure:"logDir"`
	LogFormat string `yaml:"logFormat" mapstructure:"logFormat"`
	Debug     bool   `yaml:"debug" mapstructure:"debug"`

	// WatchdogPollInterval is how often the liveness watchdog samples tick
	// progress.
	WatchdogPollInterval time.Duration `yaml:"watchdogPollInterval" mapstructure:"watchdogPollInterval"`
	// WatchdogBudgetTicks is the number of consecutive stale polls the
	// watchdog tolerates before declaring the run stalled.
	WatchdogBudgetTicks uint64 `yaml:"watchdogBudgetTicks" mapstructure:"watchdogBudgetTicks"`

	// DefaultTickBudget is the number of ticks a bare `run` with no
	// explicit --ticks flag advances by. Zero means run until a trigger or
	// StopRunning call ends it.
	DefaultTickBudget uint64 `yaml:"defaultTickBudget" mapstructure:"defaultTickBudget"`
}

// Default returns the built-in configuration used when no config file and
// no flag overrides it.
func Default() *Config {
	return &Config{
		LogDir:               defaultLogDir(),
		LogFormat:            "text",
		WatchdogPollInterval: 100 * time.Millisecond,
		WatchdogBudgetTicks:  50,
		DefaultTickBudget:    0,
	}
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".simkernel", "logs")
	}
	return filepath.Join(home, ".config", "simkernel", "logs")
}

// Load builds a Config starting from Default, applying path (if non-empty)
// as a YAML overlay, then applying any flags bound into v.
func Load(v *viper.Viper, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if v != nil {
		applyOverrides(v, cfg)
	}
	return cfg, nil
}

func applyOverrides(v *viper.Viper, cfg *Config) {
	if v.IsSet(flagLogDir.name) {
		cfg.LogDir = v.GetString(flagLogDir.name)
	}
	if v.IsSet(flagLogFormat.name) {
		cfg.LogFormat = v.GetString(flagLogFormat.name)
	}
	if v.IsSet(flagDebug.name) {
		cfg.Debug = v.GetBool(flagDebug.name)
	}
	if v.IsSet(flagWatchdogPoll.name) {
		cfg.WatchdogPollInterval = v.GetDuration(flagWatchdogPoll.name)
	}
	if v.IsSet(flagWatchdogBudget.name) {
		cfg.WatchdogBudgetTicks = uint64(v.GetInt64(flagWatchdogBudget.name))
	}
	if v.IsSet(flagTickBudget.name) {
		cfg.DefaultTickBudget = uint64(v.GetInt64(flagTickBudget.name))
	}
}

// flagDescriptor mirrors the teacher's commandLineFlag: a named flag with
// its shorthand, default, and usage string, registered on a command and
// then bound into a viper instance.
type flagDescriptor struct {
	name, shorthand, usage string
}

var (
	flagConfig = flagDescriptor{
		name: "config", shorthand: "c",
		usage: "config file (no file is read when unset)",
	}
	flagLogDir = flagDescriptor{
		name: "log-dir", usage: "directory log files are written under",
	}
	flagLogFormat = flagDescriptor{
		name: "log-format", usage: `log format, "text" or "json"`,
	}
	flagDebug = flagDescriptor{
		name: "debug", usage: "enable debug logging and source locations",
	}
	flagWatchdogPoll = flagDescriptor{
		name: "watchdog-poll", usage: "watchdog liveness poll interval",
	}
	flagWatchdogBudget = flagDescriptor{
		name: "watchdog-budget", usage: "consecutive stale polls before the watchdog declares a stall",
	}
	flagTickBudget = flagDescriptor{
		name: "ticks", shorthand: "n", usage: "number of ticks to run, 0 for unbounded",
	}
)

// RegisterFlags adds every driver config flag to cmd as a persistent flag,
// so a root command's subcommands inherit it too.
func RegisterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(flagConfig.name, flagConfig.shorthand, "", flagConfig.usage)
	cmd.PersistentFlags().StringP(flagLogDir.name, flagLogDir.shorthand, "", flagLogDir.usage)
	cmd.PersistentFlags().StringP(flagLogFormat.name, flagLogFormat.shorthand, "", flagLogFormat.usage)
	cmd.PersistentFlags().Bool(flagDebug.name, false, flagDebug.usage)
	cmd.PersistentFlags().Duration(flagWatchdogPoll.name, 0, flagWatchdogPoll.usage)
	cmd.PersistentFlags().Uint64(flagWatchdogBudget.name, 0, flagWatchdogBudget.usage)
	cmd.PersistentFlags().Uint64P(flagTickBudget.name, flagTickBudget.shorthand, 0, flagTickBudget.usage)
}

// BindFlags binds every flag RegisterFlags added on cmd into v, the way the
// teacher's bindCommonFlags binds its own flag set.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for _, name := range []string{
		flagConfig.name, flagLogDir.name, flagLogFormat.name, flagDebug.name,
		flagWatchdogPoll.name, flagWatchdogBudget.name, flagTickBudget.name,
	} {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		if f == nil {
			continue
		}
		if err := v.BindPFlag(name, f); err != nil {
			return fmt.Errorf("config: binding flag %s: %w", name, err)
		}
	}
	return nil
}
