package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/latticesim/kernel/internal/config"
	"github.com/latticesim/kernel/internal/logger"
)

// appCtxKey scopes the driver's config and logger onto a command's
// context during PersistentPreRunE, for subcommands to read back out.
type appCtxKey struct{}

type app struct {
	cfg *config.Config
	log logger.Logger
}

func appFromContext(ctx context.Context) *app {
	a, _ := ctx.Value(appCtxKey{}).(*app)
	if a == nil {
		return &app{cfg: config.Default(), log: logger.NewLogger()}
	}
	return a
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "simkernel",
		Short:         "a tick-quantum discrete-event simulation driver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(cmd)

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if err := config.BindFlags(cmd, v); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString(flagConfigName)
		cfg, err := config.Load(v, path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		opts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
		if cfg.Debug {
			opts = append(opts, logger.WithDebug())
		}
		log := logger.NewLogger(opts...)

		cmd.SetContext(context.WithValue(cmd.Context(), appCtxKey{}, &app{cfg: cfg, log: log}))
		return nil
	}

	cmd.AddCommand(newRunCommand(), newStatusCommand(), newVersionCommand())
	return cmd
}

// flagConfigName matches the "config" flag name config.RegisterFlags adds.
const flagConfigName = "config"
