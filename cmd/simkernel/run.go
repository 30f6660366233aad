package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/latticesim/kernel/internal/buildinfo"
	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/metrics"
	"github.com/latticesim/kernel/internal/model"
	"github.com/latticesim/kernel/internal/watchdog"
)

// snapshot is the durable record the status command reads back: a
// minimal stand-in for the persisted-state subsystem, just enough to
// report a run's counters from a separate process invocation.
type snapshot struct {
	Version        string  `json:"version"`
	CurrentTick    uint64  `json:"currentTick"`
	ElapsedTicks   uint64  `json:"elapsedTicks"`
	EventsFired    uint64  `json:"eventsFired"`
	RunWallSeconds float64 `json:"runWallSeconds"`
	StopReason     string  `json:"stopReason"`
	RecordedAt     string  `json:"recordedAt"`
}

func snapshotPath(logDir string) string {
	return filepath.Join(logDir, "status.json")
}

func writeSnapshot(logDir string, s snapshot) error {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(snapshotPath(logDir), data, 0o644)
}

func readSnapshot(logDir string) (snapshot, error) {
	var s snapshot
	data, err := os.ReadFile(snapshotPath(logDir))
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

func newRunCommand() *cobra.Command {
	var retireThreshold int64
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run [model-descriptor]",
		Short: "build the example model tree and run it for a tick budget",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())

			d := model.DefaultDescriptor()
			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("reading model descriptor: %w", err)
				}
				if err := yaml.Unmarshal(data, &d); err != nil {
					return fmt.Errorf("parsing model descriptor: %w", err)
				}
			}
			if cmd.Flags().Changed("retire-threshold") {
				d.RetireThreshold = retireThreshold
			}

			tr, err := model.Build(d)
			if err != nil {
				return fmt.Errorf("building model: %w", err)
			}

			budget, _ := cmd.Flags().GetUint64("ticks")
			if !cmd.Flags().Changed("ticks") {
				budget = a.cfg.DefaultTickBudget
			}

			wdg := watchdog.NewProcess(nil)
			tr.Scheduler.EnableWatchDog(wdg, clock.Tick(a.cfg.WatchdogBudgetTicks), a.cfg.WatchdogPollInterval)
			defer tr.Scheduler.DisableWatchDog()

			if metricsAddr != "" {
				reg := metrics.NewRegistry(metrics.NewCollector(buildinfo.Version, tr.Scheduler))
				srv := metrics.NewServer(metricsAddr, reg)
				srv.Serve(func(err error) { a.log.Errorf("metrics server: %v", err) })
				defer func() {
					ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
					defer cancel()
					if err := srv.Shutdown(ctx); err != nil {
						a.log.Warnf("metrics server shutdown: %v", err)
					}
				}()
				a.log.Infof("metrics listening at http://%s/metrics", metricsAddr)
			}

			a.log.Infof("starting run: model=%s budget=%d", d.Name, budget)
			start := time.Now()
			if err := tr.Scheduler.Run(budget, false, true); err != nil {
				return fmt.Errorf("running scheduler: %w", err)
			}
			a.log.Info("run finished",
				"stopReason", tr.Scheduler.StopReason().String(),
				"elapsedTicks", uint64(tr.Scheduler.GetElapsedTicks()),
				"wall", time.Since(start).String(),
			)

			return writeSnapshot(a.cfg.LogDir, snapshot{
				Version:        buildinfo.Version,
				CurrentTick:    uint64(tr.Scheduler.CurrentTick()),
				ElapsedTicks:   uint64(tr.Scheduler.GetElapsedTicks()),
				EventsFired:    tr.Scheduler.EventsFired(),
				RunWallSeconds: tr.Scheduler.RunWallTime().Seconds(),
				StopReason:     tr.Scheduler.StopReason().String(),
				RecordedAt:     time.Now().Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().Int64Var(&retireThreshold, "retire-threshold", 0, "override the example model's retire threshold")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve prometheus metrics at http://<addr>/metrics for the run's duration")

	return cmd
}
