// Package metrics exposes the scheduler's read-only counters (ticks,
// events fired, wall-clock run time) as a prometheus.Collector,
// for the external statistics subsystem to scrape. The kernel itself never
// reads these back; they exist purely for observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/scheduler"
)

const namespace = "simkernel"

var (
	infoDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "info"),
		"Build information, constant 1, labeled by version.",
		[]string{"version"}, nil,
	)
	uptimeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "uptime_seconds"),
		"Seconds since the collector was constructed.",
		nil, nil,
	)
	runningDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scheduler", "running"),
		"1 if the scheduler is currently in the RUNNING state, else 0.",
		nil, nil,
	)
	currentTickDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scheduler", "current_tick"),
		"The scheduler's current tick.",
		nil, nil,
	)
	elapsedTicksDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scheduler", "elapsed_ticks_total"),
		"The highest tick the scheduler has ever reached.",
		nil, nil,
	)
	eventsFiredDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scheduler", "events_fired_total"),
		"Total handler invocations across every Run call.",
		nil, nil,
	)
	runWallSecondsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scheduler", "run_wall_seconds_total"),
		"Cumulative wall-clock time spent inside Run with timing enabled.",
		nil, nil,
	)
)

// Collector adapts a *scheduler.Scheduler to prometheus.Collector.
type Collector struct {
	version   string
	sched     *scheduler.Scheduler
	startTime time.Time
}

// NewCollector constructs a Collector for sched, labeled with version.
func NewCollector(version string, sched *scheduler.Scheduler) *Collector {
	return &Collector{version: version, sched: sched, startTime: time.Now()}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- infoDesc
	ch <- uptimeDesc
	ch <- runningDesc
	ch <- currentTickDesc
	ch <- elapsedTicksDesc
	ch <- eventsFiredDesc
	ch <- runWallSecondsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(infoDesc, prometheus.GaugeValue, 1, c.version)
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, time.Since(c.startTime).Seconds())

	if c.sched == nil {
		return
	}

	running := 0.0
	if c.sched.State() == scheduler.StateRunning {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(runningDesc, prometheus.GaugeValue, running)
	ch <- prometheus.MustNewConstMetric(currentTickDesc, prometheus.GaugeValue, tickToFloat(c.sched.CurrentTick()))
	ch <- prometheus.MustNewConstMetric(elapsedTicksDesc, prometheus.GaugeValue, tickToFloat(c.sched.GetElapsedTicks()))
	ch <- prometheus.MustNewConstMetric(eventsFiredDesc, prometheus.CounterValue, float64(c.sched.EventsFired()))
	ch <- prometheus.MustNewConstMetric(runWallSecondsDesc, prometheus.GaugeValue, c.sched.RunWallTime().Seconds())
}

func tickToFloat(t clock.Tick) float64 { return float64(uint64(t)) }

// NewRegistry builds a prometheus.Registry carrying collector plus the
// standard Go runtime and process collectors, the way a scrape endpoint
// normally composes them.
func NewRegistry(collector *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}
