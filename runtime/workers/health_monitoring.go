package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker samples the relay process and logs a heartbeat
// with the relay counters every metricInterval.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	monitor        *observability.RelayMonitor
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(log *slog.Logger, monitor *observability.RelayMonitor,
	metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		monitor:        monitor,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *HealthMonitoringWorker) sample(p *process.Process) {
	stats := observability.ProcessStats{
		PID:        w.pid,
		Goroutines: goruntime.NumGoroutine(),
		SampledAt:  time.Now().UTC().Format(time.RFC3339),
	}

	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
	}
	stats.CPUPercent = cpu

	ram, err := p.MemoryPercent()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "err", err)
	}
	stats.RAMPercent = ram

	if info, err := p.MemoryInfo(); err == nil {
		stats.RSSBytes = info.RSS
	}

	w.monitor.UpdateProcess(stats)
	snapshot := w.monitor.Snapshot()
	w.log.Info("Relay heartbeat",
		"connections", w.monitor.ActiveConnections(),
		"delivered", snapshot.Delivered,
		"failed", snapshot.Failed,
		"malformed", snapshot.MalformedDropped,
		"cpu", stats.CPUPercent,
		"ram", stats.RAMPercent,
		"goroutines", stats.Goroutines)
}
