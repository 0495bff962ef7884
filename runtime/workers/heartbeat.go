package workers

import (
	"chatroom/runtime"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

type statsSource interface {
	Stats() runtime.Stats
}

// HeartbeatWorker logs presence counters next to the process footprint.
type HeartbeatWorker struct {
	log      *slog.Logger
	registry statsSource
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, registry statsSource, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, registry: registry, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := w.registry.Stats()
			attrs := []any{
				"connections", stats.Connections,
				"subscriptions", stats.Subscriptions,
				"pending_resync", stats.PendingResync,
			}
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Warn("Failed to collect self stats", "error", err)
			} else {
				attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu)
			}
			w.log.Info("Presence heartbeat", attrs...)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
