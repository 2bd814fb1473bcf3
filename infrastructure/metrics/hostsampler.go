package metrics

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

func currentPID() int {
	return os.Getpid()
}

// HostSampler periodically samples process CPU and RSS usage into
// Prometheus gauges, feeding the game loop's overrun diagnostics: a tick
// that blows its frame budget is far more explainable next to a CPU spike
// than in isolation.
type HostSampler struct {
	cpuPercent prometheus.Gauge
	rssBytes   prometheus.Gauge
	proc       *process.Process
	interval   time.Duration
}

// NewHostSampler registers the host sampling gauges against registerer (or
// leaves them unregistered if nil, for tests) and samples the current
// process.
func NewHostSampler(registerer prometheus.Registerer, interval time.Duration) (*HostSampler, error) {
	proc, err := process.NewProcess(int32(currentPID()))
	if err != nil {
		return nil, err
	}

	if interval <= 0 {
		interval = 5 * time.Second
	}

	hs := &HostSampler{
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "host_process_cpu_percent",
			Help: "Process CPU usage percentage, sampled periodically",
		}),
		rssBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "host_process_rss_bytes",
			Help: "Process resident set size in bytes, sampled periodically",
		}),
		proc:     proc,
		interval: interval,
	}

	if registerer != nil {
		registerer.MustRegister(hs.cpuPercent, hs.rssBytes)
	}
	return hs, nil
}

// Run samples CPU and memory on a ticker until ctx is canceled.
func (hs *HostSampler) Run(ctx context.Context) {
	ticker := time.NewTicker(hs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.sampleOnce()
		}
	}
}

func (hs *HostSampler) sampleOnce() {
	if pct, err := hs.proc.CPUPercent(); err == nil {
		hs.cpuPercent.Set(pct)
	}
	if memInfo, err := hs.proc.MemoryInfo(); err == nil && memInfo != nil {
		hs.rssBytes.Set(float64(memInfo.RSS))
	}
}

// SystemCPUPercent returns the total system-wide CPU utilization
// percentage, sampled over a 200ms blocking window.
func SystemCPUPercent(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		return 0, err
	}
	return percentages[0], nil
}
