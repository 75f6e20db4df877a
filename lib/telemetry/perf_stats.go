package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

const perfSampleInterval = time.Second * 15

// InstrumentPerfStats samples process CPU usage and Go runtime memory
// figures into gauges on a fixed interval, for long-running commands.
// Sampling stops when the context is cancelled.
func InstrumentPerfStats(ctx context.Context) {
	meter := otel.Meter("snassist.perf")
	cpuGauge, cpuErr := meter.Float64Gauge("process.cpu.percent")
	heapGauge, heapErr := meter.Int64Gauge("process.heap_alloc_bytes")
	liveGauge, liveErr := meter.Int64Gauge("process.live_objects")
	goroutineGauge, goroutineErr := meter.Int64Gauge("process.goroutines")
	if err := errors.Join(cpuErr, heapErr, liveErr, goroutineErr); err != nil {
		slog.ErrorContext(ctx, "failed to create perf gauges", "err", err)
		return
	}

	go func() {
		ticker := time.NewTicker(perfSampleInterval)
		defer ticker.Stop()

		var memStats runtime.MemStats
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			// interval 0 measures against the previous call instead of
			// blocking for a sampling window
			usage, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil {
				slog.WarnContext(ctx, "failed to read cpu usage", "err", err)
			} else if len(usage) > 0 {
				cpuGauge.Record(ctx, usage[0])
			}

			runtime.ReadMemStats(&memStats)
			heapGauge.Record(ctx, int64(memStats.HeapAlloc))
			liveGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
			goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
		}
	}()
}
