package game

import (
	"github.com/pthm-cable/sandfall/telemetry"
)

// windowReport is a flushed window waiting to be written.
type windowReport struct {
	stats telemetry.WindowStats
	perf  telemetry.PerfStats
}

// collectTelemetryLocked flushes the stats window when it is due.
// Callers hold g.mu.
func (g *Game) collectTelemetryLocked(snap *Snapshot) *windowReport {
	if !g.collector.ShouldFlush(g.tick) {
		return nil
	}

	laneFill := telemetry.LaneFill(g.geo, snap.Gravity, snap.Settled)
	stats := g.collector.Flush(g.tick, snap.Gravity, len(snap.Moving), len(snap.Settled), laneFill)

	return &windowReport{
		stats: stats,
		perf:  g.perfCollector.Stats(),
	}
}

// reportTelemetry delivers a flushed window to the callback, the log and the
// output directory.
func (g *Game) reportTelemetry(r *windowReport) {
	g.reportMu.Lock()
	defer g.reportMu.Unlock()

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(r.stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		r.stats.LogStats()
		r.perf.LogStats()
	}

	// Write to CSV if output manager is enabled
	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(r.stats); err != nil {
			g.logger.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(r.perf, r.stats.WindowEndTick); err != nil {
			g.logger.Error("failed to write perf", "error", err)
		}
	}
}
