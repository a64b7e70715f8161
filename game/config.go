package game

import (
	"log/slog"

	"github.com/pthm-cable/sandfall/telemetry"
)

// Options holds optional collaborators for game initialization.
type Options struct {
	// Logger receives command events at Debug. Nil uses slog.Default().
	Logger *slog.Logger

	// LogStats logs every flushed stats window and perf summary.
	LogStats bool

	// OutputManager receives telemetry and perf rows. Nil disables CSV output.
	OutputManager *telemetry.OutputManager

	// StatsCallback is called with every flushed window, outside the game lock.
	StatsCallback func(telemetry.WindowStats)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
