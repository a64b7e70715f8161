package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Gravity         string  `csv:"gravity"`

	// Population at window end
	MovingCount  int `csv:"moving"`
	SettledCount int `csv:"settled"`

	// Spawn outcomes during window
	SpawnsAccepted int `csv:"spawns_accepted"`
	SpawnsDisabled int `csv:"spawns_disabled"`
	SpawnsOutside  int `csv:"spawns_outside"`
	SpawnsOccupied int `csv:"spawns_occupied"`

	// Collision resolution during window
	Settlements int `csv:"settlements"`
	Stacked     int `csv:"stacked"`
	Displaced   int `csv:"displaced"`
	Dropped     int `csv:"dropped"`

	// Commands during window
	Rotations int `csv:"rotations"`
	Released  int `csv:"released"`
	Resets    int `csv:"resets"`
	Cleared   int `csv:"cleared"`

	// Pile shape: settled particles per lane along gravity (sampled at window end)
	LaneFillMean float64 `csv:"lane_fill_mean"`
	LaneFillStd  float64 `csv:"lane_fill_std"`
	LaneFillP50  float64 `csv:"lane_fill_p50"`
	LaneFillMax  float64 `csv:"lane_fill_max"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeFillStats calculates mean, population std, median and max of per-lane fill counts.
func ComputeFillStats(values []float64) (mean, std, p50, peak float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)
	std = stat.PopStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p50 = Percentile(sorted, 0.50)
	peak = floats.Max(sorted)

	return mean, std, p50, peak
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("gravity", s.Gravity),
		slog.Int("moving", s.MovingCount),
		slog.Int("settled", s.SettledCount),
		slog.Int("spawns_accepted", s.SpawnsAccepted),
		slog.Int("spawns_disabled", s.SpawnsDisabled),
		slog.Int("spawns_outside", s.SpawnsOutside),
		slog.Int("spawns_occupied", s.SpawnsOccupied),
		slog.Int("settlements", s.Settlements),
		slog.Int("stacked", s.Stacked),
		slog.Int("displaced", s.Displaced),
		slog.Int("dropped", s.Dropped),
		slog.Int("rotations", s.Rotations),
		slog.Int("released", s.Released),
		slog.Int("resets", s.Resets),
		slog.Int("cleared", s.Cleared),
		slog.Float64("lane_fill_mean", s.LaneFillMean),
		slog.Float64("lane_fill_std", s.LaneFillStd),
		slog.Float64("lane_fill_p50", s.LaneFillP50),
		slog.Float64("lane_fill_max", s.LaneFillMax),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"gravity", s.Gravity,
		"moving", s.MovingCount,
		"settled", s.SettledCount,
		"spawns", s.SpawnsAccepted,
		"settlements", s.Settlements,
		"dropped", s.Dropped,
		"lane_fill_max", s.LaneFillMax,
	)
}
