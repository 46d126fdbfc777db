package eventservices

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// EquityStats summarizes the session's equity samples for the
// dashboard's metrics panel.
type EquityStats struct {
	Samples     int     `json:"samples"`
	Mean        float64 `json:"mean"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	MaxDrawdown float64 `json:"maxDrawdown"`
}

func ComputeEquityStats(history []float64) (*EquityStats, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("ComputeEquityStats: no equity samples")
	}

	data := stats.Float64Data(history)

	mean, err := stats.Mean(data)
	if err != nil {
		return nil, fmt.Errorf("ComputeEquityStats: mean: %w", err)
	}

	min, err := stats.Min(data)
	if err != nil {
		return nil, fmt.Errorf("ComputeEquityStats: min: %w", err)
	}

	max, err := stats.Max(data)
	if err != nil {
		return nil, fmt.Errorf("ComputeEquityStats: max: %w", err)
	}

	return &EquityStats{
		Samples:     len(history),
		Mean:        mean,
		Min:         min,
		Max:         max,
		MaxDrawdown: maxDrawdown(history),
	}, nil
}

func maxDrawdown(history []float64) float64 {
	var peak, drawdown float64

	for i, equity := range history {
		if i == 0 || equity > peak {
			peak = equity
		}

		if dd := peak - equity; dd > drawdown {
			drawdown = dd
		}
	}

	return drawdown
}
