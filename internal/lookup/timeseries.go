// Package lookup provides read-side helpers over chart point series.
package lookup

import (
	"errors"

	"solana-price-history/internal/domain"
)

// ErrNoChartData is returned when a lookup runs against an empty series.
var ErrNoChartData = errors.New("no chart data available")

// PriceAt returns the price at or immediately before target (ms) in a series
// ordered by timestamp ascending. If every point is after target, the first
// available price is returned. Returns ErrNoChartData if the series is empty.
func PriceAt(target int64, points []*domain.ChartPoint) (float64, error) {
	if len(points) == 0 {
		return 0, ErrNoChartData
	}

	for i := len(points) - 1; i >= 0; i-- {
		if points[i].TimestampMs <= target {
			return points[i].Price, nil
		}
	}

	// Target predates the series: the first sample is the best estimate.
	return points[0].Price, nil
}

// VolumeBetween sums traded volume over [start, end] (inclusive, ms) in a
// series ordered by timestamp ascending. An empty series returns
// ErrNoChartData; a range covering no points returns 0.
func VolumeBetween(start, end int64, points []*domain.ChartPoint) (float64, error) {
	if len(points) == 0 {
		return 0, ErrNoChartData
	}

	var volume float64
	for _, p := range points {
		if p.TimestampMs < start {
			continue
		}
		if p.TimestampMs > end {
			break
		}
		volume += p.Volume
	}
	return volume, nil
}
