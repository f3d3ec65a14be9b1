package chart

import (
	"math"

	"solana-price-history/internal/domain"
)

// BuildPoints transforms sorted trades into chart points. Trades must be
// pre-sorted chronologically, the way a sync run emits them.
//
// Aggregation for same (mint, timestamp_ms):
//   - price = LAST(price) by trade order
//   - volume = SUM(|token delta|)
//   - trade_count = COUNT(*)
func BuildPoints(trades []*domain.PricedTrade) []*domain.ChartPoint {
	if len(trades) == 0 {
		return nil
	}

	var result []*domain.ChartPoint
	var current *domain.ChartPoint

	for _, t := range trades {
		volume := math.Abs(t.PostTokenBalance - t.PreTokenBalance)

		if current == nil || current.Mint != t.Mint || current.TimestampMs != t.Timestamp {
			if current != nil {
				result = append(result, current)
			}
			current = &domain.ChartPoint{
				Mint:        t.Mint,
				TimestampMs: t.Timestamp,
				Slot:        t.Slot,
				Price:       t.Price,
				Volume:      volume,
				TradeCount:  1,
			}
		} else {
			current.Price = t.Price // LAST(price)
			current.Slot = t.Slot   // LAST(slot)
			current.Volume += volume
			current.TradeCount++
		}
	}

	if current != nil {
		result = append(result, current)
	}

	return result
}
