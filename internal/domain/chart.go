package domain

// ChartPoint is one aggregated charting sample for a mint.
// Corresponds to chart_points table in ClickHouse.
//
// Aggregation for same (mint, timestamp_ms):
//   - price = LAST(price) by trade order
//   - volume = SUM(|token delta|)
//   - trade_count = COUNT(*)
type ChartPoint struct {
	Mint        string
	TimestampMs int64
	Slot        int64
	Price       float64
	Volume      float64
	TradeCount  int
}
