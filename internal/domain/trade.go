package domain

// TradeSide is the direction of a derived trade.
type TradeSide string

// Trade side constants
const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// PricedTrade is one buy/sell event derived from a transaction's balance
// deltas, attributed to a single signer. A transaction with several signers
// whose token balances moved yields one PricedTrade per such signer.
// Corresponds to priced_trades table in PostgreSQL.
type PricedTrade struct {
	TradeID   string    // deterministic hash, see idhash.ComputeTradeID
	Signature string    // transaction signature
	Mint      string    // token mint address
	Side      TradeSide // "buy" | "sell"
	Owner     string    // signer wallet address

	// Token balances in whole token units (raw amount / 10^6).
	PreTokenBalance  float64
	PostTokenBalance float64

	// Native balances in SOL. The post balance has base and priority fees
	// added back so the delta reflects only the economic trade.
	PreNativeBalance  float64
	PostNativeBalance float64

	// Price is |token delta| / |native delta|. Always finite and
	// non-negative; degenerate computations are clamped to 0.
	Price float64

	Slot      int64 // transaction slot
	Timestamp int64 // block time (ms)
}
