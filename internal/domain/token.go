package domain

// TrackedToken is a token whose price history is kept in sync.
// LastSignature is the sync cursor: the most recent transaction signature
// already processed for this mint. Nil means no run has completed yet and
// the next run walks the venue history from the top.
type TrackedToken struct {
	Mint          string  // token mint address (PK)
	Venue         *string // resolved trading venue, cached after first resolution (nullable)
	LastSignature *string // cursor: newest processed signature (nullable)
	CreatedAt     int64   // record creation timestamp (ms)
	UpdatedAt     int64   // last cursor advance (ms)
}
