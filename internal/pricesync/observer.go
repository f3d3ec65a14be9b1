package pricesync

// Observer receives pipeline checkpoint events. Implementations must be
// non-blocking; observation failures never affect pipeline outcome.
type Observer interface {
	// VenueResolved fires once per run after venue resolution.
	VenueResolved(mint, venue string, fallback bool)

	// PageFetched fires per signature history page with the raw page size.
	PageFetched(venue string, size int)

	// BatchStart fires before a transaction batch is dispatched.
	BatchStart(mint string, size int)

	// BatchRetry fires per failed batch attempt before the backoff wait.
	BatchRetry(mint string, attempt int, err error)

	// BatchDone fires after a batch resolves, with per-signature misses.
	BatchDone(mint string, fetched, missing int)

	// BatchExhausted fires when a batch fails all attempts and is dropped.
	BatchExhausted(mint string, size int)

	// TradesDerived fires once per run with the total derived trade count.
	TradesDerived(mint string, count int)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) VenueResolved(string, string, bool) {}
func (NopObserver) PageFetched(string, int)            {}
func (NopObserver) BatchStart(string, int)             {}
func (NopObserver) BatchRetry(string, int, error)      {}
func (NopObserver) BatchDone(string, int, int)         {}
func (NopObserver) BatchExhausted(string, int)         {}
func (NopObserver) TradesDerived(string, int)          {}

// Compile-time interface check.
var _ Observer = NopObserver{}
