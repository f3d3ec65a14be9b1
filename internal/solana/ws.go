package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to logs mentioning the given address.
	// Notifications stop when ctx is cancelled or the client is closed.
	SubscribeLogs(ctx context.Context, mentions string) (<-chan LogNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
