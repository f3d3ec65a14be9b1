package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(mint|tx_signature|owner)
// Returns hex-encoded hash (64 characters).
//
// One transaction yields at most one trade per signer for a given mint, so
// this triple uniquely identifies a derived trade and makes re-syncing an
// overlapping history window idempotent at the storage layer.
func ComputeTradeID(mint, txSignature, owner string) string {
	data := fmt.Sprintf("%s|%s|%s", mint, txSignature, owner)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
