package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Transaction represents a fetched Solana transaction with the metadata the
// price derivation needs: per-account pre/post lamport balances, per-owner
// pre/post token balances, fee data and the instruction list.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime *int64 // Unix timestamp (seconds), nil when the provider omits it
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err                  interface{}
	Fee                  uint64   // base transaction fee (lamports)
	ComputeUnitsConsumed uint64
	PreBalances          []uint64 // lamports per account key, same index as Message.AccountKeys
	PostBalances         []uint64
	PreTokenBalances     []TokenBalance
	PostTokenBalances    []TokenBalance
	LogMessages          []string
}

// TokenBalance is one entry from meta.preTokenBalances / postTokenBalances.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw base-unit amount as reported by the provider
	Decimals     int
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys           []string
	NumRequiredSignatures int // the first N account keys are signers
	Instructions          []Instruction
}

// Instruction is one top-level instruction of a transaction message.
type Instruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string // base58-encoded instruction data
}

// ProgramID resolves the instruction's program address against the message
// account keys. Returns "" when the index is out of range.
func (m *TransactionMessage) ProgramID(ix Instruction) string {
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(m.AccountKeys) {
		return ""
	}
	return m.AccountKeys[ix.ProgramIDIndex]
}

// Signers returns the account keys that signed the transaction.
func (m *TransactionMessage) Signers() []string {
	n := m.NumRequiredSignatures
	if n < 0 {
		n = 0
	}
	if n > len(m.AccountKeys) {
		n = len(m.AccountKeys)
	}
	return m.AccountKeys[:n]
}
