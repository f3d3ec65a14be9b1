package pricesync

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/mr-tron/base58"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/idhash"
	"solana-price-history/internal/solana"
)

const (
	// computeBudgetProgram receives fee-priority instructions.
	computeBudgetProgram = "ComputeBudget111111111111111111111111111111"
	// setComputeUnitPrice is the instruction discriminator carrying the
	// micro-lamport price.
	setComputeUnitPrice = 3

	// tokenDecimalFactor scales raw token amounts; bonding-curve mints use
	// 6 decimals.
	tokenDecimalFactor      = 1e6
	lamportsPerSOL          = 1e9
	microLamportsPerLamport = 1_000_000
)

// PriceDeriver turns one decoded transaction into zero or more priced
// trades, one per signer whose token balance moved.
type PriceDeriver struct{}

// NewPriceDeriver creates a price deriver.
func NewPriceDeriver() *PriceDeriver {
	return &PriceDeriver{}
}

// Derive extracts priced trades for the given mint from a transaction.
// Transactions missing balance snapshots or a block time contribute nothing;
// absent metadata is an expected shape, not an error.
func (d *PriceDeriver) Derive(tx *solana.Transaction, mint string) []*domain.PricedTrade {
	if tx == nil || tx.Meta == nil || tx.Message == nil || tx.BlockTime == nil {
		return nil
	}

	meta := tx.Meta
	if len(meta.PreBalances) == 0 || len(meta.PostBalances) == 0 {
		return nil
	}

	priorityFee := derivePriorityFee(tx)
	timestamp := *tx.BlockTime * 1000

	var trades []*domain.PricedTrade
	for i, signer := range tx.Message.Signers() {
		if i >= len(meta.PreBalances) || i >= len(meta.PostBalances) {
			break
		}

		preToken := tokenBalanceFor(meta.PreTokenBalances, signer, mint)
		postToken := tokenBalanceFor(meta.PostTokenBalances, signer, mint)
		if preToken == postToken {
			// No token movement, nothing to price for this signer.
			continue
		}

		// Fees are added back to the post balance so the native delta
		// reflects only the economic trade, not fee consumption.
		preNative := float64(meta.PreBalances[i]) / lamportsPerSOL
		postNative := float64(meta.PostBalances[i]+meta.Fee+priorityFee) / lamportsPerSOL

		side := domain.TradeSideBuy
		if postToken < preToken {
			side = domain.TradeSideSell
		}

		trades = append(trades, &domain.PricedTrade{
			TradeID:           idhash.ComputeTradeID(mint, tx.Signature, signer),
			Signature:         tx.Signature,
			Mint:              mint,
			Side:              side,
			Owner:             signer,
			PreTokenBalance:   preToken,
			PostTokenBalance:  postToken,
			PreNativeBalance:  preNative,
			PostNativeBalance: postNative,
			Price:             impliedPrice(preToken, postToken, preNative, postNative),
			Slot:              tx.Slot,
			Timestamp:         timestamp,
		})
	}

	return trades
}

// impliedPrice computes |token delta| / |native delta|, clamping any
// degenerate result (zero denominator, NaN, Infinity, negative) to 0.
func impliedPrice(preToken, postToken, preNative, postNative float64) float64 {
	nativeDelta := math.Abs(preNative - postNative)
	if nativeDelta == 0 {
		return 0
	}

	price := math.Abs(preToken-postToken) / nativeDelta
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}

// tokenBalanceFor looks up an owner's balance for a mint in a snapshot set,
// scaled to whole token units. Absent entries are a zero balance.
func tokenBalanceFor(balances []solana.TokenBalance, owner, mint string) float64 {
	for _, b := range balances {
		if b.Owner != owner || b.Mint != mint {
			continue
		}
		raw, err := strconv.ParseFloat(b.Amount, 64)
		if err != nil {
			return 0
		}
		return raw / tokenDecimalFactor
	}
	return 0
}

// derivePriorityFee scans for a ComputeBudget SetComputeUnitPrice
// instruction and converts its micro-lamport price into lamports paid:
// floor(units consumed * price / 1e6). No instruction means no priority fee.
func derivePriorityFee(tx *solana.Transaction) uint64 {
	for _, ix := range tx.Message.Instructions {
		if tx.Message.ProgramID(ix) != computeBudgetProgram {
			continue
		}

		data, err := base58.Decode(ix.Data)
		if err != nil || len(data) < 9 {
			continue
		}
		if data[0] != setComputeUnitPrice {
			continue
		}

		microLamports := binary.LittleEndian.Uint64(data[1:9])
		return tx.Meta.ComputeUnitsConsumed * microLamports / microLamportsPerLamport
	}
	return 0
}
