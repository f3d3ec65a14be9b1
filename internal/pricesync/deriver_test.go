package pricesync

import (
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/solana"
)

const (
	testMint   = "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	testSigner = "SignerAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

func int64Ptr(v int64) *int64 { return &v }

// sellTx builds a transaction where the signer sells 2 tokens for 0.5 SOL:
// token 5.0 -> 3.0, native 1.0 -> 1.5 once the fee is added back.
func sellTx(signature string) *solana.Transaction {
	return &solana.Transaction{
		Slot:      100,
		Signature: signature,
		BlockTime: int64Ptr(1_700_000_000),
		Meta: &solana.TransactionMeta{
			Fee:          5_000_000,
			PreBalances:  []uint64{1_000_000_000},
			PostBalances: []uint64{1_495_000_000},
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 1, Mint: testMint, Owner: testSigner, Amount: "5000000", Decimals: 6},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 1, Mint: testMint, Owner: testSigner, Amount: "3000000", Decimals: 6},
			},
		},
		Message: &solana.TransactionMessage{
			AccountKeys:           []string{testSigner},
			NumRequiredSignatures: 1,
		},
	}
}

func computeUnitPriceData(t *testing.T, microLamports uint64) string {
	t.Helper()
	data := make([]byte, 9)
	data[0] = setComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return base58.Encode(data)
}

func TestDerive_Sell(t *testing.T) {
	trades := NewPriceDeriver().Derive(sellTx("sig1"), testMint)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, domain.TradeSideSell, trade.Side)
	assert.Equal(t, testSigner, trade.Owner)
	assert.Equal(t, "sig1", trade.Signature)
	assert.Equal(t, testMint, trade.Mint)
	assert.Equal(t, 5.0, trade.PreTokenBalance)
	assert.Equal(t, 3.0, trade.PostTokenBalance)
	assert.Equal(t, 1.0, trade.PreNativeBalance)
	assert.Equal(t, 1.5, trade.PostNativeBalance)
	assert.Equal(t, 4.0, trade.Price)
	assert.Equal(t, int64(100), trade.Slot)
	assert.Equal(t, int64(1_700_000_000_000), trade.Timestamp)
	assert.NotEmpty(t, trade.TradeID)
}

func TestDerive_Buy(t *testing.T) {
	tx := sellTx("sig2")
	tx.Meta.PreTokenBalances[0].Amount = "3000000"
	tx.Meta.PostTokenBalances[0].Amount = "5000000"
	tx.Meta.PreBalances = []uint64{1_500_000_000}
	tx.Meta.PostBalances = []uint64{995_000_000}

	trades := NewPriceDeriver().Derive(tx, testMint)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.TradeSideBuy, trades[0].Side)
	assert.Equal(t, 4.0, trades[0].Price)
}

func TestDerive_AbsentTokenBalanceIsZero(t *testing.T) {
	// First buy: no pre token balance entry at all.
	tx := sellTx("sig3")
	tx.Meta.PreTokenBalances = nil

	trades := NewPriceDeriver().Derive(tx, testMint)
	require.Len(t, trades, 1)
	assert.Equal(t, 0.0, trades[0].PreTokenBalance)
	assert.Equal(t, domain.TradeSideBuy, trades[0].Side)
}

func TestDerive_UnchangedTokenBalance(t *testing.T) {
	tx := sellTx("sig4")
	tx.Meta.PostTokenBalances[0].Amount = tx.Meta.PreTokenBalances[0].Amount

	assert.Empty(t, NewPriceDeriver().Derive(tx, testMint))
}

func TestDerive_ZeroNativeDeltaClampsPrice(t *testing.T) {
	tx := sellTx("sig5")
	tx.Meta.Fee = 0
	tx.Meta.PostBalances = []uint64{tx.Meta.PreBalances[0]}

	trades := NewPriceDeriver().Derive(tx, testMint)
	require.Len(t, trades, 1)
	assert.Equal(t, 0.0, trades[0].Price)
}

func TestDerive_MissingMetadata(t *testing.T) {
	deriver := NewPriceDeriver()

	assert.Nil(t, deriver.Derive(nil, testMint))

	tx := sellTx("sig6")
	tx.Meta = nil
	assert.Nil(t, deriver.Derive(tx, testMint))

	tx = sellTx("sig6")
	tx.BlockTime = nil
	assert.Nil(t, deriver.Derive(tx, testMint))

	tx = sellTx("sig6")
	tx.Meta.PreBalances = nil
	assert.Nil(t, deriver.Derive(tx, testMint))
}

func TestDerive_PriorityFee(t *testing.T) {
	tx := sellTx("sig7")
	tx.Meta.ComputeUnitsConsumed = 200_000
	tx.Message.AccountKeys = []string{testSigner, computeBudgetProgram}
	tx.Message.Instructions = []solana.Instruction{
		{ProgramIDIndex: 1, Data: computeUnitPriceData(t, 50_000)},
	}

	trades := NewPriceDeriver().Derive(tx, testMint)
	require.Len(t, trades, 1)

	// 200_000 units * 50_000 micro-lamports = 10_000 lamports added back.
	assert.Equal(t, (1_495_000_000+5_000_000+10_000)/1e9, trades[0].PostNativeBalance)
}

func TestDerive_IgnoresOtherComputeBudgetInstructions(t *testing.T) {
	// Discriminator 2 is SetComputeUnitLimit; it carries no price.
	data := make([]byte, 9)
	data[0] = 2
	binary.LittleEndian.PutUint64(data[1:], 999_999)

	tx := sellTx("sig8")
	tx.Meta.ComputeUnitsConsumed = 200_000
	tx.Message.AccountKeys = []string{testSigner, computeBudgetProgram}
	tx.Message.Instructions = []solana.Instruction{
		{ProgramIDIndex: 1, Data: base58.Encode(data)},
	}

	trades := NewPriceDeriver().Derive(tx, testMint)
	require.Len(t, trades, 1)
	assert.Equal(t, 1.5, trades[0].PostNativeBalance)
}

func TestDerive_MultipleSigners(t *testing.T) {
	second := "SignerBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"

	tx := sellTx("sig9")
	tx.Message.AccountKeys = []string{testSigner, second}
	tx.Message.NumRequiredSignatures = 2
	tx.Meta.PreBalances = []uint64{1_000_000_000, 2_000_000_000}
	tx.Meta.PostBalances = []uint64{1_495_000_000, 1_895_000_000}
	tx.Meta.PreTokenBalances = append(tx.Meta.PreTokenBalances,
		solana.TokenBalance{AccountIndex: 2, Mint: testMint, Owner: second, Amount: "0", Decimals: 6})
	tx.Meta.PostTokenBalances = append(tx.Meta.PostTokenBalances,
		solana.TokenBalance{AccountIndex: 2, Mint: testMint, Owner: second, Amount: "1000000", Decimals: 6})

	trades := NewPriceDeriver().Derive(tx, testMint)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.TradeSideSell, trades[0].Side)
	assert.Equal(t, domain.TradeSideBuy, trades[1].Side)
	assert.NotEqual(t, trades[0].TradeID, trades[1].TradeID)
}

func TestDerive_OtherMintIgnored(t *testing.T) {
	tx := sellTx("sig10")
	assert.Empty(t, NewPriceDeriver().Derive(tx, "OtherMint11111111111111111111111111111111111"))
}
