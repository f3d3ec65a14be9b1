package venue

import (
	"testing"

	"github.com/mr-tron/base58"
)

const testMint = "So11111111111111111111111111111111111111112"

func TestDeriveBondingCurve_Deterministic(t *testing.T) {
	a, err := DeriveBondingCurve(testMint, PumpFunProgram)
	if err != nil {
		t.Fatalf("DeriveBondingCurve: %v", err)
	}

	b, err := DeriveBondingCurve(testMint, PumpFunProgram)
	if err != nil {
		t.Fatalf("DeriveBondingCurve: %v", err)
	}

	if a != b {
		t.Errorf("expected identical addresses, got %s and %s", a, b)
	}

	decoded, err := base58.Decode(a)
	if err != nil {
		t.Fatalf("derived address is not base58: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("expected 32-byte address, got %d bytes", len(decoded))
	}
}

func TestDeriveBondingCurve_DistinctMints(t *testing.T) {
	a, err := DeriveBondingCurve(testMint, PumpFunProgram)
	if err != nil {
		t.Fatalf("DeriveBondingCurve: %v", err)
	}

	b, err := DeriveBondingCurve(PumpFunProgram, PumpFunProgram)
	if err != nil {
		t.Fatalf("DeriveBondingCurve: %v", err)
	}

	if a == b {
		t.Error("expected distinct addresses for distinct mints")
	}
}

func TestDeriveBondingCurve_InvalidMint(t *testing.T) {
	if _, err := DeriveBondingCurve("not-base58!", PumpFunProgram); err == nil {
		t.Error("expected error for invalid mint")
	}

	// Valid base58 but not 32 bytes.
	short := base58.Encode([]byte{1, 2, 3})
	if _, err := DeriveBondingCurve(short, PumpFunProgram); err == nil {
		t.Error("expected error for short mint")
	}
}

func TestDeriveProgramAddress_OffCurve(t *testing.T) {
	program, err := base58.Decode(PumpFunProgram)
	if err != nil {
		t.Fatalf("decode program: %v", err)
	}

	addr := DeriveProgramAddress([][]byte{[]byte("bonding-curve")}, program)
	if addr == "" {
		t.Fatal("expected a derived address")
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		t.Fatalf("decode derived address: %v", err)
	}
	if isOnCurve(decoded) {
		t.Error("derived address must be off the ed25519 curve")
	}
}
