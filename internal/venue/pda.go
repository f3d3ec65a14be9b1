package venue

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PumpFunProgram is the bonding-curve program whose pools back tokens that
// never graduated to a primary market.
const PumpFunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// bondingCurveSeed is the namespace tag for bonding-curve pool PDAs.
const bondingCurveSeed = "bonding-curve"

// DeriveBondingCurve derives the bonding-curve pool address for a mint.
// Seeds: ["bonding-curve", mint], reproducible byte-for-byte for the same
// mint and program.
func DeriveBondingCurve(mint, programID string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	if len(mintBytes) != 32 {
		return "", fmt.Errorf("mint is not a 32-byte key: %d bytes", len(mintBytes))
	}

	programBytes, err := base58.Decode(programID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	if len(programBytes) != 32 {
		return "", fmt.Errorf("program id is not a 32-byte key: %d bytes", len(programBytes))
	}

	seeds := [][]byte{
		[]byte(bondingCurveSeed),
		mintBytes,
	}

	pda := DeriveProgramAddress(seeds, programBytes)
	if pda == "" {
		return "", fmt.Errorf("no valid bump for mint %s", mint)
	}
	return pda, nil
}

// DeriveProgramAddress derives a Program Derived Address using the Solana
// algorithm:
//  1. Concatenate all seeds with a bump byte (255 down to 1)
//  2. Append program ID and "ProgramDerivedAddress" marker
//  3. SHA256 hash
//  4. The first hash that is off the ed25519 curve is the address
func DeriveProgramAddress(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
