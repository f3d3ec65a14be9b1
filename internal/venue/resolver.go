package venue

import (
	"context"
	"log"
)

// Resolver determines the trading venue for a mint: the registry-listed
// primary-market pool when one exists, else the deterministic bonding-curve
// pool derived from the mint.
type Resolver struct {
	registry            Registry
	quoteMint           string
	bondingCurveProgram string
	logger              *log.Logger
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Registry Registry
	// QuoteMint defaults to wrapped SOL.
	QuoteMint string
	// BondingCurveProgram defaults to the pump.fun program. A field rather
	// than a constant so a program registry can replace it if more
	// bonding-curve programs appear.
	BondingCurveProgram string
	Logger              *log.Logger
}

// NewResolver creates a venue resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	quoteMint := opts.QuoteMint
	if quoteMint == "" {
		quoteMint = WSOLMint
	}

	program := opts.BondingCurveProgram
	if program == "" {
		program = PumpFunProgram
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Resolver{
		registry:            opts.Registry,
		quoteMint:           quoteMint,
		bondingCurveProgram: program,
		logger:              logger,
	}
}

// Resolve returns the venue address for a mint and whether the bonding-curve
// fallback was used. Registry errors degrade to the fallback - a missing
// listing is the expected case for tokens still on their bonding curve.
func (r *Resolver) Resolve(ctx context.Context, mint string) (string, bool, error) {
	if r.registry != nil {
		pool, found, err := r.registry.FindVenue(ctx, mint, r.quoteMint)
		if err != nil {
			r.logger.Printf("Registry lookup failed for %s, using bonding curve: %v", mint, err)
		} else if found {
			return pool, false, nil
		}
	}

	pda, err := DeriveBondingCurve(mint, r.bondingCurveProgram)
	if err != nil {
		return "", false, err
	}
	return pda, true, nil
}
