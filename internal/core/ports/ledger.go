package ports

import (
	"context"

	"github.com/drip-labs/dripd/internal/core/domain"
)

// Ledger is the consensus engine this coordinator is embedded in. It orders
// and finalizes transactions, resolves input references to the prior outputs
// they spend, and performs signature/witness verification. The coordinator
// never trusts a candidate transaction beyond what this interface confirms.
type Ledger interface {
	// ResolveOutput returns the output a prior transaction created at the
	// given outpoint, or nil if unknown.
	ResolveOutput(ctx context.Context, outpoint domain.Outpoint) (*domain.TxOutput, error)
	// IsWitnessedBy reports whether the transaction carries a valid witness
	// for the given address.
	IsWitnessedBy(ctx context.Context, tx domain.CandidateTx, address string) (bool, error)
}
