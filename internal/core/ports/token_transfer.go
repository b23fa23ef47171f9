package ports

import "context"

// TokenTransfer is the external transfer capability of a token-contract
// asset, addressed by the asset's contract hash. The call is an opaque,
// possibly-failing remote invocation: no exactly-once guarantee and no
// visibility into partial effects, so callers must confirm success before
// finalizing any local state that depends on it.
type TokenTransfer interface {
	Transfer(ctx context.Context, assetID, from, to string, amount uint64) (bool, error)
}
