package domain

import (
	"context"
	"math/big"
)

// RateLimitRecord tracks the last successful claim per (address, asset).
// A zero LastClaimTime means the pair has never claimed and is eligible.
type RateLimitRecord struct {
	AssetID       string
	Address       string
	LastClaimTime int64 // unix seconds
}

// AssetTally tracks, per asset, the total amount claimed since the window
// start. It is monotonically non-decreasing: the global cap scales with the
// elapsed window count instead of the counter resetting, so no background
// reset job is needed.
type AssetTally struct {
	AssetID      string
	TotalClaimed uint64
}

// CurrentWindowIndex computes floor((now-windowStart)/windowLength) + 1.
// It returns 0 when now precedes the window start or the length is invalid,
// which makes every global-cap check fail closed.
func CurrentWindowIndex(now, windowStart, windowLength int64) int64 {
	if windowLength <= 0 || now < windowStart {
		return 0
	}
	return (now-windowStart)/windowLength + 1
}

// WithinGlobalCap reports whether totalClaimed <= globalCap * windowIndex.
// The product can exceed 64 bits so the comparison is done on big.Int.
func WithinGlobalCap(totalClaimed, globalCap uint64, windowIndex int64) bool {
	if windowIndex <= 0 {
		return false
	}
	budget := new(big.Int).Mul(
		new(big.Int).SetUint64(globalCap),
		big.NewInt(windowIndex),
	)
	return new(big.Int).SetUint64(totalClaimed).Cmp(budget) <= 0
}

type RateLimitRepository interface {
	GetLastClaimTime(ctx context.Context, address, assetID string) (int64, error)
	GetTotalClaimed(ctx context.Context, assetID string) (uint64, error)
	// RecordClaim sets the (address, asset) last-claim time to now and adds
	// amount to the asset's tally. Callers must have verified eligibility
	// against the same state beforehand.
	RecordClaim(ctx context.Context, address, assetID string, amount uint64, now int64) error
	Close()
}
