package application

import (
	"encoding/hex"

	"github.com/drip-labs/dripd/internal/core/domain"
)

// Claim is what a candidate transaction declares about itself: the protocol
// stage it represents, the claiming address and the target asset. A claim
// with StageNone, an empty claimant or a zero asset is "no valid claim" and
// is rejected everywhere outside administrative paths.
type Claim struct {
	Stage    domain.WithdrawalStage
	Claimant string
	Asset    domain.Asset
}

// Classify derives the claim from the transaction's attribute slots. It is a
// pure function of the transaction metadata: missing or malformed slots
// degrade to the zero value of the corresponding field instead of failing.
func Classify(tx domain.CandidateTx) Claim {
	claim := Claim{
		Stage:    domain.StageFromTag(tx.Attribute(domain.AttrUsageStage)),
		Claimant: classifyClaimant(tx),
		Asset:    classifyAsset(tx),
	}
	return claim
}

func classifyClaimant(tx domain.CandidateTx) string {
	data := tx.Attribute(domain.AttrUsageClaimant)
	if len(data) < domain.AddressLen {
		return ""
	}
	// The slot may carry a longer witness-style payload; the address is its
	// first 20 bytes.
	return hex.EncodeToString(data[:domain.AddressLen])
}

func classifyAsset(tx domain.CandidateTx) domain.Asset {
	// The token slot wins when both are present: a token claim still moves
	// the native fee asset through its outputs.
	if data := tx.Attribute(domain.AttrUsageTokenAsset); len(data) == domain.TokenAssetIDLen {
		return domain.Asset{ID: hex.EncodeToString(data), Category: domain.TokenAsset}
	}
	if data := tx.Attribute(domain.AttrUsageNativeAsset); len(data) == domain.NativeAssetIDLen {
		return domain.Asset{ID: hex.EncodeToString(data), Category: domain.NativeAsset}
	}
	return domain.Asset{}
}
