package domain

import (
	"encoding/hex"
	"fmt"
)

// Asset identifier lengths in bytes. Native ledger assets use 32-byte ids,
// token-contract assets are addressed by their 20-byte contract hash.
const (
	NativeAssetIDLen = 32
	TokenAssetIDLen  = 20

	AddressLen = 20
)

type AssetCategory int

const (
	NativeAsset AssetCategory = iota
	TokenAsset
)

func (c AssetCategory) String() string {
	switch c {
	case NativeAsset:
		return "native"
	case TokenAsset:
		return "token"
	default:
		return "unknown"
	}
}

// Asset is a tagged variant: the category is decided once, from the
// identifier length, and threaded through instead of being re-derived.
// For token assets the id doubles as the contract address the external
// transfer call is dispatched to.
type Asset struct {
	ID       string // hex-encoded identifier
	Category AssetCategory
}

func NewAsset(id string) (Asset, error) {
	buf, err := hex.DecodeString(id)
	if err != nil {
		return Asset{}, fmt.Errorf("invalid asset id %s: %w", id, err)
	}
	switch len(buf) {
	case NativeAssetIDLen:
		return Asset{ID: id, Category: NativeAsset}, nil
	case TokenAssetIDLen:
		return Asset{ID: id, Category: TokenAsset}, nil
	default:
		return Asset{}, fmt.Errorf("invalid asset id length %d", len(buf))
	}
}

func (a Asset) IsZero() bool {
	return a.ID == ""
}

// ValidAddress reports whether addr is a well-formed hex-encoded address.
// Addresses are opaque and compared by equality only.
func ValidAddress(addr string) bool {
	buf, err := hex.DecodeString(addr)
	if err != nil {
		return false
	}
	return len(buf) == AddressLen
}
