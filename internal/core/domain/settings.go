package domain

import (
	"context"
	"time"
)

// ContractPhase gates the operation surface. Pending permits only
// initialization, Active permits full operation, Inactive permits only
// administrative operations. The only transition out of Pending is
// initialize; nothing transitions back into it.
type ContractPhase byte

const (
	PhasePending  ContractPhase = 0x00
	PhaseActive   ContractPhase = 0x01
	PhaseInactive ContractPhase = 0x02
)

func (p ContractPhase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseInactive:
		return "inactive"
	default:
		return "pending"
	}
}

// DefaultWindowLength is one hour, in seconds.
const DefaultWindowLength int64 = 3600

type Settings struct {
	Phase        ContractPhase
	WindowLength int64 // seconds
	WindowStart  int64 // unix seconds, set once at initialization
	UpdatedAt    time.Time
}

// CapConfig holds the per-asset withdrawal limits. Both caps are mutable by
// the admin at any time and read on every verification.
type CapConfig struct {
	AssetID       string
	IndividualCap uint64
	GlobalCap     uint64
}

type SettingsRepository interface {
	Get(ctx context.Context) (*Settings, error)
	Upsert(ctx context.Context, settings Settings) error
	GetCaps(ctx context.Context, assetID string) (*CapConfig, error)
	UpsertCaps(ctx context.Context, caps CapConfig) error
	Close()
}
