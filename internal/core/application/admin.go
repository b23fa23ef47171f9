package application

import (
	"context"
	"fmt"
	"time"

	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// AdminService mutates the configuration store. Witness checks happen at
// dispatch; by the time these methods run the caller has been authenticated.
type AdminService interface {
	Initialize(ctx context.Context, now int64) error
	FreezeWithdrawals(ctx context.Context) error
	UnfreezeWithdrawals(ctx context.Context) error
	SetIndividualCap(ctx context.Context, assetID string, amount uint64) error
	SetGlobalCap(ctx context.Context, assetID string, amount uint64) error

	GetIndividualCap(ctx context.Context, assetID string) (uint64, error)
	GetGlobalCap(ctx context.Context, assetID string) (uint64, error)
	GetLastWithdrawTime(ctx context.Context, address, assetID string) (int64, error)
	GetTotalWithdrawn(ctx context.Context, assetID string) (uint64, error)
}

type adminService struct {
	repoManager  ports.RepoManager
	windowLength int64
}

func NewAdminService(repoManager ports.RepoManager, windowLength int64) AdminService {
	if windowLength <= 0 {
		windowLength = domain.DefaultWindowLength
	}
	return &adminService{
		repoManager:  repoManager,
		windowLength: windowLength,
	}
}

// Initialize is one-shot: it moves the phase from Pending to Active and
// records the window start. Any later call fails without mutation.
func (a *adminService) Initialize(ctx context.Context, now int64) error {
	settings, err := a.repoManager.Settings().Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings != nil && settings.Phase != domain.PhasePending {
		return ErrAlreadyInitialized
	}

	if err := a.repoManager.Settings().Upsert(ctx, domain.Settings{
		Phase:        domain.PhaseActive,
		WindowLength: a.windowLength,
		WindowStart:  now,
		UpdatedAt:    time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	log.WithField("window_start", now).Info("faucet initialized")
	return nil
}

func (a *adminService) FreezeWithdrawals(ctx context.Context) error {
	return a.setPhase(ctx, domain.PhaseInactive)
}

func (a *adminService) UnfreezeWithdrawals(ctx context.Context) error {
	return a.setPhase(ctx, domain.PhaseActive)
}

// setPhase is idempotent: freezing an inactive faucet or unfreezing an
// active one is a no-op that still succeeds.
func (a *adminService) setPhase(ctx context.Context, phase domain.ContractPhase) error {
	settings, err := a.repoManager.Settings().Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil || settings.Phase == domain.PhasePending {
		return ErrNotInitialized
	}
	if settings.Phase == phase {
		return nil
	}

	settings.Phase = phase
	settings.UpdatedAt = time.Now()
	if err := a.repoManager.Settings().Upsert(ctx, *settings); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	log.WithField("phase", phase.String()).Info("faucet phase changed")
	return nil
}

func (a *adminService) SetIndividualCap(
	ctx context.Context, assetID string, amount uint64,
) error {
	return a.setCap(ctx, assetID, func(caps *domain.CapConfig) {
		caps.IndividualCap = amount
	})
}

func (a *adminService) SetGlobalCap(
	ctx context.Context, assetID string, amount uint64,
) error {
	return a.setCap(ctx, assetID, func(caps *domain.CapConfig) {
		caps.GlobalCap = amount
	})
}

func (a *adminService) setCap(
	ctx context.Context, assetID string, update func(*domain.CapConfig),
) error {
	if _, err := domain.NewAsset(assetID); err != nil {
		return err
	}

	caps, err := a.repoManager.Settings().GetCaps(ctx, assetID)
	if err != nil {
		return fmt.Errorf("failed to get caps: %w", err)
	}
	if caps == nil {
		caps = &domain.CapConfig{AssetID: assetID}
	}
	update(caps)

	if err := a.repoManager.Settings().UpsertCaps(ctx, *caps); err != nil {
		return fmt.Errorf("failed to persist caps: %w", err)
	}

	log.WithFields(log.Fields{
		"asset":          assetID,
		"individual_cap": caps.IndividualCap,
		"global_cap":     caps.GlobalCap,
	}).Info("caps updated")
	return nil
}

func (a *adminService) GetIndividualCap(
	ctx context.Context, assetID string,
) (uint64, error) {
	caps, err := a.repoManager.Settings().GetCaps(ctx, assetID)
	if err != nil {
		return 0, fmt.Errorf("failed to get caps: %w", err)
	}
	if caps == nil {
		return 0, nil
	}
	return caps.IndividualCap, nil
}

func (a *adminService) GetGlobalCap(
	ctx context.Context, assetID string,
) (uint64, error) {
	caps, err := a.repoManager.Settings().GetCaps(ctx, assetID)
	if err != nil {
		return 0, fmt.Errorf("failed to get caps: %w", err)
	}
	if caps == nil {
		return 0, nil
	}
	return caps.GlobalCap, nil
}

func (a *adminService) GetLastWithdrawTime(
	ctx context.Context, address, assetID string,
) (int64, error) {
	return a.repoManager.RateLimits().GetLastClaimTime(ctx, address, assetID)
}

func (a *adminService) GetTotalWithdrawn(
	ctx context.Context, assetID string,
) (uint64, error) {
	return a.repoManager.RateLimits().GetTotalClaimed(ctx, assetID)
}
