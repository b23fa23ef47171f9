package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Operation names of the dispatch surface.
const (
	OpInitialize          = "initialize"
	OpFreezeWithdrawals   = "freezeWithdrawals"
	OpUnfreezeWithdrawals = "unfreezeWithdrawals"
	OpSetIndividualCap    = "setIndividualCap"
	OpSetGlobalCap        = "setGlobalCap"
	OpGetIndividualCap    = "getIndividualCap"
	OpGetGlobalCap        = "getGlobalCap"
	OpGetLastWithdrawTime = "getLastWithdrawTime"
	OpGetTotalWithdrawn   = "getTotalWithdrawn"
)

// Dispatcher is the single entry point for the operation surface: an
// operation name plus an argument list, carried by a committed transaction.
// Mutating operations require the admin witness on that transaction;
// read-only queries require none. Everything except initialize requires the
// contract to be initialized.
type Dispatcher interface {
	Dispatch(
		ctx context.Context, tx domain.CandidateTx,
		operation string, args []string, now int64,
	) (interface{}, error)
}

type dispatcher struct {
	repoManager  ports.RepoManager
	ledger       ports.Ledger
	adminSvc     AdminService
	adminAddress string
}

func NewDispatcher(
	repoManager ports.RepoManager, ledger ports.Ledger,
	adminSvc AdminService, adminAddress string,
) Dispatcher {
	return &dispatcher{
		repoManager:  repoManager,
		ledger:       ledger,
		adminSvc:     adminSvc,
		adminAddress: adminAddress,
	}
}

func (d *dispatcher) Dispatch(
	ctx context.Context, tx domain.CandidateTx,
	operation string, args []string, now int64,
) (interface{}, error) {
	logger := log.WithField("operation", operation)

	if operation == OpInitialize {
		if err := d.checkAdminWitness(ctx, tx); err != nil {
			logger.WithError(err).Warn("initialize refused")
			return nil, err
		}
		if err := d.adminSvc.Initialize(ctx, now); err != nil {
			return nil, err
		}
		return true, nil
	}

	settings, err := d.repoManager.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil || settings.Phase == domain.PhasePending {
		return nil, ErrNotInitialized
	}

	switch operation {
	case OpGetIndividualCap:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", operation, len(args))
		}
		return d.adminSvc.GetIndividualCap(ctx, args[0])
	case OpGetGlobalCap:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", operation, len(args))
		}
		return d.adminSvc.GetGlobalCap(ctx, args[0])
	case OpGetTotalWithdrawn:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", operation, len(args))
		}
		return d.adminSvc.GetTotalWithdrawn(ctx, args[0])
	case OpGetLastWithdrawTime:
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", operation, len(args))
		}
		return d.adminSvc.GetLastWithdrawTime(ctx, args[0], args[1])
	}

	if err := d.checkAdminWitness(ctx, tx); err != nil {
		logger.WithError(err).Warn("admin operation refused")
		return nil, err
	}

	switch operation {
	case OpFreezeWithdrawals:
		if err := d.adminSvc.FreezeWithdrawals(ctx); err != nil {
			return nil, err
		}
		return true, nil
	case OpUnfreezeWithdrawals:
		if err := d.adminSvc.UnfreezeWithdrawals(ctx); err != nil {
			return nil, err
		}
		return true, nil
	case OpSetIndividualCap:
		assetID, amount, err := capArgs(operation, args)
		if err != nil {
			return nil, err
		}
		if err := d.adminSvc.SetIndividualCap(ctx, assetID, amount); err != nil {
			return nil, err
		}
		return true, nil
	case OpSetGlobalCap:
		assetID, amount, err := capArgs(operation, args)
		if err != nil {
			return nil, err
		}
		if err := d.adminSvc.SetGlobalCap(ctx, assetID, amount); err != nil {
			return nil, err
		}
		return true, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, operation)
	}
}

func (d *dispatcher) checkAdminWitness(ctx context.Context, tx domain.CandidateTx) error {
	ok, err := d.ledger.IsWitnessedBy(ctx, tx, d.adminAddress)
	if err != nil {
		return fmt.Errorf("failed to check admin witness: %w", err)
	}
	if !ok {
		return ErrAdminAuth
	}
	return nil
}

func capArgs(operation string, args []string) (string, uint64, error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("%s: expected 2 arguments, got %d", operation, len(args))
	}
	amount, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%s: invalid amount %q: %w", operation, args[1], err)
	}
	return args[0], amount, nil
}
