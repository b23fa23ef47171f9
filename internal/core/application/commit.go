package application

import (
	"context"
	"fmt"

	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Committer applies the state mutation for a transaction the ledger has
// committed. Commitment is sequential and single-writer: each call runs to
// completion against current state before the next one starts. Because
// verification happened against a pre-consensus snapshot, Commit re-verifies
// against current state first, which is what makes two conflicting
// candidates mutually exclusive.
type Committer interface {
	Commit(ctx context.Context, tx domain.CandidateTx, now int64) ([]domain.Event, error)
}

type committer struct {
	repoManager   ports.RepoManager
	verifier      Verifier
	tokenTransfer ports.TokenTransfer
	eventBus      ports.EventBus

	holdingAddress string
}

func NewCommitter(
	repoManager ports.RepoManager, verifier Verifier,
	tokenTransfer ports.TokenTransfer, eventBus ports.EventBus,
	holdingAddress string,
) Committer {
	return &committer{
		repoManager:    repoManager,
		verifier:       verifier,
		tokenTransfer:  tokenTransfer,
		eventBus:       eventBus,
		holdingAddress: holdingAddress,
	}
}

func (c *committer) Commit(
	ctx context.Context, tx domain.CandidateTx, now int64,
) ([]domain.Event, error) {
	if err := c.verifier.Verify(ctx, tx, now); err != nil {
		return nil, err
	}

	claim := Classify(tx)

	var events []domain.Event
	var err error
	switch claim.Stage {
	case domain.StageMark:
		events, err = c.commitMark(ctx, tx, claim, now)
	case domain.StageWithdraw:
		events, err = c.commitWithdraw(ctx, tx, claim, now)
	case domain.StageTransfer:
		events, err = c.commitTransfer(ctx, tx, claim, now)
	default:
		// Admin-witnessed transaction with no withdrawal stage: the
		// operations it carries go through the dispatcher, nothing to do.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		if err := c.eventBus.Publish(ctx, events...); err != nil {
			log.WithError(err).Warn("failed to publish withdrawal events")
		}
	}
	return events, nil
}

func (c *committer) commitMark(
	ctx context.Context, tx domain.CandidateTx, claim Claim, now int64,
) ([]domain.Event, error) {
	caps, err := c.repoManager.Settings().GetCaps(ctx, claim.Asset.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get caps: %w", err)
	}
	if caps == nil {
		return nil, fmt.Errorf("%w: no cap configured for asset %s", ErrRejected, claim.Asset.ID)
	}

	if err := c.repoManager.RateLimits().RecordClaim(
		ctx, claim.Claimant, claim.Asset.ID, caps.IndividualCap, now,
	); err != nil {
		return nil, fmt.Errorf("failed to record claim: %w", err)
	}

	if claim.Asset.Category == domain.TokenAsset {
		// The single fee output is what the later Transfer consumes.
		if err := c.repoManager.Reservations().Reserve(ctx, domain.Reservation{
			Outpoint:  domain.Outpoint{Txid: tx.Txid, VOut: 0},
			Address:   claim.Claimant,
			CreatedAt: now,
		}); err != nil {
			return nil, fmt.Errorf("failed to reserve fee output: %w", err)
		}
	} else {
		// Reserve declared outputs in order while the running sum stays
		// within the individual cap; outputs beyond the cap stay free so a
		// later Withdraw cannot be satisfied past it.
		var sum uint64
		for i, out := range tx.Outputs {
			// sum never exceeds the cap, so the subtraction cannot wrap.
			if out.Amount > caps.IndividualCap-sum {
				break
			}
			sum += out.Amount
			if err := c.repoManager.Reservations().Reserve(ctx, domain.Reservation{
				Outpoint:  domain.Outpoint{Txid: tx.Txid, VOut: uint32(i)},
				Address:   claim.Claimant,
				CreatedAt: now,
			}); err != nil {
				return nil, fmt.Errorf("failed to reserve output %d: %w", i, err)
			}
		}
	}

	log.WithFields(log.Fields{
		"address": claim.Claimant,
		"asset":   claim.Asset.ID,
		"amount":  caps.IndividualCap,
	}).Debug("marked withdrawal")

	return []domain.Event{domain.Withdrawing{
		ID:        uuid.NewString(),
		Address:   claim.Claimant,
		AssetID:   claim.Asset.ID,
		Amount:    caps.IndividualCap,
		Timestamp: now,
	}}, nil
}

func (c *committer) commitWithdraw(
	ctx context.Context, tx domain.CandidateTx, claim Claim, now int64,
) ([]domain.Event, error) {
	for _, input := range tx.Inputs {
		if err := c.repoManager.Reservations().Release(ctx, input); err != nil {
			return nil, fmt.Errorf("failed to release reservation for %s: %w", input, err)
		}
	}

	var paid uint64
	for _, out := range tx.Outputs {
		if out.Recipient != c.holdingAddress {
			paid += out.Amount
		}
	}

	log.WithFields(log.Fields{
		"address": claim.Claimant,
		"asset":   claim.Asset.ID,
		"amount":  paid,
	}).Debug("withdrawal completed")

	return []domain.Event{domain.Withdrawn{
		ID:        uuid.NewString(),
		Address:   claim.Claimant,
		AssetID:   claim.Asset.ID,
		Amount:    paid,
		Timestamp: now,
	}}, nil
}

func (c *committer) commitTransfer(
	ctx context.Context, tx domain.CandidateTx, claim Claim, now int64,
) ([]domain.Event, error) {
	caps, err := c.repoManager.Settings().GetCaps(ctx, claim.Asset.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get caps: %w", err)
	}
	if caps == nil {
		return nil, fmt.Errorf("%w: no cap configured for asset %s", ErrRejected, claim.Asset.ID)
	}

	// Confirm the external transfer before touching reservations: the call
	// has no ledger-side effect to roll back, so it must come first.
	ok, err := c.tokenTransfer.Transfer(
		ctx, claim.Asset.ID, c.holdingAddress, claim.Claimant, caps.IndividualCap,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExternalTransfer, err)
	}
	if !ok {
		return nil, ErrExternalTransfer
	}

	for _, input := range tx.Inputs {
		if err := c.repoManager.Reservations().Release(ctx, input); err != nil {
			return nil, fmt.Errorf("failed to release reservation for %s: %w", input, err)
		}
	}

	log.WithFields(log.Fields{
		"address": claim.Claimant,
		"asset":   claim.Asset.ID,
		"amount":  caps.IndividualCap,
	}).Debug("token withdrawal completed")

	return []domain.Event{domain.Withdrawn{
		ID:        uuid.NewString(),
		Address:   claim.Claimant,
		AssetID:   claim.Asset.ID,
		Amount:    caps.IndividualCap,
		Timestamp: now,
	}}, nil
}
