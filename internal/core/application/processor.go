package application

import (
	"context"
	"errors"
	"time"

	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Processor drives the commit loop. The host ledger enqueues each finalized
// transaction as a submission carrying its consensus context (witnesses and
// resolved prior outputs); the processor drains the queue in arrival order
// and applies each submission through the committer. Processing stays
// strictly sequential: one submission runs to completion before the next is
// read.
type Processor interface {
	Start()
	Stop()
	// ProcessPending drains the queue once and returns how many submissions
	// were handled. A submission that fails its external transfer stays
	// queued and stops the drain; it is retried on the next pass.
	ProcessPending(ctx context.Context) (int, error)
}

type processor struct {
	repoManager   ports.RepoManager
	tokenTransfer ports.TokenTransfer
	eventBus      ports.EventBus

	holdingAddress string
	adminAddress   string
	feeAssetID     string

	pollInterval time.Duration
	stopCh       chan struct{}
}

func NewProcessor(
	repoManager ports.RepoManager,
	tokenTransfer ports.TokenTransfer, eventBus ports.EventBus,
	holdingAddress, adminAddress, feeAssetID string,
	pollInterval time.Duration,
) Processor {
	return &processor{
		repoManager:    repoManager,
		tokenTransfer:  tokenTransfer,
		eventBus:       eventBus,
		holdingAddress: holdingAddress,
		adminAddress:   adminAddress,
		feeAssetID:     feeAssetID,
		pollInterval:   pollInterval,
		stopCh:         make(chan struct{}),
	}
}

func (p *processor) Start() {
	go func() {
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				count, err := p.ProcessPending(context.Background())
				if err != nil {
					log.WithError(err).Error("failed to process submissions")
					continue
				}
				if count > 0 {
					log.Debugf("processed %d submissions", count)
				}
			}
		}
	}()
}

func (p *processor) Stop() {
	close(p.stopCh)
}

func (p *processor) ProcessPending(ctx context.Context) (int, error) {
	count := 0
	for {
		submission, err := p.repoManager.Submissions().Next(ctx)
		if err != nil {
			return count, err
		}
		if submission == nil {
			return count, nil
		}

		logger := log.WithField("txid", submission.Tx.Txid)

		now := submission.ReceivedAt
		if now == 0 {
			now = time.Now().Unix()
		}

		// Witness checks and input resolution answer from the submission's
		// own consensus context.
		ledger := submissionLedger{submission}
		verifier := NewVerifier(
			p.repoManager, ledger, p.holdingAddress, p.adminAddress, p.feeAssetID,
		)
		committer := NewCommitter(
			p.repoManager, verifier, p.tokenTransfer, p.eventBus, p.holdingAddress,
		)

		_, err = committer.Commit(ctx, submission.Tx, now)
		switch {
		case err == nil:
			logger.Debug("submission committed")
		case errors.Is(err, ErrExternalTransfer):
			// Reservations survived; leave the submission queued and retry
			// on the next pass.
			logger.WithError(err).Warn("external transfer failed, submission kept")
			return count, nil
		case errors.Is(err, ErrRejected), errors.Is(err, ErrNotInitialized):
			logger.WithError(err).Warn("submission rejected")
		default:
			return count, err
		}

		if err := p.repoManager.Submissions().Delete(ctx, submission.Tx.Txid); err != nil {
			return count, err
		}
		count++
	}
}

// submissionLedger is the ports.Ledger view of a single submission.
type submissionLedger struct {
	submission *domain.Submission
}

func (l submissionLedger) ResolveOutput(
	_ context.Context, outpoint domain.Outpoint,
) (*domain.TxOutput, error) {
	out, ok := l.submission.Prevouts[outpoint.String()]
	if !ok {
		return nil, nil
	}
	return &out, nil
}

func (l submissionLedger) IsWitnessedBy(
	_ context.Context, tx domain.CandidateTx, address string,
) (bool, error) {
	if tx.Txid != l.submission.Tx.Txid {
		return false, nil
	}
	for _, witness := range l.submission.Witnesses {
		if witness == address {
			return true, nil
		}
	}
	return false, nil
}
