package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const rateLimitStoreDir = "ratelimits"

type rateLimitRepository struct {
	store *badgerhold.Store
}

func NewRateLimitRepository(config ...interface{}) (domain.RateLimitRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, rateLimitStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open rate limit store: %s", err)
	}

	return &rateLimitRepository{store}, nil
}

func (r *rateLimitRepository) GetLastClaimTime(
	ctx context.Context, address, assetID string,
) (int64, error) {
	var record domain.RateLimitRecord
	err := r.store.Get(recordKey(address, assetID), &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limit record: %w", err)
	}
	return record.LastClaimTime, nil
}

func (r *rateLimitRepository) GetTotalClaimed(
	ctx context.Context, assetID string,
) (uint64, error) {
	var tally domain.AssetTally
	err := r.store.Get(assetID, &tally)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get asset tally: %w", err)
	}
	return tally.TotalClaimed, nil
}

// RecordClaim updates the pair's last-claim time and the asset tally in a
// single badger transaction so a crash cannot split the two writes.
func (r *rateLimitRepository) RecordClaim(
	ctx context.Context, address, assetID string, amount uint64, now int64,
) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			var tally domain.AssetTally
			if err := r.store.TxGet(tx, assetID, &tally); err != nil {
				if !errors.Is(err, badgerhold.ErrNotFound) {
					return err
				}
				tally = domain.AssetTally{AssetID: assetID}
			}
			tally.TotalClaimed += amount
			if err := r.store.TxUpsert(tx, assetID, &tally); err != nil {
				return err
			}

			record := domain.RateLimitRecord{
				AssetID:       assetID,
				Address:       address,
				LastClaimTime: now,
			}
			if err := r.store.TxUpsert(tx, recordKey(address, assetID), &record); err != nil {
				return err
			}

			return tx.Commit()
		}()
		if err == nil {
			return nil
		}

		if errors.Is(err, badger.ErrConflict) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return err
	}

	return err
}

func (r *rateLimitRepository) Close() {
	// nolint:all
	r.store.Close()
}

func recordKey(address, assetID string) string {
	return fmt.Sprintf("%s:%s", assetID, address)
}
