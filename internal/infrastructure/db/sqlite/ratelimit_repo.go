package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/drip-labs/dripd/internal/core/domain"
)

type rateLimitRepository struct {
	db *sql.DB
}

func NewRateLimitRepository(config ...interface{}) (domain.RateLimitRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open rate limit repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &rateLimitRepository{db}, nil
}

func (r *rateLimitRepository) GetLastClaimTime(
	ctx context.Context, address, assetID string,
) (int64, error) {
	row := r.db.QueryRowContext(
		ctx,
		"SELECT last_claim_time FROM rate_limits WHERE asset_id = ? AND address = ?",
		assetID, address,
	)

	var lastClaimTime int64
	err := row.Scan(&lastClaimTime)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last claim time: %w", err)
	}
	return lastClaimTime, nil
}

func (r *rateLimitRepository) GetTotalClaimed(
	ctx context.Context, assetID string,
) (uint64, error) {
	row := r.db.QueryRowContext(
		ctx, "SELECT total_claimed FROM asset_tallies WHERE asset_id = ?", assetID,
	)

	var totalClaimed int64
	err := row.Scan(&totalClaimed)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get total claimed: %w", err)
	}
	return uint64(totalClaimed), nil
}

func (r *rateLimitRepository) RecordClaim(
	ctx context.Context, address, assetID string, amount uint64, now int64,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	// nolint:errcheck
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO asset_tallies (asset_id, total_claimed)
		 VALUES (?, ?)
		 ON CONFLICT (asset_id) DO UPDATE SET
		   total_claimed = total_claimed + excluded.total_claimed`,
		assetID, int64(amount),
	); err != nil {
		return fmt.Errorf("failed to update asset tally: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO rate_limits (asset_id, address, last_claim_time)
		 VALUES (?, ?, ?)
		 ON CONFLICT (asset_id, address) DO UPDATE SET
		   last_claim_time = excluded.last_claim_time`,
		assetID, address, now,
	); err != nil {
		return fmt.Errorf("failed to update rate limit record: %w", err)
	}

	return tx.Commit()
}

// Close is a no-op: the sql handle is shared across repositories and owned
// by the db service.
func (r *rateLimitRepository) Close() {}
