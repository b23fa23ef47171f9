package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/drip-labs/dripd/internal/core/domain"
)

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(config ...interface{}) (domain.SettingsRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open settings repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &settingsRepository{db}, nil
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	row := r.db.QueryRowContext(
		ctx, "SELECT phase, window_length, window_start, updated_at FROM settings WHERE id = 1",
	)

	var phase, windowLength, windowStart, updatedAt int64
	err := row.Scan(&phase, &windowLength, &windowStart, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return &domain.Settings{
		Phase:        domain.ContractPhase(phase),
		WindowLength: windowLength,
		WindowStart:  windowStart,
		UpdatedAt:    time.Unix(updatedAt, 0),
	}, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings domain.Settings) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO settings (id, phase, window_length, window_start, updated_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   phase = excluded.phase,
		   window_length = excluded.window_length,
		   window_start = excluded.window_start,
		   updated_at = excluded.updated_at`,
		int64(settings.Phase), settings.WindowLength, settings.WindowStart,
		settings.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

func (r *settingsRepository) GetCaps(
	ctx context.Context, assetID string,
) (*domain.CapConfig, error) {
	row := r.db.QueryRowContext(
		ctx, "SELECT individual_cap, global_cap FROM caps WHERE asset_id = ?", assetID,
	)

	var individualCap, globalCap int64
	err := row.Scan(&individualCap, &globalCap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get caps: %w", err)
	}

	return &domain.CapConfig{
		AssetID:       assetID,
		IndividualCap: uint64(individualCap),
		GlobalCap:     uint64(globalCap),
	}, nil
}

func (r *settingsRepository) UpsertCaps(ctx context.Context, caps domain.CapConfig) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO caps (asset_id, individual_cap, global_cap)
		 VALUES (?, ?, ?)
		 ON CONFLICT (asset_id) DO UPDATE SET
		   individual_cap = excluded.individual_cap,
		   global_cap = excluded.global_cap`,
		caps.AssetID, int64(caps.IndividualCap), int64(caps.GlobalCap),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert caps: %w", err)
	}
	return nil
}

// Close is a no-op: the sql handle is shared across repositories and owned
// by the db service.
func (r *settingsRepository) Close() {}
