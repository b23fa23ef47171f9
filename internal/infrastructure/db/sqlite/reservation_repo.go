package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/drip-labs/dripd/internal/core/domain"
)

type reservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(config ...interface{}) (domain.ReservationRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open reservation repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &reservationRepository{db}, nil
}

func (r *reservationRepository) Get(
	ctx context.Context, outpoint domain.Outpoint,
) (*domain.Reservation, error) {
	row := r.db.QueryRowContext(
		ctx,
		"SELECT address, created_at FROM reservations WHERE txid = ? AND vout = ?",
		outpoint.Txid, outpoint.VOut,
	)

	var address string
	var createdAt int64
	err := row.Scan(&address, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &domain.Reservation{
		Outpoint:  outpoint,
		Address:   address,
		CreatedAt: createdAt,
	}, nil
}

func (r *reservationRepository) Reserve(
	ctx context.Context, reservation domain.Reservation,
) error {
	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO reservations (txid, vout, address, created_at) VALUES (?, ?, ?, ?)",
		reservation.Txid, reservation.VOut, reservation.Address, reservation.CreatedAt,
	)
	if err != nil {
		// The primary key on (txid, vout) is the at-most-one-claim guarantee.
		if strings.Contains(strings.ToLower(err.Error()), "unique") ||
			strings.Contains(strings.ToLower(err.Error()), "constraint") {
			return fmt.Errorf("output %s already reserved", reservation.Outpoint)
		}
		return fmt.Errorf("failed to reserve output: %w", err)
	}
	return nil
}

func (r *reservationRepository) Release(
	ctx context.Context, outpoint domain.Outpoint,
) error {
	if _, err := r.db.ExecContext(
		ctx,
		"DELETE FROM reservations WHERE txid = ? AND vout = ?",
		outpoint.Txid, outpoint.VOut,
	); err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}
	return nil
}

func (r *reservationRepository) GetByAddress(
	ctx context.Context, address string,
) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT txid, vout, created_at FROM reservations WHERE address = ?",
		address,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	// nolint:errcheck
	defer rows.Close()

	reservations := make([]domain.Reservation, 0)
	for rows.Next() {
		reservation := domain.Reservation{Address: address}
		if err := rows.Scan(
			&reservation.Txid, &reservation.VOut, &reservation.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}

// Close is a no-op: the sql handle is shared across repositories and owned
// by the db service.
func (r *reservationRepository) Close() {}
