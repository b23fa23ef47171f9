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

const reservationStoreDir = "reservations"

type reservationRepository struct {
	store *badgerhold.Store
}

func NewReservationRepository(config ...interface{}) (domain.ReservationRepository, error) {
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
		dir = filepath.Join(baseDir, reservationStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open reservation store: %s", err)
	}

	return &reservationRepository{store}, nil
}

func (r *reservationRepository) Get(
	ctx context.Context, outpoint domain.Outpoint,
) (*domain.Reservation, error) {
	var reservation domain.Reservation
	err := r.store.Get(outpoint.String(), &reservation)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &reservation, nil
}

// Reserve relies on badgerhold's insert semantics: a second insert for the
// same outpoint fails, which is the at-most-one-claim guarantee.
func (r *reservationRepository) Reserve(
	ctx context.Context, reservation domain.Reservation,
) error {
	insertFn := func() error {
		return r.store.Insert(reservation.Outpoint.String(), &reservation)
	}
	err := insertFn()
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("output %s already reserved", reservation.Outpoint)
	}
	if errors.Is(err, badger.ErrConflict) {
		attempts := 1
		for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
			time.Sleep(100 * time.Millisecond)
			err = insertFn()
			attempts++
		}
	}
	return err
}

func (r *reservationRepository) Release(
	ctx context.Context, outpoint domain.Outpoint,
) error {
	var reservation domain.Reservation
	if err := r.store.Delete(outpoint.String(), &reservation); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to release reservation: %w", err)
	}
	return nil
}

func (r *reservationRepository) GetByAddress(
	ctx context.Context, address string,
) ([]domain.Reservation, error) {
	reservations := make([]domain.Reservation, 0)
	query := badgerhold.Where("Address").Eq(address)
	if err := r.store.Find(&reservations, query); err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	return reservations, nil
}

func (r *reservationRepository) Close() {
	// nolint:all
	r.store.Close()
}
