package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
	badgerdb "github.com/drip-labs/dripd/internal/infrastructure/db/badger"
	sqlitedb "github.com/drip-labs/dripd/internal/infrastructure/db/sqlite"
	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/migration/*
var migrations embed.FS

var (
	settingsStoreTypes = map[string]func(...interface{}) (domain.SettingsRepository, error){
		"badger": badgerdb.NewSettingsRepository,
		"sqlite": sqlitedb.NewSettingsRepository,
	}
	rateLimitStoreTypes = map[string]func(...interface{}) (domain.RateLimitRepository, error){
		"badger": badgerdb.NewRateLimitRepository,
		"sqlite": sqlitedb.NewRateLimitRepository,
	}
	reservationStoreTypes = map[string]func(...interface{}) (domain.ReservationRepository, error){
		"badger": badgerdb.NewReservationRepository,
		"sqlite": sqlitedb.NewReservationRepository,
	}
	submissionStoreTypes = map[string]func(...interface{}) (domain.SubmissionRepository, error){
		"badger": badgerdb.NewSubmissionRepository,
		"sqlite": sqlitedb.NewSubmissionRepository,
	}
)

const sqliteDbFile = "sqlite.db"

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	settingsStore    domain.SettingsRepository
	rateLimitStore   domain.RateLimitRepository
	reservationStore domain.ReservationRepository
	submissionStore  domain.SubmissionRepository

	// non-nil only for sqlite, where all repositories share one handle
	db *sql.DB
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	settingsStoreFactory, ok := settingsStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("settings store type not supported")
	}
	rateLimitStoreFactory, ok := rateLimitStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("rate limit store type not supported")
	}
	reservationStoreFactory, ok := reservationStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("reservation store type not supported")
	}
	submissionStoreFactory, ok := submissionStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("submission store type not supported")
	}

	var svc service
	switch config.DataStoreType {
	case "badger":
		settingsStore, err := settingsStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open settings store: %s", err)
		}
		rateLimitStore, err := rateLimitStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open rate limit store: %s", err)
		}
		reservationStore, err := reservationStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open reservation store: %s", err)
		}
		submissionStore, err := submissionStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open submission store: %s", err)
		}
		svc = service{
			settingsStore:    settingsStore,
			rateLimitStore:   rateLimitStore,
			reservationStore: reservationStore,
			submissionStore:  submissionStore,
		}

	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			return nil, fmt.Errorf("invalid data store config")
		}

		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}

		dbFile := filepath.Join(baseDir, sqliteDbFile)
		db, err := sqlitedb.OpenDb(dbFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %s", err)
		}

		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}

		source, err := iofs.New(migrations, "sqlite/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "dripdb", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run migrations: %s", err)
		}

		settingsStore, err := settingsStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open settings store: %s", err)
		}
		rateLimitStore, err := rateLimitStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open rate limit store: %s", err)
		}
		reservationStore, err := reservationStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open reservation store: %s", err)
		}
		submissionStore, err := submissionStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open submission store: %s", err)
		}
		svc = service{
			settingsStore:    settingsStore,
			rateLimitStore:   rateLimitStore,
			reservationStore: reservationStore,
			submissionStore:  submissionStore,
			db:               db,
		}

	default:
		return nil, fmt.Errorf("unknown data store db type")
	}

	return &svc, nil
}

func (s *service) Settings() domain.SettingsRepository {
	return s.settingsStore
}

func (s *service) RateLimits() domain.RateLimitRepository {
	return s.rateLimitStore
}

func (s *service) Reservations() domain.ReservationRepository {
	return s.reservationStore
}

func (s *service) Submissions() domain.SubmissionRepository {
	return s.submissionStore
}

func (s *service) Close() {
	s.settingsStore.Close()
	s.rateLimitStore.Close()
	s.reservationStore.Close()
	s.submissionStore.Close()
	if s.db != nil {
		// Shared sqlite handle, closed exactly once here.
		// nolint:errcheck
		s.db.Close()
	}
}
