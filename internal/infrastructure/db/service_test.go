package db_test

import (
	"context"
	"strings"
	"testing"

	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
	"github.com/drip-labs/dripd/internal/infrastructure/db"
	"github.com/stretchr/testify/require"
)

var (
	testAsset   = strings.Repeat("11", 32)
	testAddress = strings.Repeat("cc", 20)
	otherAsset  = strings.Repeat("22", 20)
)

func TestService(t *testing.T) {
	dbDir := t.TempDir()
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "badger",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{"", nil},
			},
		},
		{
			name: "sqlite",
			config: db.ServiceConfig{
				DataStoreType:   "sqlite",
				DataStoreConfig: []interface{}{dbDir},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			require.NotNil(t, svc)
			defer svc.Close()

			testSettingsRepository(t, svc)
			testRateLimitRepository(t, svc)
			testReservationRepository(t, svc)
			testSubmissionRepository(t, svc)
		})
	}
}

func TestServiceUnsupportedType(t *testing.T) {
	_, err := db.NewService(db.ServiceConfig{DataStoreType: "postgres"})
	require.Error(t, err)
}

func testSettingsRepository(t *testing.T, svc ports.RepoManager) {
	ctx := context.Background()
	repo := svc.Settings()

	t.Run("settings", func(t *testing.T) {
		settings, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Nil(t, settings)

		require.NoError(t, repo.Upsert(ctx, domain.Settings{
			Phase:        domain.PhaseActive,
			WindowLength: domain.DefaultWindowLength,
			WindowStart:  1000,
		}))

		settings, err = repo.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, settings)
		require.Equal(t, domain.PhaseActive, settings.Phase)
		require.Equal(t, int64(1000), settings.WindowStart)

		// Upsert overwrites the single row.
		require.NoError(t, repo.Upsert(ctx, domain.Settings{
			Phase:        domain.PhaseInactive,
			WindowLength: domain.DefaultWindowLength,
			WindowStart:  1000,
		}))
		settings, err = repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.PhaseInactive, settings.Phase)
	})

	t.Run("caps", func(t *testing.T) {
		caps, err := repo.GetCaps(ctx, testAsset)
		require.NoError(t, err)
		require.Nil(t, caps)

		require.NoError(t, repo.UpsertCaps(ctx, domain.CapConfig{
			AssetID: testAsset, IndividualCap: 100, GlobalCap: 1000,
		}))
		require.NoError(t, repo.UpsertCaps(ctx, domain.CapConfig{
			AssetID: otherAsset, IndividualCap: 500, GlobalCap: 5000,
		}))

		caps, err = repo.GetCaps(ctx, testAsset)
		require.NoError(t, err)
		require.NotNil(t, caps)
		require.Equal(t, uint64(100), caps.IndividualCap)
		require.Equal(t, uint64(1000), caps.GlobalCap)

		require.NoError(t, repo.UpsertCaps(ctx, domain.CapConfig{
			AssetID: testAsset, IndividualCap: 50, GlobalCap: 1000,
		}))
		caps, err = repo.GetCaps(ctx, testAsset)
		require.NoError(t, err)
		require.Equal(t, uint64(50), caps.IndividualCap)

		caps, err = repo.GetCaps(ctx, otherAsset)
		require.NoError(t, err)
		require.Equal(t, uint64(500), caps.IndividualCap)
	})
}

func testRateLimitRepository(t *testing.T, svc ports.RepoManager) {
	ctx := context.Background()
	repo := svc.RateLimits()

	t.Run("rate limits", func(t *testing.T) {
		last, err := repo.GetLastClaimTime(ctx, testAddress, testAsset)
		require.NoError(t, err)
		require.Zero(t, last)

		total, err := repo.GetTotalClaimed(ctx, testAsset)
		require.NoError(t, err)
		require.Zero(t, total)

		require.NoError(t, repo.RecordClaim(ctx, testAddress, testAsset, 100, 1000))
		require.NoError(t, repo.RecordClaim(ctx, testAddress, testAsset, 100, 5000))

		last, err = repo.GetLastClaimTime(ctx, testAddress, testAsset)
		require.NoError(t, err)
		require.Equal(t, int64(5000), last)

		total, err = repo.GetTotalClaimed(ctx, testAsset)
		require.NoError(t, err)
		require.Equal(t, uint64(200), total)

		// Tallies are per asset.
		total, err = repo.GetTotalClaimed(ctx, otherAsset)
		require.NoError(t, err)
		require.Zero(t, total)
	})
}

func testReservationRepository(t *testing.T, svc ports.RepoManager) {
	ctx := context.Background()
	repo := svc.Reservations()

	outpoint := domain.Outpoint{Txid: strings.Repeat("ee", 32), VOut: 0}

	t.Run("reservations", func(t *testing.T) {
		reservation, err := repo.Get(ctx, outpoint)
		require.NoError(t, err)
		require.Nil(t, reservation)

		require.NoError(t, repo.Reserve(ctx, domain.Reservation{
			Outpoint: outpoint, Address: testAddress, CreatedAt: 1000,
		}))

		reservation, err = repo.Get(ctx, outpoint)
		require.NoError(t, err)
		require.NotNil(t, reservation)
		require.Equal(t, testAddress, reservation.Address)

		// At most one claim per output.
		err = repo.Reserve(ctx, domain.Reservation{
			Outpoint: outpoint, Address: strings.Repeat("dd", 20),
		})
		require.Error(t, err)

		byAddress, err := repo.GetByAddress(ctx, testAddress)
		require.NoError(t, err)
		require.Len(t, byAddress, 1)
		require.Equal(t, outpoint, byAddress[0].Outpoint)

		require.NoError(t, repo.Release(ctx, outpoint))

		reservation, err = repo.Get(ctx, outpoint)
		require.NoError(t, err)
		require.Nil(t, reservation)

		// Releasing a free output is a no-op.
		require.NoError(t, repo.Release(ctx, outpoint))
	})
}

func testSubmissionRepository(t *testing.T, svc ports.RepoManager) {
	ctx := context.Background()
	repo := svc.Submissions()

	older := domain.Submission{
		Tx: domain.CandidateTx{
			Txid: strings.Repeat("aa", 32),
			Inputs: []domain.Outpoint{
				{Txid: strings.Repeat("bb", 32), VOut: 1},
			},
		},
		Witnesses: []string{testAddress},
		Prevouts: map[string]domain.TxOutput{
			strings.Repeat("bb", 32) + ":1": {
				AssetID: testAsset, Amount: 100, Recipient: testAddress,
			},
		},
		ReceivedAt: 1000,
	}
	newer := domain.Submission{
		Tx:         domain.CandidateTx{Txid: strings.Repeat("cc", 32)},
		ReceivedAt: 2000,
	}

	t.Run("submissions", func(t *testing.T) {
		next, err := repo.Next(ctx)
		require.NoError(t, err)
		require.Nil(t, next)

		require.NoError(t, repo.Push(ctx, newer))
		require.NoError(t, repo.Push(ctx, older))

		// Queueing the same txid twice fails.
		require.Error(t, repo.Push(ctx, older))

		// FIFO by arrival time, with the consensus context intact.
		next, err = repo.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, next)
		require.Equal(t, older.Tx.Txid, next.Tx.Txid)
		require.Equal(t, older.Witnesses, next.Witnesses)
		require.Equal(t, older.Prevouts, next.Prevouts)

		require.NoError(t, repo.Delete(ctx, older.Tx.Txid))

		next, err = repo.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, next)
		require.Equal(t, newer.Tx.Txid, next.Tx.Txid)

		require.NoError(t, repo.Delete(ctx, newer.Tx.Txid))

		// Deleting an unknown txid is a no-op.
		require.NoError(t, repo.Delete(ctx, newer.Tx.Txid))
	})
}
