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

const submissionStoreDir = "submissions"

type submissionRepository struct {
	store *badgerhold.Store
}

func NewSubmissionRepository(config ...interface{}) (domain.SubmissionRepository, error) {
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
		dir = filepath.Join(baseDir, submissionStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open submission store: %s", err)
	}

	return &submissionRepository{store}, nil
}

func (r *submissionRepository) Push(
	ctx context.Context, submission domain.Submission,
) error {
	insertFn := func() error {
		return r.store.Insert(submission.Tx.Txid, &submission)
	}
	err := insertFn()
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("submission %s already queued", submission.Tx.Txid)
	}
	if errors.Is(err, badger.ErrConflict) {
		attempts := 1
		for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
			time.Sleep(100 * time.Millisecond)
			err = insertFn()
			attempts++
		}
	}
	if err != nil {
		return fmt.Errorf("failed to queue submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) Next(ctx context.Context) (*domain.Submission, error) {
	var submissions []domain.Submission
	query := (&badgerhold.Query{}).SortBy("ReceivedAt").Limit(1)
	if err := r.store.Find(&submissions, query); err != nil {
		return nil, fmt.Errorf("failed to read submission queue: %w", err)
	}
	if len(submissions) == 0 {
		return nil, nil
	}
	return &submissions[0], nil
}

func (r *submissionRepository) Delete(ctx context.Context, txid string) error {
	err := r.store.Delete(txid, &domain.Submission{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	if errors.Is(err, badger.ErrConflict) {
		attempts := 1
		for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
			time.Sleep(100 * time.Millisecond)
			err = r.store.Delete(txid, &domain.Submission{})
			attempts++
		}
	}
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) Close() {
	// nolint:errcheck
	r.store.Close()
}
