package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/drip-labs/dripd/internal/core/domain"
)

type submissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(config ...interface{}) (domain.SubmissionRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open submission repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &submissionRepository{db}, nil
}

func (r *submissionRepository) Push(
	ctx context.Context, submission domain.Submission,
) error {
	payload, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("failed to serialize submission: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		"INSERT INTO submissions (txid, payload, received_at) VALUES (?, ?, ?)",
		submission.Tx.Txid, payload, submission.ReceivedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") ||
			strings.Contains(strings.ToLower(err.Error()), "constraint") {
			return fmt.Errorf("submission %s already queued", submission.Tx.Txid)
		}
		return fmt.Errorf("failed to queue submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) Next(ctx context.Context) (*domain.Submission, error) {
	row := r.db.QueryRowContext(
		ctx,
		"SELECT payload FROM submissions ORDER BY received_at, txid LIMIT 1",
	)

	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read submission queue: %w", err)
	}

	var submission domain.Submission
	if err := json.Unmarshal(payload, &submission); err != nil {
		return nil, fmt.Errorf("failed to deserialize submission: %w", err)
	}
	return &submission, nil
}

func (r *submissionRepository) Delete(ctx context.Context, txid string) error {
	if _, err := r.db.ExecContext(
		ctx, "DELETE FROM submissions WHERE txid = ?", txid,
	); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}

// Close is a no-op: the sql handle is shared across repositories and owned
// by the db service.
func (r *submissionRepository) Close() {}
