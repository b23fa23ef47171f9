package domain

import "context"

// Submission is a transaction the host ledger has finalized and handed over
// for commit processing, together with the consensus context the core cannot
// derive on its own: which addresses witnessed the transaction and what the
// referenced prior outputs resolve to. Submissions are drained in arrival
// order by the commit loop.
type Submission struct {
	Tx         CandidateTx
	Witnesses  []string
	Prevouts   map[string]TxOutput // keyed by outpoint string
	ReceivedAt int64
}

type SubmissionRepository interface {
	// Push enqueues a submission. Pushing the same txid twice fails.
	Push(ctx context.Context, submission Submission) error
	// Next returns the oldest queued submission, nil when the queue is empty.
	Next(ctx context.Context) (*Submission, error)
	Delete(ctx context.Context, txid string) error
	Close()
}
