package application

import "errors"

var (
	// ErrRejected means verification refused the candidate transaction.
	// Nothing was mutated; the transaction simply cannot be committed.
	ErrRejected = errors.New("rejected by verification")
	// ErrAdminAuth means the administrative witness check failed.
	ErrAdminAuth = errors.New("admin witness verification failed")
	// ErrNotInitialized means a non-admin operation was attempted while the
	// contract phase is still pending.
	ErrNotInitialized = errors.New("contract not initialized")
	// ErrExternalTransfer means the token contract reported a failed
	// transfer. Reservations are kept and counters untouched so the claim
	// can be retried.
	ErrExternalTransfer = errors.New("external token transfer failed")
	// ErrAlreadyInitialized means initialize was called outside the pending
	// phase. Initialization is one-shot.
	ErrAlreadyInitialized = errors.New("contract already initialized")
	// ErrUnknownOperation means the dispatched operation name is not part of
	// the operation surface.
	ErrUnknownOperation = errors.New("unknown operation")
)
