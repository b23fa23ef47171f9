package domain

import "context"

// Reservation is an exclusive claim on a prior transaction output, created
// when a Mark commits and deleted when the matching Withdraw or Transfer
// consumes it. At most one reservation can exist per outpoint, and only the
// reserving address may consume it.
type Reservation struct {
	Outpoint
	Address   string
	CreatedAt int64 // unix seconds
}

type ReservationRepository interface {
	// Get returns nil when the outpoint is free.
	Get(ctx context.Context, outpoint Outpoint) (*Reservation, error)
	// Reserve inserts the mapping. It fails if the outpoint is already
	// reserved, which is what closes the double-claim race at commit time.
	Reserve(ctx context.Context, reservation Reservation) error
	Release(ctx context.Context, outpoint Outpoint) error
	GetByAddress(ctx context.Context, address string) ([]Reservation, error)
	Close()
}
