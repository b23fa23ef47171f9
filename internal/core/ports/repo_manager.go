package ports

import "github.com/drip-labs/dripd/internal/core/domain"

type RepoManager interface {
	Settings() domain.SettingsRepository
	RateLimits() domain.RateLimitRepository
	Reservations() domain.ReservationRepository
	Submissions() domain.SubmissionRepository
	Close()
}
