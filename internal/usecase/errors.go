package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrRateLimited marks a provider call rejected for quota reasons. It is
	// never fatal: phase tasks absorb it into their natural poll cadence and
	// the standings queue schedules a precise delayed retry.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	ErrAlreadyTracked = errors.New("fixture already tracked")
)

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
