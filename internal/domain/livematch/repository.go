package livematch

import "context"

// Repository persists live match state keyed by fixture.
type Repository interface {
	GetByFixture(ctx context.Context, fixtureID int64) (State, bool, error)
	Upsert(ctx context.Context, state State) error
}
