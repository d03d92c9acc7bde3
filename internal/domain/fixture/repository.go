package fixture

import "context"

// Repository exposes fixture reference-data reads.
type Repository interface {
	GetByID(ctx context.Context, fixtureID int64) (Fixture, bool, error)
	ListUpcoming(ctx context.Context, leagueID int64) ([]Fixture, error)
}
