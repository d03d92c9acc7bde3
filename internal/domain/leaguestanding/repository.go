package leaguestanding

import "context"

type Repository interface {
	ListByLeague(ctx context.Context, leagueID int64, season int) ([]Standing, error)
	ReplaceByLeague(ctx context.Context, leagueID int64, season int, standings []Standing) error
}
