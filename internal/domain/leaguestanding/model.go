package leaguestanding

import "time"

// Standing is one league table row.
type Standing struct {
	LeagueID        int64
	Season          int
	TeamID          int64
	TeamName        string
	Position        int
	Played          int
	Won             int
	Draw            int
	Lost            int
	GoalsFor        int
	GoalsAgainst    int
	GoalDifference  int
	Points          int
	Form            string
	SourceUpdatedAt *time.Time
}
