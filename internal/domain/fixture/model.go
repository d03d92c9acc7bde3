package fixture

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "NS"
	StatusFullTime  = "FT"
	StatusAbandoned = "ABAN"
	StatusPostponed = "POSTP"
	StatusCancelled = "CANCL"
)

// Fixture is the reference row for one scheduled match. The poller only needs
// identity and kickoff time up front; scores and status are refreshed from the
// provider while the fixture is tracked.
type Fixture struct {
	ID           int64
	LeagueID     int64
	Season       int
	HomeTeamID   int64
	AwayTeamID   int64
	HomeTeam     string
	AwayTeam     string
	KickoffAt    time.Time
	Status       string
	HomeScore    *int
	AwayScore    *int
	WinnerTeamID int64
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case "LIVE", "INPLAY", "1H", "2H", "HT", "ET", "BREAK", "PEN_LIVE":
		return true
	default:
		return false
	}
}

// IsFinishedStatus reports whether the short-status is terminal for live
// polling purposes.
func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFullTime, "AET", "FT_PEN":
		return true
	default:
		return false
	}
}

func IsCancelledLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusAbandoned, StatusPostponed, StatusCancelled, "SUSP", "WO":
		return true
	default:
		return false
	}
}
