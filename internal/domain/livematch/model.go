package livematch

import "time"

// Event is one in-match occurrence (goal, card, substitution, VAR decision).
type Event struct {
	ExternalID  int64
	FixtureID   int64
	TeamID      int64
	PlayerID    *int64
	Type        string
	Minute      int
	ExtraMinute int
	Detail      string
}

// State is the persisted live view of one fixture.
type State struct {
	FixtureID       int64
	Status          string
	Minute          int
	HomeScore       int
	AwayScore       int
	Events          []Event
	SourceUpdatedAt *time.Time
	UpdatedAt       time.Time
}
