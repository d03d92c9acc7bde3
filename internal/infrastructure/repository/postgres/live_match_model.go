package postgres

import (
	"database/sql"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpulse/fixture-poller/internal/domain/livematch"
)

type liveMatchTableModel struct {
	FixtureID       int64        `db:"fixture_id"`
	Status          string       `db:"status"`
	Minute          int          `db:"minute"`
	HomeScore       int          `db:"home_score"`
	AwayScore       int          `db:"away_score"`
	Events          []byte       `db:"events"`
	SourceUpdatedAt sql.NullTime `db:"source_updated_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

type liveMatchEventPayload struct {
	ExternalID  int64  `json:"external_id"`
	TeamID      int64  `json:"team_id"`
	PlayerID    *int64 `json:"player_id,omitempty"`
	Type        string `json:"type"`
	Minute      int    `json:"minute"`
	ExtraMinute int    `json:"extra_minute,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

func liveMatchEventsToJSON(fixtureID int64, events []livematch.Event) ([]byte, error) {
	payload := make([]liveMatchEventPayload, 0, len(events))
	for _, event := range events {
		payload = append(payload, liveMatchEventPayload{
			ExternalID:  event.ExternalID,
			TeamID:      event.TeamID,
			PlayerID:    event.PlayerID,
			Type:        event.Type,
			Minute:      event.Minute,
			ExtraMinute: event.ExtraMinute,
			Detail:      event.Detail,
		})
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode live events fixture=%d: %w", fixtureID, err)
	}
	return raw, nil
}

func liveMatchFromRow(row liveMatchTableModel) (livematch.State, error) {
	var payload []liveMatchEventPayload
	if len(row.Events) > 0 {
		if err := sonic.Unmarshal(row.Events, &payload); err != nil {
			return livematch.State{}, fmt.Errorf("decode live events fixture=%d: %w", row.FixtureID, err)
		}
	}

	events := make([]livematch.Event, 0, len(payload))
	for _, item := range payload {
		events = append(events, livematch.Event{
			ExternalID:  item.ExternalID,
			FixtureID:   row.FixtureID,
			TeamID:      item.TeamID,
			PlayerID:    item.PlayerID,
			Type:        item.Type,
			Minute:      item.Minute,
			ExtraMinute: item.ExtraMinute,
			Detail:      item.Detail,
		})
	}

	return livematch.State{
		FixtureID:       row.FixtureID,
		Status:          row.Status,
		Minute:          row.Minute,
		HomeScore:       row.HomeScore,
		AwayScore:       row.AwayScore,
		Events:          events,
		SourceUpdatedAt: nullTimeToTimePtr(row.SourceUpdatedAt),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}, nil
}
