package postgres

import (
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpulse/fixture-poller/internal/domain/lineup"
)

type lineupTableModel struct {
	ID        int64     `db:"id"`
	FixtureID int64     `db:"fixture_id"`
	TeamID    int64     `db:"team_id"`
	Side      string    `db:"side"`
	Formation string    `db:"formation"`
	Slots     []byte    `db:"slots"`
	FetchedAt time.Time `db:"fetched_at"`
	CreatedAt time.Time `db:"created_at"`
}

type lineupInsertModel struct {
	FixtureID int64     `db:"fixture_id"`
	TeamID    int64     `db:"team_id"`
	Side      string    `db:"side"`
	Formation string    `db:"formation"`
	Slots     []byte    `db:"slots"`
	FetchedAt time.Time `db:"fetched_at"`
}

type lineupSlotPayload struct {
	PlayerID     *int64 `json:"player_id,omitempty"`
	DisplayName  string `json:"display_name"`
	Number       *int   `json:"number,omitempty"`
	Position     string `json:"position,omitempty"`
	IsSubstitute bool   `json:"is_substitute"`
}

func lineupToInsertRow(snapshot lineup.Snapshot) (lineupInsertModel, error) {
	payload := make([]lineupSlotPayload, 0, len(snapshot.Slots))
	for _, slot := range snapshot.Slots {
		payload = append(payload, lineupSlotPayload{
			PlayerID:     slot.PlayerID,
			DisplayName:  slot.DisplayName,
			Number:       slot.Number,
			Position:     slot.Position,
			IsSubstitute: slot.IsSubstitute,
		})
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return lineupInsertModel{}, fmt.Errorf("encode lineup slots: %w", err)
	}

	return lineupInsertModel{
		FixtureID: snapshot.FixtureID,
		TeamID:    snapshot.TeamID,
		Side:      snapshot.Side,
		Formation: snapshot.Formation,
		Slots:     raw,
		FetchedAt: snapshot.FetchedAt.UTC(),
	}, nil
}

func lineupFromRow(row lineupTableModel) (lineup.Snapshot, error) {
	var payload []lineupSlotPayload
	if len(row.Slots) > 0 {
		if err := sonic.Unmarshal(row.Slots, &payload); err != nil {
			return lineup.Snapshot{}, fmt.Errorf("decode lineup slots fixture=%d side=%s: %w", row.FixtureID, row.Side, err)
		}
	}

	slots := make([]lineup.Slot, 0, len(payload))
	for _, item := range payload {
		slots = append(slots, lineup.Slot{
			PlayerID:     item.PlayerID,
			DisplayName:  item.DisplayName,
			Number:       item.Number,
			Position:     item.Position,
			IsSubstitute: item.IsSubstitute,
		})
	}

	return lineup.Snapshot{
		FixtureID: row.FixtureID,
		TeamID:    row.TeamID,
		Side:      row.Side,
		Formation: row.Formation,
		Slots:     slots,
		FetchedAt: row.FetchedAt.UTC(),
	}, nil
}
