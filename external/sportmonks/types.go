package sportmonks

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpulse/fixture-poller/internal/domain/leaguestanding"
	"github.com/matchpulse/fixture-poller/internal/domain/lineup"
	"github.com/matchpulse/fixture-poller/internal/domain/livematch"
	"github.com/matchpulse/fixture-poller/internal/usecase"
)

type fixtureEnvelope struct {
	Data fixtureDetails `json:"data"`
}

type fixtureDetails struct {
	ID           int64                `json:"id"`
	StartingAt   string               `json:"starting_at"`
	StateID      int64                `json:"state_id"`
	ResultInfo   string               `json:"result_info"`
	Participants []fixtureParticipant `json:"participants"`
	State        relation[stateRef]   `json:"state"`
	Scores       []fixtureScoreItem   `json:"scores"`
	Periods      []fixturePeriodItem  `json:"periods"`
	Events       []fixtureEventItem   `json:"events"`
	Lineups      []fixtureLineupItem  `json:"lineups"`
	Formations   []fixtureFormation   `json:"formations"`
}

type fixtureParticipant struct {
	ID   int64                  `json:"id"`
	Name string                 `json:"name"`
	Meta fixtureParticipantMeta `json:"meta"`
}

type fixtureParticipantMeta struct {
	Location string `json:"location"`
}

type stateRef struct {
	ID            int64  `json:"id"`
	ShortName     string `json:"short_name"`
	DeveloperName string `json:"developer_name"`
}

type fixtureScoreItem struct {
	ParticipantID int64  `json:"participant_id"`
	Description   string `json:"description"`
	Score         struct {
		Goals       *int   `json:"goals"`
		Participant string `json:"participant"`
	} `json:"score"`
}

type fixturePeriodItem struct {
	TypeID  int64 `json:"type_id"`
	Minutes int   `json:"minutes"`
	Ticking bool  `json:"ticking"`
}

type fixtureEventItem struct {
	ID            int64                 `json:"id"`
	ParticipantID int64                 `json:"participant_id"`
	TypeID        int64                 `json:"type_id"`
	PlayerID      int64                 `json:"player_id"`
	Info          string                `json:"info"`
	Addition      string                `json:"addition"`
	Minute        *int                  `json:"minute"`
	ExtraMinute   *int                  `json:"extra_minute"`
	Type          relation[typeRef]     `json:"type"`
}

type typeRef struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DeveloperName string `json:"developer_name"`
}

const (
	lineupTypeStarter    = 11
	lineupTypeSubstitute = 12
)

type fixtureLineupItem struct {
	PlayerID     int64             `json:"player_id"`
	TeamID       int64             `json:"team_id"`
	TypeID       int64             `json:"type_id"`
	PlayerName   string            `json:"player_name"`
	JerseyNumber *int              `json:"jersey_number"`
	PositionID   int64             `json:"position_id"`
	Position     relation[typeRef] `json:"position"`
}

type fixtureFormation struct {
	ParticipantID int64  `json:"participant_id"`
	Formation     string `json:"formation"`
	Location      string `json:"location"`
}

type standingsEnvelope struct {
	Data []standingItem `json:"data"`
}

type standingItem struct {
	ParticipantID int64                   `json:"participant_id"`
	Position      int                     `json:"position"`
	Points        int                     `json:"points"`
	Participant   relation[teamRef]       `json:"participant"`
	Details       []standingDetailItem    `json:"details"`
	Form          []standingFormItem      `json:"form"`
	UpdatedAt     string                  `json:"updated_at"`
}

type teamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type standingDetailItem struct {
	TypeID int64             `json:"type_id"`
	Value  int               `json:"value"`
	Type   relation[typeRef] `json:"type"`
}

type standingFormItem struct {
	Form      string `json:"form"`
	SortOrder int    `json:"sort_order"`
}

// relation tolerates both wrapped ({"data": {...}}) and flattened include
// shapes the provider emits depending on serializer settings.
type relation[T any] struct {
	Data T
	Set  bool
}

func (r *relation[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		r.Set = false
		return nil
	}

	var wrapped struct {
		Data *T `json:"data"`
	}
	if err := sonic.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Data != nil {
		r.Data = *wrapped.Data
		r.Set = true
		return nil
	}

	var direct T
	if err := sonic.Unmarshal(trimmed, &direct); err != nil {
		return err
	}
	r.Data = direct
	r.Set = true
	return nil
}

func mapFixtureSnapshot(item fixtureDetails, fetchedAt time.Time) usecase.FixtureSnapshot {
	homeID, awayID := resolveParticipants(item.Participants)
	homeScore, awayScore := resolveScores(item.Scores, homeID, awayID)

	snap := usecase.FixtureSnapshot{
		FixtureID:       item.ID,
		Status:          mapFixtureStatus(item),
		Minute:          resolveMinute(item.Periods),
		HomeTeamID:      homeID,
		AwayTeamID:      awayID,
		HomeScore:       homeScore,
		AwayScore:       awayScore,
		Events:          mapEvents(item.ID, item.Events),
		SourceUpdatedAt: parseProviderDateTime(item.StartingAt),
	}
	snap.HomeLineup = mapLineup(item, homeID, lineup.SideHome, fetchedAt)
	snap.AwayLineup = mapLineup(item, awayID, lineup.SideAway, fetchedAt)
	return snap
}

func resolveParticipants(participants []fixtureParticipant) (int64, int64) {
	var homeID, awayID int64
	for _, item := range participants {
		switch strings.ToLower(strings.TrimSpace(item.Meta.Location)) {
		case "home":
			homeID = item.ID
		case "away":
			awayID = item.ID
		}
	}
	return homeID, awayID
}

// scoreDescriptionWeight prefers the most final score row when the provider
// reports several per participant.
func scoreDescriptionWeight(raw string) int {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENALTY_SHOOTOUT":
		return 4
	case "ET", "AET", "EXTRA_TIME":
		return 3
	case "CURRENT", "FT", "FULLTIME", "2ND_HALF":
		return 2
	default:
		return 1
	}
}

func resolveScores(scores []fixtureScoreItem, homeID, awayID int64) (int, int) {
	bestWeight := 0
	var home, away int
	for _, score := range scores {
		if score.Score.Goals == nil {
			continue
		}
		weight := scoreDescriptionWeight(score.Description)
		if weight < bestWeight {
			continue
		}
		bestWeight = weight
		switch {
		case score.ParticipantID == homeID && homeID > 0:
			home = *score.Score.Goals
		case score.ParticipantID == awayID && awayID > 0:
			away = *score.Score.Goals
		}
	}
	return home, away
}

func resolveMinute(periods []fixturePeriodItem) int {
	minute := 0
	for _, period := range periods {
		if period.Ticking {
			return period.Minutes
		}
		if period.Minutes > minute {
			minute = period.Minutes
		}
	}
	return minute
}

var stateByDeveloperName = map[string]string{
	"NS":                "NS",
	"INPLAY_1ST_HALF":   "1H",
	"HT":                "HT",
	"INPLAY_2ND_HALF":   "2H",
	"BREAK":             "BREAK",
	"INPLAY_ET":         "ET",
	"INPLAY_PENALTIES":  "PEN_LIVE",
	"FT":                "FT",
	"AET":               "AET",
	"FT_PEN":            "FT_PEN",
	"POSTPONED":         "POSTP",
	"CANCELLED":         "CANCL",
	"ABANDONED":         "ABAN",
	"SUSPENDED":         "SUSP",
	"WALKOVER":          "WO",
	"TBA":               "NS",
	"DELAYED":           "NS",
}

var stateByID = map[int64]string{
	1:  "NS",
	2:  "1H",
	3:  "HT",
	4:  "2H",
	5:  "FT",
	6:  "ET",
	7:  "AET",
	8:  "FT_PEN",
	9:  "BREAK",
	10: "POSTP",
	11: "SUSP",
	12: "CANCL",
	13: "NS",
	14: "ABAN",
	15: "WO",
}

func mapFixtureStatus(item fixtureDetails) string {
	if item.State.Set {
		if status, ok := stateByDeveloperName[strings.ToUpper(strings.TrimSpace(item.State.Data.DeveloperName))]; ok {
			return status
		}
		if short := strings.ToUpper(strings.TrimSpace(item.State.Data.ShortName)); short != "" {
			return short
		}
	}
	if status, ok := stateByID[item.StateID]; ok {
		return status
	}

	info := strings.ToLower(strings.TrimSpace(item.ResultInfo))
	switch {
	case strings.Contains(info, "postpon"):
		return "POSTP"
	case strings.Contains(info, "abandon"):
		return "ABAN"
	case strings.Contains(info, "cancel"):
		return "CANCL"
	case strings.Contains(info, "full time"), strings.Contains(info, "finish"):
		return "FT"
	default:
		return "NS"
	}
}

func mapEvents(fixtureID int64, items []fixtureEventItem) []livematch.Event {
	if len(items) == 0 {
		return nil
	}
	out := make([]livematch.Event, 0, len(items))
	for _, item := range items {
		event := livematch.Event{
			ExternalID: item.ID,
			FixtureID:  fixtureID,
			TeamID:     item.ParticipantID,
			Type:       eventTypeName(item),
			Detail:     strings.TrimSpace(strings.Join(nonEmpty(item.Info, item.Addition), "; ")),
		}
		if item.PlayerID > 0 {
			playerID := item.PlayerID
			event.PlayerID = &playerID
		}
		if item.Minute != nil {
			event.Minute = *item.Minute
		}
		if item.ExtraMinute != nil {
			event.ExtraMinute = *item.ExtraMinute
		}
		out = append(out, event)
	}
	return out
}

func eventTypeName(item fixtureEventItem) string {
	if item.Type.Set {
		if name := strings.TrimSpace(item.Type.Data.DeveloperName); name != "" {
			return name
		}
		if name := strings.TrimSpace(item.Type.Data.Name); name != "" {
			return name
		}
	}
	if item.TypeID > 0 {
		return fmt.Sprintf("type-%d", item.TypeID)
	}
	return ""
}

func mapLineup(item fixtureDetails, teamID int64, side string, fetchedAt time.Time) lineup.Snapshot {
	snap := lineup.Snapshot{
		FixtureID: item.ID,
		TeamID:    teamID,
		Side:      side,
		FetchedAt: fetchedAt,
	}
	if teamID <= 0 {
		return snap
	}

	for _, formation := range item.Formations {
		if formation.ParticipantID == teamID || strings.EqualFold(strings.TrimSpace(formation.Location), side) {
			if formation.ParticipantID == teamID {
				snap.Formation = strings.TrimSpace(formation.Formation)
				break
			}
			if snap.Formation == "" {
				snap.Formation = strings.TrimSpace(formation.Formation)
			}
		}
	}

	for _, row := range item.Lineups {
		if row.TeamID != teamID {
			continue
		}
		slot := lineup.Slot{
			DisplayName:  strings.TrimSpace(row.PlayerName),
			Number:       row.JerseyNumber,
			Position:     positionName(row),
			IsSubstitute: row.TypeID == lineupTypeSubstitute,
		}
		if row.PlayerID > 0 {
			playerID := row.PlayerID
			slot.PlayerID = &playerID
		}
		snap.Slots = append(snap.Slots, slot)
	}
	return snap
}

func positionName(row fixtureLineupItem) string {
	if row.Position.Set {
		if name := strings.TrimSpace(row.Position.Data.DeveloperName); name != "" {
			return name
		}
		if name := strings.TrimSpace(row.Position.Data.Name); name != "" {
			return name
		}
	}
	switch row.PositionID {
	case 24:
		return "GOALKEEPER"
	case 25:
		return "DEFENDER"
	case 26:
		return "MIDFIELDER"
	case 27:
		return "ATTACKER"
	default:
		return ""
	}
}

var standingMetricByName = map[string]string{
	"OVERALL_MATCHES":       "played",
	"OVERALL_WINS":          "won",
	"OVERALL_DRAWS":         "draw",
	"OVERALL_LOST":          "lost",
	"OVERALL_GOALS_FOR":     "goals_for",
	"OVERALL_SCORED":        "goals_for",
	"OVERALL_GOALS_AGAINST": "goals_against",
	"OVERALL_CONCEDED":      "goals_against",
	"OVERALL_POINTS":        "points",
}

func mapStandings(leagueID int64, season int, items []standingItem) []leaguestanding.Standing {
	out := make([]leaguestanding.Standing, 0, len(items))
	for _, item := range items {
		teamID := item.ParticipantID
		if teamID <= 0 && item.Participant.Set {
			teamID = item.Participant.Data.ID
		}
		if teamID <= 0 || item.Position <= 0 {
			continue
		}

		row := leaguestanding.Standing{
			LeagueID:        leagueID,
			Season:          season,
			TeamID:          teamID,
			Position:        item.Position,
			Points:          item.Points,
			Form:            buildForm(item.Form),
			SourceUpdatedAt: parseProviderDateTime(item.UpdatedAt),
		}
		if item.Participant.Set {
			row.TeamName = strings.TrimSpace(item.Participant.Data.Name)
		}

		for _, detail := range item.Details {
			metric, ok := standingMetricByName[standingDetailName(detail)]
			if !ok {
				continue
			}
			switch metric {
			case "played":
				row.Played = detail.Value
			case "won":
				row.Won = detail.Value
			case "draw":
				row.Draw = detail.Value
			case "lost":
				row.Lost = detail.Value
			case "goals_for":
				row.GoalsFor = detail.Value
			case "goals_against":
				row.GoalsAgainst = detail.Value
			case "points":
				if row.Points == 0 {
					row.Points = detail.Value
				}
			}
		}

		if row.Played == 0 {
			row.Played = row.Won + row.Draw + row.Lost
		}
		row.GoalDifference = row.GoalsFor - row.GoalsAgainst
		out = append(out, row)
	}
	return out
}

func standingDetailName(detail standingDetailItem) string {
	if detail.Type.Set {
		return strings.ToUpper(strings.TrimSpace(detail.Type.Data.DeveloperName))
	}
	return ""
}

func buildForm(items []standingFormItem) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, item := range items {
		if form := strings.ToUpper(strings.TrimSpace(item.Form)); form != "" {
			sb.WriteString(form)
		}
	}
	return sb.String()
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseProviderDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	layouts := []string{
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}
