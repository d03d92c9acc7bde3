package sportmonks

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matchpulse/fixture-poller/internal/platform/logging"
	"github.com/matchpulse/fixture-poller/internal/platform/resilience"
	"github.com/matchpulse/fixture-poller/internal/usecase"
)

const fixturePayload = `{
	"data": {
		"id": 19001,
		"starting_at": "2026-03-14 18:30:00",
		"state_id": 2,
		"participants": [
			{"id": 10, "name": "FC Home", "meta": {"location": "home"}},
			{"id": 20, "name": "FC Away", "meta": {"location": "away"}}
		],
		"state": {"data": {"id": 2, "short_name": "1st", "developer_name": "INPLAY_1ST_HALF"}},
		"scores": [
			{"participant_id": 10, "description": "CURRENT", "score": {"goals": 1, "participant": "home"}},
			{"participant_id": 20, "description": "CURRENT", "score": {"goals": 0, "participant": "away"}}
		],
		"periods": [{"type_id": 1, "minutes": 37, "ticking": true}],
		"events": [
			{"id": 7001, "participant_id": 10, "type_id": 14, "player_id": 501, "minute": 23,
			 "type": {"data": {"id": 14, "name": "Goal", "developer_name": "GOAL"}}}
		],
		"formations": [
			{"participant_id": 10, "formation": "4-3-3", "location": "home"},
			{"participant_id": 20, "formation": "4-4-2", "location": "away"}
		],
		"lineups": [
			{"player_id": 501, "team_id": 10, "type_id": 11, "player_name": "A. Striker", "jersey_number": 9,
			 "position_id": 27, "position": {"data": {"id": 27, "name": "Attacker", "developer_name": "ATTACKER"}}},
			{"player_id": 0, "team_id": 20, "type_id": 11, "player_name": "Trialist Junior", "position_id": 26}
		]
	}
}`

func newTestClient(t *testing.T, handler http.Handler, mutate func(*ClientConfig)) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := ClientConfig{
		BaseURL:    srv.URL,
		Token:      "test-token-secret",
		Timeout:    2 * time.Second,
		MaxRetries: 0,
		Logger:     logging.NewNop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg), srv
}

func TestFetchFixtureSnapshot_DecodesProviderPayload(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fixtures/19001", r.URL.Path)
		require.Equal(t, "test-token-secret", r.URL.Query().Get("api_token"))
		require.NotEmpty(t, r.URL.Query().Get("include"))
		_, _ = w.Write([]byte(fixturePayload))
	}), nil)

	snap, err := client.FetchFixtureSnapshot(t.Context(), 19001)
	require.NoError(t, err)

	require.Equal(t, int64(19001), snap.FixtureID)
	require.Equal(t, "1H", snap.Status)
	require.Equal(t, 37, snap.Minute)
	require.Equal(t, int64(10), snap.HomeTeamID)
	require.Equal(t, int64(20), snap.AwayTeamID)
	require.Equal(t, 1, snap.HomeScore)
	require.Equal(t, 0, snap.AwayScore)

	require.Len(t, snap.Events, 1)
	require.Equal(t, "GOAL", snap.Events[0].Type)
	require.Equal(t, 23, snap.Events[0].Minute)

	require.Equal(t, "4-3-3", snap.HomeLineup.Formation)
	require.Len(t, snap.HomeLineup.Slots, 1)
	require.True(t, snap.HomeLineup.Slots[0].Resolved())
	require.Equal(t, "ATTACKER", snap.HomeLineup.Slots[0].Position)

	// The youth player has no provider id yet and must stay unresolved.
	require.Len(t, snap.AwayLineup.Slots, 1)
	require.False(t, snap.AwayLineup.Slots[0].Resolved())
	require.Equal(t, "Trialist Junior", snap.AwayLineup.Slots[0].DisplayName)
}

func TestFetchFixtureSnapshot_RateLimitSurfacesImmediately(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}), func(cfg *ClientConfig) {
		cfg.MaxRetries = 3
	})

	_, err := client.FetchFixtureSnapshot(t.Context(), 19001)
	require.ErrorIs(t, err, usecase.ErrRateLimited)
	// Quota rejections must not burn client-side retries.
	require.Equal(t, int32(1), calls.Load())
}

func TestFetchFixtureSnapshot_NotFound(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no result"}`))
	}), nil)

	_, err := client.FetchFixtureSnapshot(t.Context(), 19001)
	require.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestFetchFixtureSnapshot_EmptyEnvelopeIsNotFound(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": {}}`))
	}), nil)

	_, err := client.FetchFixtureSnapshot(t.Context(), 19001)
	require.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestFetchFixtureSnapshot_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(fixturePayload))
	}), func(cfg *ClientConfig) {
		cfg.MaxRetries = 2
	})

	snap, err := client.FetchFixtureSnapshot(t.Context(), 19001)
	require.NoError(t, err)
	require.Equal(t, int64(19001), snap.FixtureID)
	require.Equal(t, int32(3), calls.Load())
}

func TestFetchFixtureSnapshot_RejectsInvalidID(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected for an invalid id")
	}), nil)

	_, err := client.FetchFixtureSnapshot(t.Context(), 0)
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestFetchLeagueStandings_MapsDetailRows(t *testing.T) {
	t.Parallel()

	payload := `{
		"data": [
			{
				"participant_id": 10,
				"position": 1,
				"points": 54,
				"participant": {"data": {"id": 10, "name": "FC Home"}},
				"details": [
					{"type_id": 129, "value": 24, "type": {"data": {"developer_name": "OVERALL_MATCHES"}}},
					{"type_id": 130, "value": 17, "type": {"data": {"developer_name": "OVERALL_WINS"}}},
					{"type_id": 131, "value": 3, "type": {"data": {"developer_name": "OVERALL_DRAWS"}}},
					{"type_id": 132, "value": 4, "type": {"data": {"developer_name": "OVERALL_LOST"}}},
					{"type_id": 133, "value": 51, "type": {"data": {"developer_name": "OVERALL_GOALS_FOR"}}},
					{"type_id": 134, "value": 20, "type": {"data": {"developer_name": "OVERALL_GOALS_AGAINST"}}}
				],
				"form": [
					{"form": "W", "sort_order": 1},
					{"form": "D", "sort_order": 2}
				]
			}
		]
	}`

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/standings/live/leagues/271", r.URL.Path)
		_, _ = w.Write([]byte(payload))
	}), nil)

	standings, err := client.FetchLeagueStandings(t.Context(), 271, 2026)
	require.NoError(t, err)
	require.Len(t, standings, 1)

	row := standings[0]
	require.Equal(t, int64(271), row.LeagueID)
	require.Equal(t, 2026, row.Season)
	require.Equal(t, "FC Home", row.TeamName)
	require.Equal(t, 1, row.Position)
	require.Equal(t, 54, row.Points)
	require.Equal(t, 24, row.Played)
	require.Equal(t, 17, row.Won)
	require.Equal(t, 31, row.GoalDifference)
	require.Equal(t, "WD", row.Form)
}

func TestCircuitBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), func(cfg *ClientConfig) {
		cfg.CircuitBreaker = resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			ProbeBudget:      1,
		}
	})

	for i := 0; i < 2; i++ {
		_, err := client.FetchFixtureSnapshot(t.Context(), 19001)
		require.Error(t, err)
	}

	served := calls.Load()
	_, err := client.FetchFixtureSnapshot(t.Context(), 19001)
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
	require.Equal(t, served, calls.Load(), "an open breaker must not hit the provider")
}

func TestSanitizeSensitiveText_RedactsToken(t *testing.T) {
	t.Parallel()

	out := sanitizeSensitiveText(`Get "https://x/fixtures/1?api_token=abc123": timeout`, "abc123")
	require.NotContains(t, out, "abc123")
	require.Contains(t, out, "api_token=REDACTED")
}

func TestRedactAPIURL(t *testing.T) {
	t.Parallel()

	out := redactAPIURL("https://api.example.test/v3/fixtures/1?api_token=topsecret&include=scores")
	require.NotContains(t, out, "topsecret")
	require.Contains(t, out, "api_token=REDACTED")
	require.Contains(t, out, "include=scores")
}
