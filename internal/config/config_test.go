package config

import (
	"testing"
	"time"
)

// setRequiredEnv fills the envs Load refuses to default so the
// individual tests only override what they exercise.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SPORTMONKS_TOKEN", "test-token")
	t.Setenv("LEAGUE_IDS", "271")
}

func TestLoad_AppEnvValidation(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "fixture-poller" {
		t.Fatalf("unexpected default service name: %q", cfg.ServiceName)
	}
	if cfg.PreKickoffLead != time.Hour {
		t.Fatalf("unexpected default pre-kickoff lead: %s", cfg.PreKickoffLead)
	}
	if cfg.PreKickoffInterval != time.Minute {
		t.Fatalf("unexpected default pre-kickoff interval: %s", cfg.PreKickoffInterval)
	}
	if cfg.PreKickoffWindow != 5*time.Hour {
		t.Fatalf("unexpected default pre-kickoff window: %s", cfg.PreKickoffWindow)
	}
	if cfg.LiveInterval != 17*time.Second {
		t.Fatalf("unexpected default live interval: %s", cfg.LiveInterval)
	}
	if cfg.PostMatchCutoff != 6*time.Hour {
		t.Fatalf("unexpected default post-match cutoff: %s", cfg.PostMatchCutoff)
	}
	if cfg.StandingsMaxTries != 3 {
		t.Fatalf("unexpected default standings max tries: %d", cfg.StandingsMaxTries)
	}
	if cfg.StandingsRetryOffsetSecond != 3 {
		t.Fatalf("unexpected default standings retry offset: %d", cfg.StandingsRetryOffsetSecond)
	}
	if cfg.LiveOnLineupComplete {
		t.Fatalf("expected LiveOnLineupComplete=false by default")
	}
	if !cfg.DBDisablePreparedBinary {
		t.Fatalf("expected DBDisablePreparedBinary=true by default")
	}
}

func TestLoad_LeagueIDsRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LEAGUE_IDS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when LEAGUE_IDS is empty")
	}
}

func TestLoad_LeagueIDsParsing(t *testing.T) {
	setRequiredEnv(t)

	t.Run("comma separated with spaces", func(t *testing.T) {
		t.Setenv("LEAGUE_IDS", " 271, 501 ,513 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.LeagueIDs) != 3 {
			t.Fatalf("unexpected league id count: %d", len(cfg.LeagueIDs))
		}
		if cfg.LeagueIDs[0] != 271 || cfg.LeagueIDs[1] != 501 || cfg.LeagueIDs[2] != 513 {
			t.Fatalf("unexpected league ids: %+v", cfg.LeagueIDs)
		}
	})

	t.Run("non-numeric entry", func(t *testing.T) {
		t.Setenv("LEAGUE_IDS", "271,premier-league")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for non-numeric LEAGUE_IDS entry")
		}
	})

	t.Run("non-positive id", func(t *testing.T) {
		t.Setenv("LEAGUE_IDS", "271,0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for zero league id")
		}
	})
}

func TestLoad_SportMonksTokenRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SPORTMONKS_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when SPORTMONKS_TOKEN is empty")
	}
}

func TestLoad_PollWindowCrossChecks(t *testing.T) {
	setRequiredEnv(t)

	t.Run("prekickoff interval must fit window", func(t *testing.T) {
		t.Setenv("POLL_PREKICKOFF_INTERVAL", "6h")
		t.Setenv("POLL_PREKICKOFF_WINDOW", "5h")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when pre-kickoff interval exceeds window")
		}
	})

	t.Run("prekickoff lead must fit window", func(t *testing.T) {
		t.Setenv("POLL_PREKICKOFF_LEAD", "6h")
		t.Setenv("POLL_PREKICKOFF_WINDOW", "5h")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when pre-kickoff lead exceeds window")
		}
	})

	t.Run("live interval must fit window", func(t *testing.T) {
		t.Setenv("POLL_LIVE_INTERVAL", "5h")
		t.Setenv("POLL_LIVE_WINDOW", "5h")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when live interval equals window")
		}
	})

	t.Run("postmatch cutoff must exceed window", func(t *testing.T) {
		t.Setenv("POLL_POSTMATCH_WINDOW", "1h")
		t.Setenv("POLL_POSTMATCH_CUTOFF", "30m")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when post-match cutoff is inside the sweep window")
		}
	})
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_SERVICE_NAME", "fixture-poller-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "fixture-poller-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_AlertWebhookRequiresURLWhenEnabled(t *testing.T) {
	setRequiredEnv(t)

	t.Run("enabled without url", func(t *testing.T) {
		t.Setenv("ALERT_WEBHOOK_ENABLED", "true")
		t.Setenv("ALERT_WEBHOOK_URL", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when ALERT_WEBHOOK_ENABLED=true without ALERT_WEBHOOK_URL")
		}
	})

	t.Run("enabled with url", func(t *testing.T) {
		t.Setenv("ALERT_WEBHOOK_ENABLED", "true")
		t.Setenv("ALERT_WEBHOOK_URL", "https://ops.example.com/hooks/lineups")
		t.Setenv("ALERT_WEBHOOK_TIMEOUT", "4s")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.AlertWebhookURL != "https://ops.example.com/hooks/lineups" {
			t.Fatalf("unexpected alert webhook url: %q", cfg.AlertWebhookURL)
		}
		if cfg.AlertWebhookTimeout != 4*time.Second {
			t.Fatalf("unexpected alert webhook timeout: %s", cfg.AlertWebhookTimeout)
		}
	})
}

func TestLoad_StandingsRetryOffsetBounds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STANDINGS_RETRY_OFFSET_SECOND", "75")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when STANDINGS_RETRY_OFFSET_SECOND exceeds 59")
	}
}

func TestLoad_InvalidDurationSurfacesEnvName(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_LIVE_INTERVAL", "seventeen")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid POLL_LIVE_INTERVAL")
	}
}

func TestLoad_DBDisablePreparedBinaryResultParsing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
	}
}
