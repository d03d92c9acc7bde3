package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "status").
		From("fixtures").
		Where(Eq("league_id", int64(271)), IsNull("winner_team_id")).
		OrderBy("kickoff_at", "id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, status FROM fixtures WHERE league_id = $1 AND winner_team_id IS NULL ORDER BY kickoff_at, id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != int64(271) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_ExprCondition(t *testing.T) {
	query, args, err := Select("id").
		From("fixtures").
		Where(Eq("league_id", int64(271)), Expr("kickoff_at >= NOW() - INTERVAL '3 hours'")).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM fixtures WHERE league_id = $1 AND kickoff_at >= NOW() - INTERVAL '3 hours'"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_InCondition(t *testing.T) {
	query, args, err := Select("fixture_id").
		From("fixture_lineups").
		Where(In("side", []any{"home", "away"})).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT fixture_id FROM fixture_lineups WHERE side IN ($1, $2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("fixture_lineups").
		Columns("fixture_id", "side").
		Values(int64(19001), "home").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO fixture_lineups (fixture_id, side) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(19001) || args[1] != "home" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel(t *testing.T) {
	type row struct {
		FixtureID int64  `db:"fixture_id"`
		Side      string `db:"side"`
		Ignored   string
	}

	query, args, err := InsertModel("fixture_lineups", row{FixtureID: 19001, Side: "away"}, "")
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO fixture_lineups (fixture_id, side) VALUES ($1, $2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[1] != "away" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("live_matches").
		Set("status", "FT").
		SetExpr("updated_at", "NOW()").
		Where(Eq("fixture_id", int64(19001))).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE live_matches SET status = $1, updated_at = NOW() WHERE fixture_id = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "FT" || args[1] != int64(19001) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("fixture_lineups").
		Where(Eq("fixture_id", int64(19001))).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM fixture_lineups WHERE fixture_id = $1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder_RejectsUnboundedDelete(t *testing.T) {
	if _, _, err := DeleteFrom("fixture_lineups").ToSQL(); err == nil {
		t.Fatal("a delete without conditions must not build")
	}
}
