package migrations

import (
	"testing"
	"testing/fstest"
)

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_b.sql":     {Data: []byte("CREATE TABLE b ();")},
		"pg/001_a.sql":     {Data: []byte("CREATE TABLE a ();")},
		"pg/003_empty.sql": {Data: []byte("  \n")},
		"pg/README.md":     {Data: []byte("ignored")},
	}

	got, err := load(fsys, "pg")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != "001_a" || got[1].Version != "002_b" {
		t.Errorf("unexpected order: %s, %s", got[0].Version, got[1].Version)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("load postgres: %v", err)
	}
	if len(pg) == 0 {
		t.Error("no embedded postgres migrations")
	}

	ch, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		t.Fatalf("load clickhouse: %v", err)
	}
	for _, m := range ch {
		if err := validateNoSemicolonInStrings(m.SQL); err != nil {
			t.Errorf("%s: %v", m.Version, err)
		}
		if len(splitStatements(m.SQL)) == 0 {
			t.Errorf("%s: no statements", m.Version)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x Int64) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	got := splitStatements(input)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x Int64) ENGINE = Memory" {
		t.Errorf("unexpected first statement: %q", got[0])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	tests := []struct {
		sql     string
		wantErr bool
	}{
		{"SELECT 1;", false},
		{"SELECT 'a;b';", true},
		{"SELECT 'it''s';", false},
		{"SELECT 'it''s;';", true},
	}

	for _, tt := range tests {
		err := validateNoSemicolonInStrings(tt.sql)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateNoSemicolonInStrings(%q) error = %v, wantErr %v", tt.sql, err, tt.wantErr)
		}
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/prices")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != "prices" {
		t.Errorf("db = %q, want prices", db)
	}

	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for missing database")
	}
}
