package testutil

import (
	"database/sql"
	"testing"

	"snassist-backend/lib/telemetry"

	_ "modernc.org/sqlite"
)

// Setup wires the telemetry test environment for one service test,
// tearing it down with the test.
func Setup(t testing.TB, service string) {
	t.Cleanup(telemetry.SetupForTesting(t, service))
}

// OpenDB hands out an isolated in-memory sqlite database, applying the
// schema when one is given. The handle is closed with the test.
func OpenDB(t testing.TB, schema string) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil {
			t.Fatal(err)
		}
	}
	return db
}
