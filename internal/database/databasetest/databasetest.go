// Package databasetest gives integration tests a migrated Postgres database.
// Tests skip unless TALLY_TEST_DATABASE_URL points at a disposable database.
package databasetest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/database"
)

const EnvURL = "TALLY_TEST_DATABASE_URL"

func Open(t testing.TB) *sql.DB {
	t.Helper()

	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skipf("%s not set", EnvURL)
	}

	db, err := database.New(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))

	return db
}

// Wallet inserts a wallet with a unique name and a zero balance.
func Wallet(t testing.TB, db *sql.DB) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := db.QueryRow(
		`INSERT INTO wallets (name, initial_balance) VALUES ($1, 0) RETURNING id`, "test-"+uuid.NewString(),
	).Scan(&id)
	require.NoError(t, err)

	return id
}

// Category inserts a category of type typ and returns its id.
func Category(t testing.TB, db *sql.DB, name, typ string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := db.QueryRow(`INSERT INTO categories (name, type) VALUES ($1, $2) RETURNING id`, name, typ).Scan(&id)
	require.NoError(t, err)

	return id
}
