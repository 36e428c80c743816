package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutoMigrateCreatesSchema(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{
		"users", "teams", "team_memberships",
		"conversations", "conversation_participants",
		"messages", "notifications",
	} {
		require.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
