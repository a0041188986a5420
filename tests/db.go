package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/storage/database"
)

// OpenSQLite opens a migrated sqlite database, removed when the test ends.
func OpenSQLite(t *testing.T) *sqlx.DB {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine: database.EngineSQLite,
		Name:   filepath.Join(t.TempDir(), "academia.db"),
	}}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}
