package library

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"net/http"

	migrate "github.com/ironsmile/sql-migrate"
)

// sqlMigrateDirectory is the directory within `sqlFilesFS` which contains
// the .sql files for sql-migrate.
const sqlMigrateDirectory = "migrations"

// applyMigrations reads the database migrations dir and applies them to the
// database if it is necessary. Must be called from within a database
// executable.
func applyMigrations(db *sql.DB) error {
	migrationFiles, err := fs.Sub(sqlFilesFS, sqlMigrateDirectory)
	if err != nil {
		return fmt.Errorf("locating migrate dir within sqlFiles fs.FS failed: %w", err)
	}

	migrations := &migrate.HttpFileSystemMigrationSource{
		FileSystem: http.FS(migrationFiles),
	}

	_, err = migrate.ExecMax(db, "sqlite3", migrations, migrate.Up, 0)
	if err == nil {
		return nil
	}

	if _, ok := err.(*migrate.PlanError); ok {
		log.Printf("Error applying database migrations: %s\n", err)
		return nil
	}

	return fmt.Errorf("executing db migration failed: %w", err)
}
