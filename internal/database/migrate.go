package database

import (
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, errors.Wrap(err, "reading schema version")
	}
	return version, nil
}

// isLegacyDB returns true if the documents table exists but no user_version
// was ever stamped.
func isLegacyDB(conn *sql.DB) (bool, error) {
	var count int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='documents'",
	).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "checking for legacy tables")
	}
	return count > 0, nil
}

// migrate brings the database schema up to the latest version.
// It uses PRAGMA user_version to track which migrations have been applied.
func migrate(conn *sql.DB, logger *zap.SugaredLogger) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	// Tables without a version stamp match migration 1.
	if current == 0 {
		legacy, err := isLegacyDB(conn)
		if err != nil {
			return err
		}
		if legacy {
			logger.Infow("Detected unversioned database, stamping as version 1")
			if _, err := conn.Exec("PRAGMA user_version = 1"); err != nil {
				return errors.Wrap(err, "stamping legacy version")
			}
			current = 1
		}
	}

	latest := latestVersion()
	if current >= latest {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		logger.Infow("Applying migration", "version", m.Version, "description", m.Description)

		tx, err := conn.Begin()
		if err != nil {
			return errors.Wrapf(err, "begin migration %d", m.Version)
		}

		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "migration %d (%s)", m.Version, m.Description)
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit migration %d", m.Version)
		}

		// modernc/sqlite rejects user_version changes inside a transaction.
		// The DDL is idempotent, so a crash here only re-runs the migration.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return errors.Wrapf(err, "setting version %d", m.Version)
		}
	}

	return nil
}
