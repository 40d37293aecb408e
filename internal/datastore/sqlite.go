package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Database.SQLite.Path == "" {
		return errors.Newf("sqlite database path is empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Open sets up the SQLite database connection and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	path := store.Settings.Database.SQLite.Path
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("path", dir).
				Build()
		}
		warnLowDiskSpace(dir, lowDiskSpace)
	}

	// WAL lets the reporting commands read while an analysis run commits
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		GetLogger().Error("failed to open SQLite database",
			logger.String("path", path),
			logger.Error(err))
		return dbError(err, "open_sqlite")
	}

	// a single writer avoids SQLITE_BUSY between the commit loop and readers
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", path)
}

// Close closes the SQLite connection.
func (store *SQLiteStore) Close() error {
	return closeDB(store.DB, "sqlite")
}
