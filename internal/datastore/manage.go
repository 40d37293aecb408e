package datastore

import (
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is
// logged as slow. Full analysis commits insert a few thousand detail rows, so
// anything past a second is worth a look.
const DefaultSlowQueryThreshold = 1 * time.Second

// createGormLogger routes GORM output through the datastore module logger.
func createGormLogger() gormlogger.Interface {
	return logger.NewGormLoggerAdapter(GetLogger(), DefaultSlowQueryThreshold)
}

// models lists every table managed by AutoMigrate.
func models() []any {
	return []any{
		&Track{},
		&Analysis{},
		&ChordEvent{},
		&Segment{},
		&TensionPoint{},
		&Transition{},
	}
}

// performAutoMigration creates or extends the schema.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	log := GetLogger()
	start := time.Now()

	if err := db.AutoMigrate(models()...); err != nil {
		log.Error("automigration failed",
			logger.String("db_type", dbType),
			logger.Error(err))
		return dbError(err, "auto_migrate")
	}

	if debug {
		log.Debug("automigration completed",
			logger.String("db_type", dbType),
			logger.String("connection", connectionInfo),
			logger.Duration("duration", time.Since(start)))
	}
	return nil
}

// closeDB closes the connection pool behind db.
func closeDB(db *gorm.DB, dbType string) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "close_"+dbType)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close_"+dbType)
	}
	GetLogger().Debug("database connection closed", logger.String("db_type", dbType))
	return nil
}
