package datastore

import (
	"fmt"
	"net"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	m := settings.Database.MySQL
	if m.Host == "" || m.Database == "" || m.Username == "" {
		return errors.Newf("mysql host, database and username are required").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// mysqlDSN formats connection settings so that passwords containing
// reserved characters survive.
func mysqlDSN(m *conf.MySQLSettings) string {
	cfg := mysqldriver.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, m.Port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open sets up the MySQL database connection and migrates the schema.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	m := store.Settings.Database.MySQL
	dsn := mysqlDSN(&m)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.String("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return dbError(err, "open_mysql")
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL", fmt.Sprintf("%s:%s/%s", m.Host, m.Port, m.Database))
}

// Close closes the MySQL connection.
func (store *MySQLStore) Close() error {
	return closeDB(store.DB, "mysql")
}
