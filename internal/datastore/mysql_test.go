package datastore

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
)

func TestMySQLDSNEscapesPassword(t *testing.T) {
	dsn := mysqlDSN(&conf.MySQLSettings{
		Username: "setbreak",
		Password: "p@ss/word",
		Host:     "db.local",
		Port:     "3306",
		Database: "shows",
	})

	cfg, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "p@ss/word", cfg.Passwd)
	assert.Equal(t, "db.local:3306", cfg.Addr)
	assert.Equal(t, "shows", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Contains(t, dsn, "charset=utf8mb4")
}
