package db

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/smallbiznis/contractledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(config.Config{
		DBUser:     "ledger",
		DBPassword: "p@ss:word",
		DBHost:     "db.local",
		DBPort:     "3306",
		DBName:     "contracts",
	})

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "ledger", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "db.local:3306", parsed.Addr)
	assert.Equal(t, "contracts", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, "UTC", parsed.Loc.String())
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(config.Config{
		DBUser:     "ledger",
		DBPassword: "s3cret/with space",
		DBHost:     "pg.local",
		DBPort:     "5433",
		DBName:     "contracts",
		DBSSLMode:  "disable",
	})

	parsed, err := pgx.ParseConfig(dsn)
	require.NoError(t, err)
	assert.Equal(t, "ledger", parsed.User)
	assert.Equal(t, "s3cret/with space", parsed.Password)
	assert.Equal(t, "pg.local", parsed.Host)
	assert.Equal(t, uint16(5433), parsed.Port)
	assert.Equal(t, "contracts", parsed.Database)
	assert.Equal(t, "UTC", parsed.RuntimeParams["TimeZone"])
}

func TestDialectRejectsUnknownStore(t *testing.T) {
	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)

	_, err = Dialect(config.Config{DBType: "sqlite"})
	assert.Error(t, err)

	d, err := Dialect(config.Config{DBType: "Postgres", DBHost: "h", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}
