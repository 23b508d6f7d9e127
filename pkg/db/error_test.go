package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: commission_requests.org_id")))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_ledger_source"`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))

	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "55P03"}))
	assert.True(t, IsDuplicateKeyErr(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicateKeyErr(&mysql.MySQLError{Number: 1213}))
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(testConfig("oracle"))
	assert.Error(t, err)

	d, err := Dialect(testConfig("postgres"))
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}
