package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/contractledger/internal/audit/domain"
	commissiondomain "github.com/smallbiznis/contractledger/internal/commission/domain"
	contractdomain "github.com/smallbiznis/contractledger/internal/contract/domain"
	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/contractledger/internal/notification/domain"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// Models lists every persisted type in write order. Non-postgres stores are
// created from it with AutoMigrate.
func Models() []any {
	return []any{
		&contractdomain.Contract{},
		&contractdomain.ContractItem{},
		&installmentdomain.Installment{},
		&ledgerdomain.LedgerEntry{},
		&commissiondomain.Salesperson{},
		&commissiondomain.CommissionRequest{},
		&notificationdomain.Notification{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL files;
// mysql and sqlite are auto-migrated from the models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
