package db

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
)

func AutoMigrateAll(db *gorm.DB) error {
	if db.Dialector.Name() == DriverSQLite {
		if err := textDecimals(db, &ledger.Account{}, "balance"); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
	}
	if err := db.AutoMigrate(&ledger.Account{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// textDecimals declares the named decimal columns as TEXT. SQLite gives a
// decimal(p,s) column NUMERIC affinity, which stores fractional values as
// 8-byte floats; TEXT keeps the exact string decimal.Decimal writes.
func textDecimals(db *gorm.DB, model any, fields ...string) error {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return err
	}
	for _, name := range fields {
		f := stmt.Schema.LookUpField(name)
		if f == nil {
			return fmt.Errorf("unknown field %q on %s", name, stmt.Schema.Name)
		}
		f.DataType = schema.String
	}
	return nil
}
