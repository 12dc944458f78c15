package database

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
)

// Migrate creates or upgrades every table in Tables.
func Migrate(ctx context.Context, driver string, db *sql.DB) error {
	m, err := schema.NewMigrate(entsql.OpenDB(driver, db), schema.WithForeignKeys(true))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
