package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"spendlog/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations migrates through database/sql because the golang-migrate
// pgx driver does not accept a pgxpool.
func RunMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}
	_, err = storage.MigrateUp(migrationsFS, "pgx5", driver)
	return err
}
