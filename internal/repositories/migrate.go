package repositories

import (
	"context"
	"embed"
	"fmt"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// OpenSQLite opens a SQLite database through the pure Go driver.
// Used for local development and tests. opts are handed to gorm.Open as is.
func OpenSQLite(path string, opts ...gorm.Option) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, opts...)
}

// Migrate brings the relational schema up to date. PostgreSQL runs the
// embedded goose migrations; SQLite falls back to GORM auto-migration.
func Migrate(ctx context.Context, db *gorm.DB, driver string) error {
	switch driver {
	case DriverPostgres:
		return RunMigrations(ctx, db)
	case DriverSQLite:
		return AutoMigrate(db)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

// RunMigrations applies the embedded goose migrations to PostgreSQL
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// AutoMigrate creates the tables from the GORM models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ProfileMapping{},
		&models.FriendshipEdge{},
		&models.Comment{},
		&models.Reaction{},
	)
}
