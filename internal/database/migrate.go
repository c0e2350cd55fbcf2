package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxMigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/leighmacdonald/rglstats/pkg/log"
)

// MigrationAction is the type of migration to perform.
type MigrationAction int

const (
	// MigrateUp Fully upgrades the schema.
	MigrateUp MigrationAction = iota
	// MigrateDn Fully downgrades the schema.
	MigrateDn
	// MigrateUpOne Upgrade the schema by one revision.
	MigrateUpOne
	// MigrateDownOne Downgrade the schema by one revision.
	MigrateDownOne
)

const migrationsTable = "_migration"

var (
	ErrOpenDB          = errors.New("failed to open database driver")
	ErrMigrationDriver = errors.New("failed to setup migration driver")
	ErrMigrateFS       = errors.New("could not setup embedded migration source")
	ErrMigrateCreate   = errors.New("failed to setup migration instance")
	ErrMigrate         = errors.New("migration failed to complete")
	ErrSchemaVersion   = errors.New("failed to read schema version")
	ErrUnknownAction   = errors.New("unknown migration action")
)

var migrationActions = map[string]MigrationAction{ //nolint:gochecknoglobals
	"up":       MigrateUp,
	"down":     MigrateDn,
	"up_one":   MigrateUpOne,
	"down_one": MigrateDownOne,
}

// ParseMigrationAction maps the cli names onto a MigrationAction.
func ParseMigrationAction(name string) (MigrationAction, error) {
	action, found := migrationActions[name]
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}

	return action, nil
}

func (a MigrationAction) String() string {
	for name, action := range migrationActions {
		if action == a {
			return name
		}
	}

	return "unknown"
}

// SchemaVersion is the applied migration revision. Dirty is set when a migration failed part way.
type SchemaVersion struct {
	Version uint
	Dirty   bool
}

// withMigrator opens a dedicated database/sql connection for golang-migrate and closes it once
// fn returns.
func (db *postgresStore) withMigrator(fn func(migrator *migrate.Migrate) error) error {
	instance, errOpen := sql.Open("pgx/v5", db.dsn)
	if errOpen != nil {
		return errors.Join(errOpen, ErrOpenDB)
	}

	defer log.Closer(instance)

	driver, errDriver := pgxMigrate.WithInstance(instance, &pgxMigrate.Config{
		MigrationsTable: migrationsTable,
		SchemaName:      "public",
	})
	if errDriver != nil {
		return errors.Join(errDriver, ErrMigrationDriver)
	}

	source, errSource := iofs.New(migrations, "migrations")
	if errSource != nil {
		log.Closer(driver)

		return errors.Join(errSource, ErrMigrateFS)
	}

	migrator, errMigrator := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if errMigrator != nil {
		log.Closer(source)
		log.Closer(driver)

		return errors.Join(errMigrator, ErrMigrateCreate)
	}

	defer func() {
		if errSrc, errDB := migrator.Close(); errSrc != nil || errDB != nil {
			slog.Error("Failed to close migrator", log.ErrAttr(errors.Join(errSrc, errDB)))
		}
	}()

	return fn(migrator)
}

// Migrate applies the embedded schema migrations.
func (db *postgresStore) Migrate(action MigrationAction) error {
	return db.withMigrator(func(migrator *migrate.Migrate) error {
		var errMigration error

		switch action {
		case MigrateUpOne:
			errMigration = migrator.Steps(1)
		case MigrateDn:
			errMigration = migrator.Down()
		case MigrateDownOne:
			errMigration = migrator.Steps(-1)
		case MigrateUp:
			errMigration = migrator.Up()
		default:
			return fmt.Errorf("%w: %d", ErrUnknownAction, action)
		}

		if errMigration != nil && !errors.Is(errMigration, migrate.ErrNoChange) {
			return errors.Join(errMigration, ErrMigrate)
		}

		db.migrated = true

		version, dirty, errVersion := migrator.Version()
		if errVersion == nil {
			slog.Debug("Schema migrated", slog.String("action", action.String()),
				slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		}

		return nil
	})
}

// Version reports the applied schema revision. An empty schema is version 0.
func (db *postgresStore) Version() (SchemaVersion, error) {
	var current SchemaVersion

	errVersion := db.withMigrator(func(migrator *migrate.Migrate) error {
		version, dirty, errRead := migrator.Version()
		if errRead != nil {
			if errors.Is(errRead, migrate.ErrNilVersion) {
				return nil
			}

			return errors.Join(errRead, ErrSchemaVersion)
		}

		current = SchemaVersion{Version: version, Dirty: dirty}

		return nil
	})

	return current, errVersion
}
