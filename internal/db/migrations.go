package db

import (
	"database/sql"
	"fmt"
	"strings"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/goran-ethernal/TokenLedger/internal/logger"
)

const (
	UpDownSeparator     = "-- +migrate Up"
	downMarker          = "-- +migrate Down"
	NoLimitMigrations   = 0 // indicate that there is no limit on the number of migrations to run
	migrationDirections = 2
)

type Migration struct {
	ID  string
	SQL string
}

// RunMigrations brings db up to date with migrations.
func RunMigrations(log *logger.Logger, db *sql.DB, migrations []Migration) error {
	return RunMigrationsExtended(log, db, migrations, migrate.Up, NoLimitMigrations)
}

// RunMigrationsExtended runs migrations in direction dir.
// maxMigrations: Will apply at most `max` migrations. Pass 0 for no limit
func RunMigrationsExtended(
	log *logger.Logger,
	db *sql.DB,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int,
) error {
	source, err := memorySource(migrations)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(source.Migrations))
	for _, m := range source.Migrations {
		ids = append(ids, m.Id)
	}

	n, err := migrate.ExecMax(db, "sqlite3", source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("error executing migrations %s: %w", strings.Join(ids, ", "), err)
	}

	log.Debugf("applied %d of %d migrations", n, len(ids))
	return nil
}

// memorySource splits every migration into its Down and Up sections. The Down section
// comes first, the Up section follows the UpDownSeparator.
func memorySource(migrations []Migration) (*migrate.MemoryMigrationSource, error) {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}

	for _, m := range migrations {
		parts := strings.Split(m.SQL, UpDownSeparator)
		if len(parts) < migrationDirections {
			return nil, fmt.Errorf("migration %s missing '%s' separator", m.ID, UpDownSeparator)
		}

		down := parts[0]
		if idx := strings.Index(down, downMarker); idx != -1 {
			down = down[idx+len(downMarker):]
		}

		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{strings.TrimSpace(parts[1])},
			Down: []string{strings.TrimSpace(down)},
		})
	}

	return source, nil
}
