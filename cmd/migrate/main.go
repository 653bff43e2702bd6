package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"crude-outlook/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	cmdUp      = "up"
	cmdDown    = "down"
	cmdVersion = "version"
	cmdStatus  = "status"

	usage = "usage: migrate [up|down|version|status] [steps]"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migrationName = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

var (
	loadEnvFunc = godotenv.Load
	openPool    = func(ctx context.Context, dsn string) (migrationPool, error) {
		return pgxpool.New(ctx, dsn)
	}
	exitFunc = os.Exit
)

// migrationPool is the subset of *pgxpool.Pool the runner needs.
type migrationPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

func main() {
	_ = loadEnvFunc()
	_ = logger.Init(logger.Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})

	if err := run(context.Background(), os.Args[1:], os.Getenv("DATABASE_URL")); err != nil {
		log.Error().Err(err).Msg("migrate failed")
		exitFunc(1)
	}
}

func run(ctx context.Context, args []string, dsn string) error {
	if len(args) < 1 {
		return errors.New(usage)
	}
	if strings.TrimSpace(dsn) == "" {
		return errors.New("DATABASE_URL is required")
	}

	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	pool, err := openPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := ensureMigrationTable(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	switch args[0] {
	case cmdUp:
		applied, err := applyUp(ctx, pool, migrations)
		if err != nil {
			return fmt.Errorf("apply migrations up: %w", err)
		}
		log.Info().Int("applied", applied).Msg("migrations up complete")
	case cmdDown:
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid down steps: %q", args[1])
			}
			steps = n
		}
		rolledBack, err := applyDown(ctx, pool, migrations, steps)
		if err != nil {
			return fmt.Errorf("apply migrations down: %w", err)
		}
		log.Info().Int("rolled_back", rolledBack).Msg("migrations down complete")
	case cmdVersion:
		version, name, err := currentVersion(ctx, pool)
		if err != nil {
			return fmt.Errorf("read current version: %w", err)
		}
		if version == 0 {
			log.Info().Msg("no migrations applied")
			return nil
		}
		log.Info().Int64("version", version).Str("name", name).Msg("current version")
	case cmdStatus:
		applied, err := loadAppliedVersions(ctx, pool)
		if err != nil {
			return fmt.Errorf("read applied versions: %w", err)
		}
		for _, m := range pending(migrations, applied) {
			log.Info().Int64("version", m.Version).Str("name", m.Name).Msg("pending")
		}
	default:
		return fmt.Errorf("unknown command %q. %s", args[0], usage)
	}
	return nil
}

func ensureMigrationTable(ctx context.Context, pool migrationPool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files found")
	}

	index := make(map[int64]*migration)
	for _, p := range paths {
		matches := migrationName.FindStringSubmatch(p)
		if matches == nil {
			return nil, fmt.Errorf("invalid migration filename: %s", p)
		}

		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}
		name, direction := matches[2], matches[3]

		sqlBytes, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		sqlText := strings.TrimSpace(string(sqlBytes))
		if sqlText == "" {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		m, ok := index[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			index[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("conflicting names for version %d: %s vs %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == "down" {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = sqlText
	}

	migrations := make([]migration, 0, len(index))
	for _, m := range index {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration version %d must include both up and down files", m.Version)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func pending(migrations []migration, applied map[int64]struct{}) []migration {
	var out []migration
	for _, m := range migrations {
		if _, ok := applied[m.Version]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func loadAppliedVersions(ctx context.Context, pool migrationPool) (map[int64]struct{}, error) {
	versions, err := queryVersions(ctx, pool, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	applied := make(map[int64]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}
	return applied, nil
}

func queryVersions(ctx context.Context, pool migrationPool, sql string, args ...any) ([]int64, error) {
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// inTx runs the statements in one transaction, rolling back on the first failure.
func inTx(ctx context.Context, pool migrationPool, stmts ...func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := stmt(tx); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	return tx.Commit(ctx)
}

func applyUp(ctx context.Context, pool migrationPool, migrations []migration) (int, error) {
	applied, err := loadAppliedVersions(ctx, pool)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range pending(migrations, applied) {
		err := inTx(ctx, pool,
			func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
					return fmt.Errorf("version %d up failed: %w", m.Version, err)
				}
				return nil
			},
			func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
					return fmt.Errorf("record version %d failed: %w", m.Version, err)
				}
				return nil
			},
		)
		if err != nil {
			return count, err
		}
		log.Debug().Int64("version", m.Version).Str("name", m.Name).Msg("applied migration")
		count++
	}
	return count, nil
}

func applyDown(ctx context.Context, pool migrationPool, migrations []migration, steps int) (int, error) {
	if steps <= 0 {
		return 0, errors.New("steps must be > 0")
	}

	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	versions, err := queryVersions(ctx, pool, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, version := range versions {
		m, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("cannot find migration source for applied version %d", version)
		}
		err := inTx(ctx, pool,
			func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, m.DownSQL); err != nil {
					return fmt.Errorf("version %d down failed: %w", m.Version, err)
				}
				return nil
			},
			func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
					return fmt.Errorf("delete version %d failed: %w", m.Version, err)
				}
				return nil
			},
		)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func currentVersion(ctx context.Context, pool migrationPool) (int64, string, error) {
	var version int64
	var name string
	err := pool.QueryRow(ctx, `SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &name)
	if err == nil {
		return version, name, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	return 0, "", err
}
