package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("unexpected error loading embedded migrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "price_history" {
		t.Fatalf("unexpected first migration %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "forecast_runs" {
		t.Fatalf("unexpected second migration %+v", migrations[1])
	}
	if !strings.Contains(migrations[1].UpSQL, "forecast_runs") || migrations[1].DownSQL == "" {
		t.Fatal("expected non-empty up/down sql for forecast_runs")
	}
}

func TestLoadMigrationsRejectsMissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000001_a.up.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for missing down file")
	}
}

func TestLoadMigrationsRejectsBadName(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/first.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for invalid filename")
	}
}

type fakeRows struct {
	pgx.Rows
	versions []int64
	idx      int
}

func (r *fakeRows) Next() bool { r.idx++; return r.idx <= len(r.versions) }
func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*int64) = r.versions[r.idx-1]
	return nil
}
func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

type fakeTx struct {
	pgx.Tx
	pool *fakePool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.pool.txSQL = append(tx.pool.txSQL, sql)
	if tx.pool.failOn != "" && strings.Contains(sql, tx.pool.failOn) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	return pgconn.CommandTag{}, nil
}
func (tx *fakeTx) Commit(context.Context) error   { tx.pool.commits++; return nil }
func (tx *fakeTx) Rollback(context.Context) error { tx.pool.rollbacks++; return nil }

type fakePool struct {
	applied   []int64
	txSQL     []string
	failOn    string
	commits   int
	rollbacks int
	closed    bool
}

func (p *fakePool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (p *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return &fakeRows{versions: p.applied}, nil
}
func (p *fakePool) QueryRow(context.Context, string, ...any) pgx.Row { return noRow{} }
func (p *fakePool) Begin(context.Context) (pgx.Tx, error)            { return &fakeTx{pool: p}, nil }
func (p *fakePool) Close()                                           { p.closed = true }

func TestApplyUpSkipsApplied(t *testing.T) {
	migrations, _ := loadMigrations(migrationsFS)
	pool := &fakePool{applied: []int64{1}}

	n, err := applyUp(context.Background(), pool, migrations)
	if err != nil {
		t.Fatalf("apply up: %v", err)
	}
	if n != 1 || pool.commits != 1 {
		t.Fatalf("expected one applied migration, got n=%d commits=%d", n, pool.commits)
	}
	if !strings.Contains(pool.txSQL[0], "forecast_runs") {
		t.Fatalf("expected forecast_runs migration, got %q", pool.txSQL[0])
	}
}

func TestApplyUpRollsBackOnFailure(t *testing.T) {
	migrations, _ := loadMigrations(migrationsFS)
	pool := &fakePool{failOn: "price_history"}

	n, err := applyUp(context.Background(), pool, migrations)
	if err == nil || n != 0 {
		t.Fatalf("expected failure before any migration, got n=%d err=%v", n, err)
	}
	if pool.rollbacks != 1 || pool.commits != 0 {
		t.Fatalf("expected rollback, got rollbacks=%d commits=%d", pool.rollbacks, pool.commits)
	}
}

func TestApplyDownLatestFirst(t *testing.T) {
	migrations, _ := loadMigrations(migrationsFS)
	pool := &fakePool{applied: []int64{2, 1}}

	n, err := applyDown(context.Background(), pool, migrations, 2)
	if err != nil || n != 2 {
		t.Fatalf("apply down: n=%d err=%v", n, err)
	}
	if !strings.Contains(pool.txSQL[0], "forecast_runs") {
		t.Fatalf("expected forecast_runs rolled back first, got %q", pool.txSQL[0])
	}
}

func TestCurrentVersionNoRows(t *testing.T) {
	v, name, err := currentVersion(context.Background(), &fakePool{})
	if err != nil || v != 0 || name != "" {
		t.Fatalf("expected empty version, got %d %q %v", v, name, err)
	}
}

func TestRunValidatesArguments(t *testing.T) {
	if err := run(context.Background(), nil, "postgres://x"); err == nil {
		t.Fatal("expected usage error")
	}
	if err := run(context.Background(), []string{cmdUp}, " "); err == nil {
		t.Fatal("expected DATABASE_URL error")
	}
}

func TestRunUnknownCommandClosesPool(t *testing.T) {
	pool := &fakePool{}
	orig := openPool
	openPool = func(context.Context, string) (migrationPool, error) { return pool, nil }
	defer func() { openPool = orig }()

	err := run(context.Background(), []string{"sideways"}, "postgres://x")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if !pool.closed {
		t.Fatal("pool should be closed")
	}
}

func TestRunDownRejectsBadSteps(t *testing.T) {
	orig := openPool
	openPool = func(context.Context, string) (migrationPool, error) { return &fakePool{}, nil }
	defer func() { openPool = orig }()

	if err := run(context.Background(), []string{cmdDown, "zero"}, "postgres://x"); err == nil {
		t.Fatal("expected invalid steps error")
	}
}

func TestLoadAppliedVersionsFeedsPending(t *testing.T) {
	migrations, _ := loadMigrations(migrationsFS)
	applied, err := loadAppliedVersions(context.Background(), &fakePool{applied: []int64{1}})
	if err != nil {
		t.Fatalf("load applied: %v", err)
	}
	if _, ok := applied[1]; !ok || len(applied) != 1 {
		t.Fatalf("unexpected applied set %v", applied)
	}
	left := pending(migrations, applied)
	if len(left) != 1 || left[0].Name != "forecast_runs" {
		t.Fatalf("expected forecast_runs pending, got %+v", left)
	}
}
