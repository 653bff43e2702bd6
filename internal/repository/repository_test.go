package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"crude-outlook/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type execCall struct {
	sql  string
	args []any
}

type fakePool struct {
	execs    []execCall
	execErr  error
	batches  []*pgx.Batch
	batchErr error
	queries  []execCall
	rows     [][]any
	queryErr error
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, p.execErr
}

func (p *fakePool) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	p.batches = append(p.batches, b)
	return &fakeBatchResults{err: p.batchErr}
}

func (p *fakePool) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.queries = append(p.queries, execCall{sql: sql, args: args})
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return &fakeRows{data: p.rows, idx: -1}, nil
}

type fakeBatchResults struct {
	err    error
	calls  int
	closed bool
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	b.calls++
	if b.err != nil && b.calls == 2 {
		return pgconn.CommandTag{}, b.err
	}
	return pgconn.CommandTag{}, nil
}
func (b *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (b *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (b *fakeBatchResults) Close() error             { b.closed = true; return nil }

type fakeRows struct {
	data [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.idx], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch v := d.(type) {
		case *string:
			*v = row[i].(string)
		case *int:
			*v = row[i].(int)
		case *float64:
			*v = row[i].(float64)
		case *time.Time:
			*v = row[i].(time.Time)
		case *[]byte:
			*v = row[i].([]byte)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceRepositoryRunMigrations(t *testing.T) {
	pool := &fakePool{}
	if err := NewPriceRepository(pool, testTracer).RunMigrations(context.Background()); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if len(pool.execs) != 1 || !strings.Contains(pool.execs[0].sql, "CREATE TABLE IF NOT EXISTS price_history") {
		t.Fatalf("unexpected exec calls %+v", pool.execs)
	}
}

func TestUpsertPricesQueuesOnePerPoint(t *testing.T) {
	pool := &fakePool{}
	repo := NewPriceRepository(pool, testTracer)

	n, err := repo.UpsertPrices(context.Background(), "BZ=F", []domain.PricePoint{
		{Date: day(1), Price: 80},
		{Date: day(4), Price: 81.5},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 upserts, got %d", n)
	}
	if len(pool.batches) != 1 || pool.batches[0].Len() != 2 {
		t.Fatalf("expected one batch with two statements")
	}
	q := pool.batches[0].QueuedQueries[1]
	if q.Arguments[0] != "BZ=F" || q.Arguments[2] != 81.5 {
		t.Fatalf("unexpected arguments %v", q.Arguments)
	}
}

func TestUpsertPricesEmptyIsNoop(t *testing.T) {
	pool := &fakePool{}
	n, err := NewPriceRepository(pool, testTracer).UpsertPrices(context.Background(), "BZ=F", nil)
	if err != nil || n != 0 || len(pool.batches) != 0 {
		t.Fatalf("expected noop, got n=%d err=%v batches=%d", n, err, len(pool.batches))
	}
}

func TestUpsertPricesReportsPartialProgress(t *testing.T) {
	pool := &fakePool{batchErr: errors.New("constraint")}
	n, err := NewPriceRepository(pool, testTracer).UpsertPrices(context.Background(), "BZ=F", []domain.PricePoint{
		{Date: day(1), Price: 80},
		{Date: day(4), Price: 81},
		{Date: day(5), Price: 82},
	})
	if err == nil || !strings.Contains(err.Error(), "2024-03-04") {
		t.Fatalf("expected error naming the failing day, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 successful upsert, got %d", n)
	}
}

func TestHistoryScansRows(t *testing.T) {
	pool := &fakePool{rows: [][]any{
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 80.0},
		{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 81.0},
	}}
	points, err := NewPriceRepository(pool, testTracer).History(context.Background(), "BZ=F", day(1), day(31))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(points) != 2 || points[1].Price != 81 || !points[1].Date.Equal(day(4)) {
		t.Fatalf("unexpected points %+v", points)
	}
	if pool.queries[0].args[0] != "BZ=F" {
		t.Fatalf("ticker not bound: %v", pool.queries[0].args)
	}
}

func TestHistoryQueryError(t *testing.T) {
	pool := &fakePool{queryErr: errors.New("down")}
	if _, err := NewPriceRepository(pool, testTracer).History(context.Background(), "BZ=F", day(1), day(2)); err == nil {
		t.Fatal("expected error")
	}
}

func sampleRun() domain.ForecastRun {
	return domain.ForecastRun{
		ID:          "7f1c",
		Session:     "s1",
		Page:        "modelo",
		Ticker:      "BZ=F",
		Window:      "20y",
		Horizon:     2,
		LagStrategy: domain.LagRecursive,
		Hyper:       domain.Hyperparameters{Trees: 200, LearningRate: 0.1, MaxDepth: 6, L2: 1},
		Evaluation:  domain.EvaluationResult{MAE: 1, MSE: 2, RMSE: 1.4, MAPE: 3, Reliability: 97, Count: 2},
		Forecast:    []domain.ForecastRow{{Date: day(5), PredictedPrice: 82}},
		LastPrice:   81,
		LastDate:    day(4),
		CreatedAt:   time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}
}

func TestInsertRunEncodesJSONColumns(t *testing.T) {
	pool := &fakePool{}
	if err := NewRunRepository(pool, testTracer).InsertRun(context.Background(), sampleRun()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	args := pool.execs[0].args
	if len(args) != 18 {
		t.Fatalf("expected 18 arguments, got %d", len(args))
	}
	var hyper domain.Hyperparameters
	if err := json.Unmarshal(args[7].([]byte), &hyper); err != nil || hyper.Trees != 200 {
		t.Fatalf("hyperparameters not encoded: %v %+v", err, hyper)
	}
	if args[6] != "recursive" {
		t.Fatalf("lag strategy should be stored as text, got %v", args[6])
	}
}

func TestInsertRunWrapsError(t *testing.T) {
	pool := &fakePool{execErr: errors.New("duplicate key")}
	err := NewRunRepository(pool, testTracer).InsertRun(context.Background(), sampleRun())
	if err == nil || !strings.Contains(err.Error(), "insert forecast run") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestListRunsDecodesRows(t *testing.T) {
	run := sampleRun()
	hyper, _ := json.Marshal(run.Hyper)
	forecast, _ := json.Marshal(run.Forecast)
	pool := &fakePool{rows: [][]any{{
		run.ID, run.Session, run.Page, run.Ticker, run.Window, run.Horizon, "recursive", hyper,
		1.0, 2.0, 1.4, 3.0, 97.0, 2, forecast, 81.0, day(4), run.CreatedAt,
	}}}

	runs, err := NewRunRepository(pool, testTracer).ListRuns(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != "7f1c" || got.LagStrategy != domain.LagRecursive || got.Hyper.Trees != 200 || len(got.Forecast) != 1 {
		t.Fatalf("unexpected run %+v", got)
	}
	if pool.queries[0].args[1] != defaultRunLimit {
		t.Fatalf("expected default limit, got %v", pool.queries[0].args[1])
	}
}

func TestListRunsClampsLimit(t *testing.T) {
	pool := &fakePool{}
	if _, err := NewRunRepository(pool, testTracer).ListRuns(context.Background(), "", 10000); err != nil {
		t.Fatalf("list: %v", err)
	}
	if pool.queries[0].args[1] != maxRunLimit {
		t.Fatalf("expected clamped limit, got %v", pool.queries[0].args[1])
	}
}
