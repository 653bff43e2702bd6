package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crude-outlook/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubSyncer struct {
	mu      sync.Mutex
	calls   []string
	windows []domain.Window
	fail    map[string]error
}

func (s *stubSyncer) Sync(_ context.Context, ticker string, window domain.Window) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ticker)
	s.windows = append(s.windows, window)
	if err := s.fail[ticker]; err != nil {
		return 0, err
	}
	return 5, nil
}

func (s *stubSyncer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestRunOnceSyncsEveryTicker(t *testing.T) {
	stub := &stubSyncer{}
	h := NewHistorySync(testTracer, stub, []string{"BZ=F", "CL=F"}, "1mo")

	n, err := h.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 10 {
		t.Fatalf("expected 10 rows, got %d", n)
	}
	if len(stub.calls) != 2 || stub.windows[0].Period != "1mo" {
		t.Fatalf("unexpected calls %v %v", stub.calls, stub.windows)
	}
	if last, lastErr := h.LastRun(); last.IsZero() || lastErr != nil {
		t.Fatalf("expected successful last run, got %v %v", last, lastErr)
	}
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	stub := &stubSyncer{fail: map[string]error{"BZ=F": domain.ErrDataUnavailable}}
	h := NewHistorySync(testTracer, stub, []string{"BZ=F", "CL=F"}, "1mo")

	n, err := h.RunOnce(context.Background())
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected joined ErrDataUnavailable, got %v", err)
	}
	if n != 5 || len(stub.calls) != 2 {
		t.Fatalf("expected second ticker synced, got n=%d calls=%v", n, stub.calls)
	}
	if _, lastErr := h.LastRun(); lastErr == nil {
		t.Fatal("expected last error recorded")
	}
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	h := NewHistorySync(testTracer, &stubSyncer{}, []string{"BZ=F"}, "1mo")
	if err := h.Register(context.Background(), "every tuesday"); err == nil {
		t.Fatal("expected parse error")
	}
	if err := h.Register(context.Background(), "0 30 22 * * 1-5"); err != nil {
		t.Fatalf("expected six-field spec accepted: %v", err)
	}
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	stub := &stubSyncer{}
	h := NewHistorySync(testTracer, stub, []string{"BZ=F"}, "1mo")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return stub.count() > 0 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestRunScheduledSkipsCancelledContext(t *testing.T) {
	stub := &stubSyncer{}
	h := NewHistorySync(testTracer, stub, []string{"BZ=F"}, "1mo")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.runScheduled(ctx)
	if stub.count() != 0 {
		t.Fatal("expected no sync after cancellation")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
