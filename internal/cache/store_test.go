package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestKeysAreNamespacedAndSanitized(t *testing.T) {
	if got := SeriesKey("alice", "BZ=F", "20y"); got != "crude:alice:series:BZ=F:20y" {
		t.Fatalf("unexpected series key %s", got)
	}
	if got := SeriesKey("", "BZ=F", "2024-01-01_open"); got != "crude:%:series:BZ=F:2024-01-01_open" {
		t.Fatalf("unexpected series key for empty session %s", got)
	}
	if got := SessionPrefix("a:b*"); got != "crude:a%3Ab%2A:" {
		t.Fatalf("expected separators encoded in session, got %s", got)
	}
	if got := SessionPrefix("x y%"); got != "crude:x%20y%25:" {
		t.Fatalf("expected space and percent encoded, got %s", got)
	}
	if got := ModelKey("s", "modelo", "t200"); got != "crude:s:model:modelo:t200" {
		t.Fatalf("unexpected model key %s", got)
	}
}

func TestDistinctSessionsNeverShareKeys(t *testing.T) {
	sessions := []string{"a:b", "a_b", "a%3Ab", "_", "%", "a b", "a*", "a?"}
	seen := map[string]string{}
	for _, s := range sessions {
		p := SessionPrefix(s)
		if prev, ok := seen[p]; ok {
			t.Fatalf("sessions %q and %q share prefix %s", prev, s, p)
		}
		seen[p] = s
		if strings.ContainsAny(p, `*?[]\`) {
			t.Fatalf("prefix %s carries glob syntax", p)
		}
	}
}

func TestMemoryStoreExpiresEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Set(ctx, "k", []float64{1, 2}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got []float64
	if ok, _ := store.Get(ctx, "k", &got); !ok || len(got) != 2 {
		t.Fatalf("expected hit before expiry, got %v", got)
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := store.Get(ctx, "k", &got); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	_ = store.Set(ctx, SeriesKey("alice", "BZ=F", "20y"), 1, 0)
	_ = store.Set(ctx, SeriesKey("bob", "BZ=F", "20y"), 1, 0)

	n, err := store.DeletePrefix(ctx, SessionPrefix("alice"))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 deletion, got %d err=%v", n, err)
	}
	var v int
	if ok, _ := store.Get(ctx, SeriesKey("bob", "BZ=F", "20y"), &v); !ok {
		t.Fatalf("expected bob's entry to survive")
	}
}
