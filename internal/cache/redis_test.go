package cache

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestInitRedisWithCustomAddr(t *testing.T) {
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return nil
	}

	client, err := InitRedis(context.Background(), "redis:9999")
	if err != nil {
		t.Fatalf("init redis: %v", err)
	}
	defer client.Close()
	if capturedAddr != "redis:9999" {
		t.Fatalf("expected custom addr, got %s", capturedAddr)
	}
}

func TestInitRedisDefaults(t *testing.T) {
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return nil
	}

	client, err := InitRedis(context.Background(), "")
	if err != nil {
		t.Fatalf("init redis: %v", err)
	}
	defer client.Close()
	if capturedAddr != "localhost:6379" {
		t.Fatalf("expected default addr, got %s", capturedAddr)
	}
}

func TestInitRedisPingFailure(t *testing.T) {
	origPing := pingRedis
	t.Cleanup(func() { pingRedis = origPing })
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return errors.New("refused")
	}

	if _, err := InitRedis(context.Background(), "localhost:1"); err == nil {
		t.Fatalf("expected ping failure to surface")
	}
}

type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Scan matches keys with glob semantics like SCAN MATCH does.
func (f *fakeRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	var keys []string
	for k := range f.data {
		ok, err := path.Match(match, k)
		if err != nil {
			return redis.NewScanCmdResult(nil, 0, err)
		}
		if ok {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake)
	ctx := context.Background()

	type payload struct {
		Price float64 `json:"price"`
	}
	key := SeriesKey("alice", "BZ=F", "20y")
	if err := store.Set(ctx, key, payload{Price: 81.5}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if fake.ttls[key] != time.Hour {
		t.Fatalf("expected ttl to be forwarded, got %s", fake.ttls[key])
	}

	var got payload
	ok, err := store.Get(ctx, key, &got)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Price != 81.5 {
		t.Fatalf("expected 81.5, got %.2f", got.Price)
	}

	ok, err = store.Get(ctx, SeriesKey("bob", "BZ=F", "20y"), &got)
	if err != nil || ok {
		t.Fatalf("expected miss for other session, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreDeletePrefixIsSessionScoped(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake)
	ctx := context.Background()

	_ = store.Set(ctx, SeriesKey("alice", "BZ=F", "20y"), 1, 0)
	_ = store.Set(ctx, ModelKey("alice", "modelo", "abc"), 2, 0)
	_ = store.Set(ctx, SeriesKey("bob", "BZ=F", "20y"), 3, 0)

	n, err := store.DeletePrefix(ctx, SessionPrefix("alice"))
	if err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deletions, got %d", n)
	}
	if _, ok := fake.data[SeriesKey("bob", "BZ=F", "20y")]; !ok {
		t.Fatalf("expected bob's entry to survive")
	}
}

func TestRedisStoreDeletePrefixTreatsSessionLiterally(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake)
	ctx := context.Background()

	anon := SeriesKey("anonymous", "BZ=F", "20y")
	_ = store.Set(ctx, anon, 1, 0)
	_ = store.Set(ctx, SeriesKey("anonymou?", "BZ=F", "20y"), 2, 0)
	_ = store.Set(ctx, ModelKey("*", "modelo"), 3, 0)

	for _, session := range []string{"anonymou?", "anonymou*", "anonymo[u]s", `anonymou\s`} {
		if _, err := store.DeletePrefix(ctx, SessionPrefix(session)); err != nil {
			t.Fatalf("delete prefix %q: %v", session, err)
		}
	}
	if _, ok := fake.data[anon]; !ok {
		t.Fatalf("expected anonymous entry to survive refreshes of look-alike sessions")
	}
	if _, ok := fake.data[SeriesKey("anonymou?", "BZ=F", "20y")]; ok {
		t.Fatalf("expected the refreshed session's own entry to be removed")
	}

	n, err := store.DeletePrefix(ctx, SessionPrefix("*"))
	if err != nil || n != 1 {
		t.Fatalf("expected only the literal * session to be cleared, got %d err=%v", n, err)
	}
	if _, ok := fake.data[anon]; !ok {
		t.Fatalf("expected anonymous entry to survive")
	}
}

func TestRedisStoreDeletePrefixEscapesPattern(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake)
	ctx := context.Background()

	fake.data["crude:ab:1"] = "1"
	fake.data["crude:a?:1"] = "2"
	fake.data[`crude:a\:1`] = "3"

	n, err := store.DeletePrefix(ctx, "crude:a?")
	if err != nil || n != 1 {
		t.Fatalf("expected one literal match, got %d err=%v", n, err)
	}
	if _, ok := fake.data["crude:ab:1"]; !ok {
		t.Fatalf("expected ? to be matched literally")
	}
	n, err = store.DeletePrefix(ctx, `crude:a\`)
	if err != nil || n != 1 {
		t.Fatalf("expected backslash prefix to match itself, got %d err=%v", n, err)
	}
}
