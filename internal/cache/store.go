// Package cache holds session-scoped artifacts (loaded series, trained models) keyed by every
// input that affects them.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const keyPrefix = "crude"

// DefaultTTL bounds how long a cached series or model is reused without an explicit refresh.
const DefaultTTL = 12 * time.Hour

type Store interface {
	// Get decodes the value under key into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// DeletePrefix drops every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// SessionPrefix is the namespace shared by every key of one session.
func SessionPrefix(session string) string {
	return keyPrefix + ":" + sanitize(session) + ":"
}

func SeriesKey(session, ticker, window string) string {
	return SessionPrefix(session) + "series:" + sanitize(ticker) + ":" + sanitize(window)
}

func ModelKey(session string, parts ...string) string {
	clean := make([]string, len(parts))
	for i, p := range parts {
		clean[i] = sanitize(p)
	}
	return SessionPrefix(session) + "model:" + strings.Join(clean, ":")
}

// sanitize percent-encodes every byte outside [A-Za-z0-9_.=-], so distinct inputs stay distinct
// and no key part carries a separator or a Redis glob character. An empty part becomes "%".
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "%"
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keySafe(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func keySafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '.', c == '=', c == '-':
		return true
	}
	return false
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), now: now}
}
