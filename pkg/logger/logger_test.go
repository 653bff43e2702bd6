package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestNewRejectsBadFormat(t *testing.T) {
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	var buf bytes.Buffer
	orig := openFile
	openFile = func(path string) (io.Writer, error) {
		if path != "/var/log/crude.log" {
			t.Fatalf("unexpected path %q", path)
		}
		return &buf, nil
	}
	defer func() { openFile = orig }()

	l, err := New(Config{Level: "warn", Format: "json", Output: "/var/log/crude.log"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info().Msg("dropped")
	l.Warn().Str("page", "modelo").Msg("kept")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "kept" || entry["page"] != "modelo" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewFileError(t *testing.T) {
	orig := openFile
	openFile = func(string) (io.Writer, error) { return nil, errors.New("denied") }
	defer func() { openFile = orig }()

	if _, err := New(Config{Output: "/nope"}); err == nil {
		t.Fatalf("expected file error")
	}
}

func TestInitReplacesGlobalLogger(t *testing.T) {
	if err := Init(Config{Level: "debug", Format: "json", Output: "stdout"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := log.Logger.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("expected debug level on the global logger, got %v", got)
	}
}
