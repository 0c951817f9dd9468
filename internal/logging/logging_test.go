package logging

import (
	"bytes"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"coffeeroaster/internal/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.Logging{Level: "loud", Format: "json"}); err == nil {
		t.Fatalf("expected level parse error")
	}
}

func TestNewBuildsJSONLogger(t *testing.T) {
	logger, err := New(config.Logging{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestConsoleFormatSelection(t *testing.T) {
	var buf bytes.Buffer
	if consoleFormat("json", os.Stderr) {
		t.Fatalf("json must never select console")
	}
	if consoleFormat("auto", &buf) {
		t.Fatalf("auto must select json for a non-terminal writer")
	}
	if !consoleFormat("console", &buf) {
		t.Fatalf("console must select console")
	}
	if IsTerminal(&buf) {
		t.Fatalf("buffer is not a terminal")
	}
}

func TestKVForwardsKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	kv := NewKV(zap.New(core))
	kv.Debug("debug", "a", 1)
	kv.Info("info", "b", 2)
	kv.Warn("warn")
	kv.Error("error", "op", "submit_batch_cost")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if got := entries[3].ContextMap()["op"]; got != "submit_batch_cost" {
		t.Fatalf("expected op field, got %v", got)
	}
	NewKV(nil).Info("discarded")
}
