package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReporterLogsAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewReporter(zap.New(core))

	r.Report("cases.create", errors.New("insert failed"), zap.String("title", "Divorcio X"))

	entries := logs.FilterMessage("cases.create").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("level = %v", entries[0].Level)
	}
	if entries[0].ContextMap()["error"] != "insert failed" {
		t.Fatalf("error field missing: %v", entries[0].ContextMap())
	}
}

func TestReporterIgnoresNilError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	NewReporter(zap.New(core)).Report("noop", nil)
	if logs.Len() != 0 {
		t.Fatalf("nil error should not be reported")
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "lex.log")
	lg, err := New(Config{Level: "info", File: file})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Info("hello")
	_ = lg.Sync()

	if _, err := os.Lstat(file); err != nil {
		t.Fatalf("link %s not created: %v", file, err)
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Errorf("%q: got %v want %v", in, got, want)
		}
	}
}
