package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	// Test development mode
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize development logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Test production mode
	err = Init()
	if err != nil {
		t.Fatalf("failed to initialize production logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger = Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

// Basic logging test (slog-backed; no Sugar)
func TestLoggerBasic(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil")
	}

	ctx := context.Background()
	logger.Info(ctx, "test message", String("k", "v"))
}

func TestLoggerNamed(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}

	ctx := context.Background()
	namedLogger.Info(ctx, "test message")
}

func TestLoggerWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf).Named("camera").With(String("agent", "room-1"))

	if err := SetLevelString("info"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	l.Debug(context.Background(), "hidden")
	l.Warn(context.Background(), "moving", Int("preset", 3), Duration("settle", 10*time.Second))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %q", out)
	}
	for _, want := range []string{"component=camera", "agent=room-1", "preset=3", "settle=10s", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q): %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestLoggerLogLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	_ = SetLevelString("info")

	l.Log(context.Background(), slog.LevelDebug, "quiet")
	l.Log(context.Background(), slog.LevelInfo, "loud")

	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Configure(&buf, "JSON"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	defer func() { _ = Init() }()
	_ = SetLevelString("info")

	Named("override").Info(context.Background(), "reset", Bool("automatic", true))

	out := buf.String()
	for _, want := range []string{`"msg":"reset"`, `"component":"override"`, `"automatic":true`, `"source":"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if !strings.Contains(out, "logger_test.go:") {
		t.Errorf("source should point at the call site: %q", out)
	}
}

func TestConfigureUnknownFormat(t *testing.T) {
	if err := Configure(&bytes.Buffer{}, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if Get() == nil {
		t.Fatal("global logger lost after a failed Configure")
	}
}

func TestNopLogger(t *testing.T) {
	_ = SetLevelString("debug")
	defer func() { _ = SetLevelString("info") }()
	l := NewNop().Named("x").With(String("k", "v"))
	l.Debug(context.Background(), "dropped")
	l.Error(context.Background(), "dropped")
}
