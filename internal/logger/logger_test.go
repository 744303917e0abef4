package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDebugGatedByEnabled(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	quiet := NewWithCore(core, false)
	quiet.Debug("hidden %d", 1)
	quiet.Info("hidden")
	quiet.Error("shown %s", "error")

	if logs.Len() != 1 {
		t.Fatalf("got %d entries, want 1", logs.Len())
	}
	if entry := logs.All()[0]; entry.Level != zapcore.ErrorLevel || entry.Message != "shown error" {
		t.Errorf("unexpected entry %+v", entry)
	}

	loud := NewWithCore(core, true)
	loud.Debug("checking %s", "f")
	loud.With("function", "f").Info("margin %d", -1)

	entries := logs.FilterMessage("margin -1").All()
	if len(entries) != 1 {
		t.Fatalf("missing info entry")
	}
	if got := entries[0].ContextMap()["function"]; got != "f" {
		t.Errorf("context function = %v", got)
	}
	if logs.FilterMessage("checking f").Len() != 1 {
		t.Error("missing debug entry")
	}
}

func TestDebugFromEnv(t *testing.T) {
	t.Setenv(EnvDebug, "on")
	if !DebugFromEnv() {
		t.Error("YULC_DEBUG=on should enable debug")
	}
	t.Setenv(EnvDebug, "0")
	if DebugFromEnv() {
		t.Error("YULC_DEBUG=0 should not enable debug")
	}
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yulc.log")

	l := NewWithDebug(true, path)
	l.Debug("written to %s", "file")
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content: %q", data)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	if l.IsEnabled() {
		t.Error("Nop logger should not be enabled")
	}
	l.Error("ignored")
	l.Close()
}

func TestWarningsReachStderr(t *testing.T) {
	tests := []struct {
		enabled bool
		logPath string
		want    zapcore.Level
	}{
		{false, "", zapcore.WarnLevel},
		{false, "yulc.log", zapcore.WarnLevel},
		{true, "", zapcore.DebugLevel},
		{true, "yulc.log", zapcore.WarnLevel},
	}
	for _, tt := range tests {
		if got := stderrLevel(tt.enabled, tt.logPath); got != tt.want {
			t.Errorf("stderrLevel(%v, %q) = %v, want %v", tt.enabled, tt.logPath, got, tt.want)
		}
	}

	f, err := os.CreateTemp(t.TempDir(), "stderr")
	if err != nil {
		t.Fatal(err)
	}
	old := os.Stderr
	os.Stderr = f
	l := NewWithDebug(false, "")
	os.Stderr = old

	l.Info("hidden info")
	l.Warn("visible %s", "warning")
	l.Close()
	f.Close()

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "visible warning") {
		t.Errorf("warning missing from stderr: %q", data)
	}
	if strings.Contains(string(data), "hidden info") {
		t.Errorf("info leaked to stderr: %q", data)
	}
}
