package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(io.Discard)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestInfoWritesKeyValues(t *testing.T) {
	buf := capture(t, LevelInfo)

	Info("layout refreshed", "cells", 3)

	out := buf.String()
	if !strings.Contains(out, "layout refreshed") || !strings.Contains(out, "cells=3") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name    string
		level   Level
		logFunc func()
		wantLog bool
	}{
		{"debug at info", LevelInfo, func() { Debug("x") }, false},
		{"debug at debug", LevelDebug, func() { Debug("x") }, true},
		{"info at error", LevelError, func() { Info("x") }, false},
		{"warn at warn", LevelWarn, func() { Warn("x") }, true},
		{"error at error", LevelError, func() { Error("x", errors.New("boom")) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.level)
			tt.logFunc()
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestErrorIncludesErr(t *testing.T) {
	buf := capture(t, LevelInfo)

	Error("fetch failed", errors.New("timeout"), "id", "work")

	out := buf.String()
	if !strings.Contains(out, "timeout") || !strings.Contains(out, "id=work") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		" Info ":  LevelInfo,
		"warning": LevelWarn,
		"ERROR":   LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
