package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"alldaycal/internal/refresh"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderJSON(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	out, err := execute(t, "--config", cfgPath, "render", "--format", "json")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}

	var snap refresh.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("output is not a snapshot: %v\n%s", err, out)
	}
	if snap.ID == "" || snap.Days != 14 || snap.Window.Length != 7 || len(snap.Cells) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Errorf("default config not written: %v", err)
	}
}

func TestRenderToFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "allday.svg")
	if _, err := execute(t, "-c", filepath.Join(dir, "config.toml"), "render", "-f", "svg", "-o", outPath); err != nil {
		t.Fatalf("render error = %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "<svg") {
		t.Errorf("unexpected output: %.80s", data)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "existing.svg")
	if err := os.WriteFile(outPath, []byte("<svg/>"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "--config", filepath.Join(dir, "config.yaml"), "render", "--format", "pdf", "--out", outPath)
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("error = %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("existing output overwritten: %q", data)
	}
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("refresh: every minute\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "--config", path, "render")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %v", err)
	}
}

func TestLocalURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:8080": "http://127.0.0.1:8080",
		":9000":          "http://127.0.0.1:9000",
		"0.0.0.0:80":     "http://127.0.0.1:80",
		"[::]:8080":      "http://127.0.0.1:8080",
		"example.com":    "http://example.com",
	}
	for in, want := range tests {
		if got := localURL(in); got != want {
			t.Errorf("localURL(%q) = %q, want %q", in, got, want)
		}
	}
}
