package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOptionsNormalize(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"missing url", Options{OutputPath: "x.png"}, true},
		{"missing output", Options{URL: "http://127.0.0.1/allday"}, true},
		{"defaults", Options{URL: "http://127.0.0.1/allday", OutputPath: "x.png"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (tt.opts.Width != DefaultWidth || tt.opts.Height != DefaultHeight || tt.opts.Timeout != DefaultTimeout) {
				t.Errorf("defaults not applied: %+v", tt.opts)
			}
		})
	}
}

func TestTasksAddAuthHeader(t *testing.T) {
	var png []byte
	plain := Options{URL: "http://127.0.0.1/allday", OutputPath: "x.png"}
	authed := plain
	authed.Username, authed.Password = "admin", "secret"

	if n, m := len(plain.tasks(&png)), len(authed.tasks(&png)); m != n+2 {
		t.Errorf("tasks with auth = %d, without = %d", m, n)
	}
}

func TestPNGRejectsInvalidOptions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := PNG(ctx, Options{}); err == nil {
		t.Error("expected error without URL")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "preview.png")
	if err := writeFileAtomic(path, []byte("png")); err != nil {
		t.Fatalf("writeFileAtomic() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png" {
		t.Fatalf("read back %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}
