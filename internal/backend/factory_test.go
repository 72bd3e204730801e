package backend

import (
	"context"
	"path/filepath"
	"testing"

	"salon/internal/config"
	applog "salon/internal/log"
)

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"file", Config{Type: FileBackend, DataDirectory: filepath.Join(dir, "data")}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "salon.db")}, false},
		{"file without dir", Config{Type: FileBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "redis"}, true},
	}

	f := NewFactory(applog.Discard())
	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Close()

			if err := res.Store.Set(ctx, "salon-data", `{"clients":[]}`); err != nil {
				t.Fatalf("Set: %v", err)
			}
			v, ok, err := res.Store.Get(ctx, "salon-data")
			if err != nil || !ok || v != `{"clients":[]}` {
				t.Errorf("Get = %q, %v, %v", v, ok, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config accepted")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("unknown backend accepted")
	}
	got, err := FromAppConfig(&config.Config{DataBackend: "file", DataDir: "/tmp/salon"})
	if err != nil || got.Type != FileBackend || got.DataDirectory != "/tmp/salon" {
		t.Errorf("FromAppConfig = %+v, %v", got, err)
	}
}

func TestResultCloseWithoutCleanup(t *testing.T) {
	var r *BackendResult
	if err := r.Close(); err != nil {
		t.Error(err)
	}
}
