package persona

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/livereply/testutil"
)

func TestFileBackendMissing(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := b.Read(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestFileBackendWriteReplaces(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(filepath.Join(dir, "sub", "cfg.json"))
	ctx := context.Background()
	for _, body := range []string{`{"a":{}}`, `{"b":{}}`} {
		if err := b.Write(ctx, []byte(body)); err != nil {
			t.Fatalf("Write(%s) error: %v", body, err)
		}
	}
	got, err := b.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(got) != `{"b":{}}` {
		t.Errorf("Read() = %s, want last write", got)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "sub"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestPostgresBackend(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	key := "persona_config_test"
	t.Cleanup(func() {
		_, _ = database.ExecContext(context.Background(), `DELETE FROM kv WHERE key=$1`, key)
	})
	_, _ = database.ExecContext(ctx, `DELETE FROM kv WHERE key=$1`, key)
	b := NewPostgresBackend(database, key)
	if _, err := b.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() on empty key error = %v, want ErrNotFound", err)
	}
	s := NewStore(b)
	cfg := s.Load(ctx)
	if cfg.ActivePersonaID != DefaultPersonaID {
		t.Fatalf("expected default config, got %q", cfg.ActivePersonaID)
	}
	if _, err := b.Read(ctx); err != nil {
		t.Fatalf("default not persisted to kv: %v", err)
	}
	if err := b.Ping(ctx); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	key := "livereply:test:persona_config"
	t.Cleanup(func() {
		_ = client.Del(context.Background(), key).Err()
		_ = client.Close()
	})
	_ = client.Del(ctx, key).Err()
	b := NewRedisBackend(client, key)
	if _, err := b.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() on empty key error = %v, want ErrNotFound", err)
	}
	if err := b.Write(ctx, []byte(`{"x":{}}`)); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	got, err := b.Read(ctx)
	if err != nil || string(got) != `{"x":{}}` {
		t.Errorf("Read() = %s, %v", got, err)
	}
}
