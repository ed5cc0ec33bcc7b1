package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testYAML = `
server:
  addr: ":8080"
store:
  driver: sqlite3
  dsn: "vault:secret/formstep#dsn"
security:
  csrf_secret: "plain"
`

type fakeSecrets map[string]string

func (f fakeSecrets) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := f[path+"#"+key]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

func writeRoot(t *testing.T, yaml string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "conf", "global.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FORMSTEP_ROOT", dir)
}

func TestLoadOverlaysEnvAndSecrets(t *testing.T) {
	writeRoot(t, testYAML)
	t.Setenv("FORMSTEP_SERVER__ADDR", "127.0.0.1:9999")
	t.Setenv("FORMSTEP_SHORTENER__TIMEOUT", "3s")
	UseSecrets(fakeSecrets{"secret/formstep#dsn": "file:test.db"})
	t.Cleanup(func() { UseSecrets(nil) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("env override lost: %q", cfg.Server.Addr)
	}
	if cfg.Store.DSN != "file:test.db" {
		t.Fatalf("vault ref not resolved: %q", cfg.Store.DSN)
	}
	if cfg.Shortener.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v", cfg.Shortener.Timeout)
	}
	if cfg.Server.ReadTimeout != 10*time.Second || cfg.Log.Dir != "logs" || cfg.Builder.FieldIDs != "counter" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if Get() != cfg {
		t.Fatal("Get should return the cached config")
	}
}

func TestLoadFailsWithoutSecretSource(t *testing.T) {
	writeRoot(t, testYAML)
	UseSecrets(nil)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "store.dsn") {
		t.Fatalf("want store.dsn error, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	writeRoot(t, "server:\n  addr: \":8080\"\nstore:\n  driver: redis\n")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "Driver") {
		t.Fatalf("want driver error, got %v", err)
	}

	writeRoot(t, "server:\n  addr: \":8080\"\nstore:\n  driver: mysql\n")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DSN") {
		t.Fatalf("want dsn error, got %v", err)
	}

	writeRoot(t, "server:\n  addr: \":8080\"\nbuilder:\n  field_ids: serial\n")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "FieldIDs") {
		t.Fatalf("want field_ids error, got %v", err)
	}

	writeRoot(t, "server:\n  addr: \":8080\"\n")
	cfg, err := Load()
	if err != nil || cfg.Store.Driver != "memory" {
		t.Fatalf("memory default: %+v, %v", cfg, err)
	}
}

func TestParseVaultRef(t *testing.T) {
	p, k, ok := ParseVaultRef("vault:kv/app/db#password")
	if !ok || p != "kv/app/db" || k != "password" {
		t.Fatalf("got %q %q %v", p, k, ok)
	}
	for _, bad := range []string{"vault:kv/app", "vault:#k", "plain", "vault:kv#"} {
		if _, _, ok := ParseVaultRef(bad); ok {
			t.Fatalf("%q accepted", bad)
		}
	}
}
