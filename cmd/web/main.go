// cmd/web/main.go
//
// Formstep – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (system-wide file → .env fallback).
//
//  2. Install the Vault secret source when VAULT_ADDR is set, then load
//     configuration (YAML → env overlay → vault: references).  Both log
//     through a stderr bootstrap logger.
//
//  3. Start the daily rotating logger (tees to console when running in a
//     TTY) and install the CSRF key.
//
//  4. Open the key-value store: in-memory, or sqlite3/mysql through sqlx
//     with embedded migrations.
//
//  5. Publish any YAML forms found in store.forms_dir.
//
//  6. Wire publisher, builder sessions and the chi handler, then serve
//     until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yanizio/formstep/internal/builder"
	"github.com/yanizio/formstep/internal/config"
	"github.com/yanizio/formstep/internal/database"
	"github.com/yanizio/formstep/internal/form"
	"github.com/yanizio/formstep/internal/httpapi"
	"github.com/yanizio/formstep/internal/logger"
	"github.com/yanizio/formstep/internal/publish"
	"github.com/yanizio/formstep/internal/server"
	"github.com/yanizio/formstep/internal/shorten"
	"github.com/yanizio/formstep/internal/store"
	"github.com/yanizio/formstep/internal/vault"
)

const serverEnvPath = "/usr/local/etc/formstep/global.env"

// loadEnv prefers the system-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "formstep:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Until the file logger exists, boot messages (vault, config) go to
	// stderr as JSON.  logger.New replaces the globals below.
	boot, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("boot logger: %w", err)
	}
	defer func() { _ = boot.Sync() }()
	zap.ReplaceGlobals(boot)

	//
	// ── 1.  Secrets + configuration ─────────────────────────────────────
	//
	if vault.Enabled() {
		vc, err := vault.New(ctx, boot.Sugar().Infof)
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		config.UseSecrets(vc)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logDir := cfg.Log.Dir
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(cfg.Paths.Root, logDir)
	}
	log, err := logger.New(logDir, runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if !form.SetCSRFSecret([]byte(cfg.Security.CSRFSecret)) {
		log.Warnw("csrf secret missing or short; using a per-process key")
	}

	//
	// ── 3.  Store ───────────────────────────────────────────────────────
	//
	kv, closeKV, err := openKV(cfg.Store)
	if err != nil {
		return err
	}
	defer closeKV()
	repo := store.NewRepository(kv, cfg.Store.CacheSize)
	log.Infow("store online", "driver", cfg.Store.Driver)

	if err := seedForms(ctx, repo, cfg.Store.FormsDir, cfg.Paths.Root, log); err != nil {
		return err
	}

	//
	// ── 4.  Publisher, builder sessions, handler ────────────────────────
	//
	var short publish.Shortener
	if cfg.Shortener.Enabled {
		short = shorten.New(cfg.Shortener.Endpoint, cfg.Shortener.Timeout)
	}
	pub := publish.New(repo, short)
	defer pub.Close()

	handler := httpapi.New(httpapi.Deps{
		Repo:       repo,
		Builders:   builder.NewManager(cfg.Builder.MaxSessions, builder.WithFieldIDs(cfg.Builder.FieldIDs)),
		Publisher:  pub,
		Log:        log,
		PublicURL:  cfg.Server.PublicURL,
		ForceHTTPS: cfg.Server.ForceHTTPS,
	})

	srv := server.New(cfg.Server, handler)
	if err := server.Run(ctx, srv, cfg.Server.ShutdownTimeout); err != nil {
		log.Errorw("http server", "error", err)
		return err
	}
	log.Infow("shut down cleanly")
	return nil
}

// openKV builds the configured backend.  The returned closer is never nil.
func openKV(c config.Store) (store.KV, func(), error) {
	if c.Driver == "memory" {
		return store.NewMemoryKV(), func() {}, nil
	}

	if c.Driver == database.DriverSQLite {
		if err := ensureSQLiteDir(c.DSN); err != nil {
			return nil, nil, err
		}
	}
	db, err := database.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", c.Driver, err)
	}
	if err := database.Migrate(db, c.Driver); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.NewSQLKV(db), func() { _ = db.Close() }, nil
}

// ensureSQLiteDir creates the parent directory of a file-backed SQLite DSN
// such as "file:data/formstep.db?_busy_timeout=5000".
func ensureSQLiteDir(dsn string) error {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sqlite dir: %w", err)
	}
	return nil
}

// seedForms publishes every YAML definition in dir under its own id.
// Existing documents with the same id are overwritten.
func seedForms(ctx context.Context, repo *store.Repository, dir, root string, log *zap.SugaredLogger) error {
	if dir == "" {
		return nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	forms, err := form.LoadDir(dir)
	if err != nil {
		return fmt.Errorf("seed forms: %w", err)
	}
	for _, f := range forms {
		if err := repo.SaveForm(ctx, *f); err != nil {
			return fmt.Errorf("seed form %s: %w", f.ID, err)
		}
	}
	if len(forms) > 0 {
		log.Infow("seeded forms", "dir", dir, "count", len(forms))
	}
	return nil
}
