// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env` (dotenv, feeds layer 3).
  2. `conf/global.yaml`.
  3. Environment variables prefixed `FORMSTEP_`, where `__` maps to "."
     (e.g., `FORMSTEP_STORE__DRIVER → store.driver`).

Values of the form `vault:<path>#<key>` are then resolved through the
SecretSource installed with UseSecrets.  The tree is unmarshalled,
defaulted, validated, and cached in an `atomic.Pointer`.  `Reload()` runs
`Load()` again and swaps the pointer.

Notes
-----
  • The root is FORMSTEP_ROOT or the nearest parent holding
    `conf/global.yaml`, so `go run ./cmd/web` works from sub-directories.
  • Logs use `zap.S()` so early boot issues surface before the file
    logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix = "FORMSTEP_"
	vaultRef  = "vault:"
	secretTTL = 5 * time.Minute
)

// SecretSource reads one key of a KV secret.  *vault.Client satisfies it.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

var (
	current atomic.Pointer[Config]
	secrets atomic.Value // holds secretBox
)

type secretBox struct{ src SecretSource }

// UseSecrets installs the source used for vault: references.
func UseSecrets(src SecretSource) { secrets.Store(secretBox{src}) }

/*──────────────────────────── root discovery ───────────────────────────────*/

func rootDir() string {
	if r := os.Getenv(envPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	for dir := wd; ; {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches the Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(k); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Driver,
		"shortener", cfg.Shortener.Enabled,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps FORMSTEP_STORE__DRIVER to store.driver.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
}

// resolveSecrets replaces every vault:<path>#<key> string in k.
func resolveSecrets(k *koanf.Koanf) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, vaultRef) {
			continue
		}
		path, field, ok := ParseVaultRef(s)
		if !ok {
			return fmt.Errorf("%s: malformed vault reference %q", key, s)
		}
		box, _ := secrets.Load().(secretBox)
		if box.src == nil {
			return fmt.Errorf("%s: vault reference but no secret source configured", key)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		secret, err := box.src.GetKV(ctx, path, field, secretTTL)
		cancel()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return err
		}
	}
	return nil
}

// ParseVaultRef splits "vault:<path>#<key>".
func ParseVaultRef(s string) (path, key string, ok bool) {
	rest, found := strings.CutPrefix(s, vaultRef)
	if !found {
		return "", "", false
	}
	path, key, found = strings.Cut(rest, "#")
	if !found || path == "" || key == "" {
		return "", "", false
	}
	return path, key, true
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
