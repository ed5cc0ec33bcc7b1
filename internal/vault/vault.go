// internal/vault/vault.go
//
// HashiCorp Vault client used to resolve `vault:<path>#<key>` config values.
//
// Context
// -------
//   - Wraps the Vault Go SDK behind a concurrency-safe Client.
//   - Reads single keys from KV-v2 secrets with an optional per-key TTL
//     cache, so Reload() does not hammer Vault.
//   - Keeps the token alive with a background renewer bound to the boot
//     context.
//
// Workflow
// --------
//  1. cli, err := vault.New(ctx, boot.Sugar().Infof) // only when VAULT_ADDR is set.
//  2. config.UseSecrets(cli)
//  3. config.Load() calls cli.GetKV for every vault: reference.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// ErrNotConfigured is returned by New when VAULT_ADDR is unset.
var ErrNotConfigured = errors.New("vault: VAULT_ADDR not set")

// Client is safe for concurrent use.
type Client struct {
	api   *vault.Client
	logFn func(string, ...any)

	mu    sync.RWMutex
	cache map[string]entry // path#key → value + expiry
}

type entry struct {
	val string
	exp time.Time
}

// Enabled reports whether the environment points at a Vault server.
func Enabled() bool { return os.Getenv("VAULT_ADDR") != "" }

// New builds a client from VAULT_ADDR / VAULT_TOKEN and starts token
// renewal until ctx is done.
func New(ctx context.Context, logFn func(string, ...any)) (*Client, error) {
	if !Enabled() {
		return nil, ErrNotConfigured
	}
	if logFn == nil {
		logFn = func(string, ...any) {}
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}

	c := newClient(api, logFn)
	go c.keepTokenAlive(ctx)
	return c, nil
}

func newClient(api *vault.Client, logFn func(string, ...any)) *Client {
	return &Client{api: api, logFn: logFn, cache: make(map[string]entry)}
}

// GetKV reads key from the KV-v2 secret at secretPath ("<mount>/<rel>").
// With ttl > 0 the value is served from memory until it expires.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("vault: secret path and key must be non-empty")
	}
	ref := secretPath + "#" + key

	if ttl > 0 {
		if v, ok := c.cached(ref); ok {
			return v, nil
		}
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not found in %q", key, secretPath)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: %s is not a string", ref)
	}

	if ttl > 0 {
		c.mu.Lock()
		c.cache[ref] = entry{val: val, exp: time.Now().Add(ttl)}
		c.mu.Unlock()
	}
	return val, nil
}

func (c *Client) cached(ref string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[ref]
	if !ok || !time.Now().Before(e.exp) {
		return "", false
	}
	return e.val, true
}

// keepTokenAlive renews the token for as long as ctx lives.  Failures back
// off and retry; a non-renewable token is re-checked hourly.
func (c *Client) keepTokenAlive(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelf(0)
		switch {
		case err != nil:
			c.logFn("vault: token renew failed: %v", err)
			sleep(ctx, 30*time.Second)
		case sec == nil || sec.Auth == nil || !sec.Auth.Renewable:
			sleep(ctx, time.Hour)
		default:
			c.watch(ctx, sec)
			sleep(ctx, 15*time.Second)
		}
	}
}

func (c *Client) watch(ctx context.Context, sec *vault.Secret) {
	w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
	if err != nil {
		c.logFn("vault: watcher init: %v", err)
		return
	}
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.logFn("vault: token renewal stopped: %v", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.logFn("vault: token renewed, ttl=%ds", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
