// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs mirror the tree that loader.go merges from `.env`,
// `conf/global.yaml`, and `FORMSTEP_`-prefixed environment variables.
// String values of the form `vault:<path>#<key>` are swapped for the
// secret before unmarshalling, so the model only ever holds plain strings.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`.
//   - Durations accept Go syntax ("10s", "1m30s").
//   - Zero values are replaced by applyDefaults after unmarshal.

package config

import "time"

// Server holds web-server tunables.
type Server struct {
	Addr            string        `koanf:"addr"             validate:"required,hostname_port"`
	PublicURL       string        `koanf:"public_url"       validate:"omitempty,url"`
	ForceHTTPS      bool          `koanf:"force_https"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"gte=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

// Store selects the key-value backend.  memory needs no DSN.
type Store struct {
	Driver    string `koanf:"driver"     validate:"required,oneof=memory sqlite3 mysql"`
	DSN       string `koanf:"dsn"        validate:"required_unless=Driver memory"`
	CacheSize int    `koanf:"cache_size" validate:"gte=0"`
	// FormsDir holds YAML form definitions published at boot.  Optional.
	FormsDir string `koanf:"forms_dir"`
}

// Shortener configures the share-link shortening service.
type Shortener struct {
	Enabled  bool          `koanf:"enabled"`
	Endpoint string        `koanf:"endpoint" validate:"omitempty,url"`
	Timeout  time.Duration `koanf:"timeout"  validate:"gte=0"`
}

// Security holds secrets.  An empty CSRFSecret means a random per-process
// key, which invalidates open forms on restart.
type Security struct {
	CSRFSecret string `koanf:"csrf_secret"`
}

// Builder bounds in-memory editing sessions and picks how new fields are
// numbered: "counter" (clock-seeded, the default) or "uuid".
type Builder struct {
	MaxSessions int    `koanf:"max_sessions" validate:"gte=0"`
	FieldIDs    string `koanf:"field_ids" validate:"oneof=counter uuid"`
}

// Log selects where the JSON log files go, relative to Paths.Root unless
// absolute.
type Log struct {
	Dir string `koanf:"dir"`
}

// Paths is resolved at runtime, never loaded from files.
type Paths struct {
	Root string
}

// Config is the immutable aggregate returned by Load().
type Config struct {
	Server    Server    `koanf:"server"`
	Store     Store     `koanf:"store"`
	Shortener Shortener `koanf:"shortener"`
	Security  Security  `koanf:"security"`
	Builder   Builder   `koanf:"builder"`
	Log       Log       `koanf:"log"`
	Paths     Paths     `koanf:"-"`
}

func applyDefaults(c *Config) {
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Shortener.Timeout == 0 {
		c.Shortener.Timeout = 10 * time.Second
	}
	if c.Builder.FieldIDs == "" {
		c.Builder.FieldIDs = "counter"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
}
