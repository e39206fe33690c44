// Package config loads the caseguard server configuration. Defaults come first,
// then an optional YAML file, then CASEGUARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/httpapi"
	"github.com/MrEthical07/caseguard/jwt"
	"github.com/MrEthical07/caseguard/logging"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// PathEnvVar names the YAML file to load.
	PathEnvVar = "CASEGUARD_CONFIG"
	// EnvPrefix prefixes every override. Nested keys are joined with a double
	// underscore: CASEGUARD_REDIS__ADDR sets redis.addr.
	EnvPrefix = "CASEGUARD_"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Logging   logging.Config  `koanf:"logging"`
	Security  SecurityConfig  `koanf:"security"`
	Audit     AuditConfig     `koanf:"audit"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RedisConfig locates the account store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// JWTConfig controls bearer tokens. Secret must be at least 32 bytes.
type JWTConfig struct {
	Secret   string        `koanf:"secret"`
	Issuer   string        `koanf:"issuer"`
	Audience string        `koanf:"audience"`
	TTL      time.Duration `koanf:"ttl"`
	Leeway   time.Duration `koanf:"leeway"`
}

// SecurityConfig groups lockout, CORS and login throttling.
type SecurityConfig struct {
	CORSOrigins      []string      `koanf:"cors_origins"`
	LoginRateLimit   int           `koanf:"login_rate_limit"`
	LoginRateWindow  time.Duration `koanf:"login_rate_window"`
	LockoutThreshold int           `koanf:"lockout_threshold"`
	LockoutDuration  time.Duration `koanf:"lockout_duration"`
}

// AuditConfig sizes the audit queue.
type AuditConfig struct {
	Enabled      bool  `koanf:"enabled"`
	BufferSize   int   `koanf:"buffer_size"`
	DropIfFull   bool  `koanf:"drop_if_full"`
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// BootstrapConfig seeds the first admin on an empty store.
type BootstrapConfig struct {
	Name     string `koanf:"name"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

// Enabled reports whether a bootstrap admin is configured.
func (b BootstrapConfig) Enabled() bool {
	return b.Email != "" && b.Password != ""
}

// Default returns the built-in configuration.
func Default() Config {
	engine := caseguard.DefaultConfig()
	router := httpapi.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Prefix: "caseguard",
		},
		JWT: JWTConfig{
			Issuer: "caseguard",
			TTL:    8 * time.Hour,
		},
		Logging: logging.DefaultConfig(),
		Security: SecurityConfig{
			CORSOrigins:      []string{},
			LoginRateLimit:   router.LoginRateLimit,
			LoginRateWindow:  router.LoginRateWindow,
			LockoutThreshold: engine.Lockout.MaxAttempts,
			LockoutDuration:  engine.Lockout.Duration,
		},
		Audit: AuditConfig{
			Enabled:      engine.Audit.Enabled,
			BufferSize:   engine.Audit.BufferSize,
			DropIfFull:   engine.Audit.DropIfFull,
			MaxBodyBytes: engine.Audit.MaxBodyBytes,
		},
		Bootstrap: BootstrapConfig{
			Name: "Administrator",
		},
	}
}

// Load builds the configuration from defaults, the file named by
// CASEGUARD_CONFIG (when set) and the environment.
func Load() (Config, error) {
	return LoadFile(os.Getenv(PathEnvVar))
}

// LoadFile is [Load] with an explicit file path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if err := splitList(k, "security.cors_origins"); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// splitList turns a comma separated env value into a slice.
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if err := k.Set(path, parts); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Validate checks the values the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("jwt.secret must be at least 32 bytes"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be > 0"))
	}
	if c.Redis.Prefix == "" {
		errs = append(errs, errors.New("redis.prefix is required"))
	}
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is unknown", c.Logging.Level))
	}
	if c.Bootstrap.Email != "" && len(c.Bootstrap.Password) < 6 {
		errs = append(errs, errors.New("bootstrap.password must be at least 6 characters"))
	}
	return errors.Join(errs...)
}

// EngineConfig maps the server settings onto the engine configuration.
func (c Config) EngineConfig() caseguard.Config {
	cfg := caseguard.DefaultConfig()
	if c.Security.LockoutThreshold > 0 {
		cfg.Lockout.MaxAttempts = c.Security.LockoutThreshold
	}
	if c.Security.LockoutDuration > 0 {
		cfg.Lockout.Duration = c.Security.LockoutDuration
	}
	cfg.Audit.Enabled = c.Audit.Enabled
	if c.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = c.Audit.BufferSize
	}
	cfg.Audit.DropIfFull = c.Audit.DropIfFull
	if c.Audit.MaxBodyBytes > 0 {
		cfg.Audit.MaxBodyBytes = c.Audit.MaxBodyBytes
	}
	return cfg
}

// TokenConfig maps the JWT settings onto the token manager configuration.
func (c Config) TokenConfig() jwt.Config {
	return jwt.Config{
		AccessTTL:     c.JWT.TTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(c.JWT.Secret),
		Issuer:        c.JWT.Issuer,
		Audience:      c.JWT.Audience,
		Leeway:        c.JWT.Leeway,
	}
}

// HTTPConfig maps the security settings onto the router configuration.
func (c Config) HTTPConfig() httpapi.Config {
	return httpapi.Config{
		CORSOrigins:     c.Security.CORSOrigins,
		LoginRateLimit:  c.Security.LoginRateLimit,
		LoginRateWindow: c.Security.LoginRateWindow,
	}
}
