// Package config loads the TOML configuration of the flubber host.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/tx7do/flubber/permissions"
)

const (
	VersionLatest = "v1"

	DefaultEntry        = "src/main.js"
	DefaultProduct      = "flubber"
	DefaultFetchTimeout = 30 * time.Second
	DefaultFrames       = 120
	DefaultPhysicsFPS   = 60
	DefaultRotateSpeed  = 1.15
	DefaultMaxBodyBytes = 32 << 20
)

// Permission policies.
const (
	PolicyAllowAll = "allow-all"
	PolicyStatic   = "static"
)

// Config is the root of the configuration file.
type Config struct {
	Version     string            `toml:"version"`
	Script      ScriptConfig      `toml:"script"`
	Log         LogConfig         `toml:"log"`
	Fetch       FetchConfig       `toml:"fetch"`
	Permissions PermissionsConfig `toml:"permissions"`
	Host        HostConfig        `toml:"host"`
}

type ScriptConfig struct {
	// Entry is the path of the entry script.
	Entry string `toml:"entry"`
	// DrainTimeout bounds the event loop drain; zero waits forever.
	DrainTimeout Duration `toml:"drain_timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type FetchConfig struct {
	// Product is the User-Agent product token, sent as "<product>/<version>".
	Product      string   `toml:"product"`
	Timeout      Duration `toml:"timeout"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
}

type PermissionsConfig struct {
	Policy    string   `toml:"policy"`
	Net       bool     `toml:"net"`
	Read      bool     `toml:"read"`
	HRTime    bool     `toml:"hrtime"`
	DenyHosts []string `toml:"deny_hosts"`
	DenyPaths []string `toml:"deny_paths"`
}

type HostConfig struct {
	Frames      int     `toml:"frames"`
	PhysicsFPS  int     `toml:"physics_fps"`
	RotateSpeed float64 `toml:"rotate_speed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// NewConfig loads configuration from a TOML file
func NewConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	return NewConfigFromBytes(data)
}

// NewConfigFromBytes loads configuration from TOML bytes
func NewConfigFromBytes(data []byte) (*Config, error) {
	c := &Config{}
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToValidateConfig, err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = VersionLatest
	}
	if c.Script.Entry == "" {
		c.Script.Entry = DefaultEntry
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Fetch.Product == "" {
		c.Fetch.Product = DefaultProduct
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = Duration(DefaultFetchTimeout)
	}
	if c.Fetch.MaxBodyBytes == 0 {
		c.Fetch.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Permissions.Policy == "" {
		c.Permissions.Policy = PolicyAllowAll
	}
	if c.Host.Frames == 0 {
		c.Host.Frames = DefaultFrames
	}
	if c.Host.PhysicsFPS == 0 {
		c.Host.PhysicsFPS = DefaultPhysicsFPS
	}
	if c.Host.RotateSpeed == 0 {
		c.Host.RotateSpeed = DefaultRotateSpeed
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Version != VersionLatest {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnsupportedConfigVer, c.Version))
	}
	if strings.TrimSpace(c.Script.Entry) == "" {
		errs = append(errs, errors.New("script.entry cannot be empty"))
	}
	if c.Script.DrainTimeout < 0 {
		errs = append(errs, errors.New("script.drain_timeout cannot be negative"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not valid", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not valid", c.Log.Format))
	}

	if strings.ContainsAny(c.Fetch.Product, " /\t") {
		errs = append(errs, fmt.Errorf("fetch.product %q must be a single token", c.Fetch.Product))
	}
	if c.Fetch.Timeout < 0 {
		errs = append(errs, errors.New("fetch.timeout cannot be negative"))
	}
	if c.Fetch.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("fetch.max_body_bytes cannot be negative"))
	}

	switch c.Permissions.Policy {
	case PolicyAllowAll:
	case PolicyStatic:
		for _, p := range append(append([]string{}, c.Permissions.DenyHosts...), c.Permissions.DenyPaths...) {
			if _, err := path.Match(p, "x"); err != nil || strings.TrimSpace(p) == "" {
				errs = append(errs, fmt.Errorf("permissions: invalid deny pattern %q", p))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("permissions.policy %q is not valid", c.Permissions.Policy))
	}

	if c.Host.Frames < 0 {
		errs = append(errs, errors.New("host.frames cannot be negative"))
	}
	if c.Host.PhysicsFPS < 0 {
		errs = append(errs, errors.New("host.physics_fps cannot be negative"))
	}

	return errors.Join(errs...)
}

// Gate builds the permission gate the configuration describes. The logger
// receives the static policy's unstable API records; nil disables them.
func (c *Config) Gate(logger *slog.Logger) (permissions.Gate, error) {
	p := c.Permissions
	if p.Policy != PolicyStatic {
		return permissions.AllowAll{}, nil
	}
	gate, err := permissions.NewStatic(p.Net, p.Read, p.HRTime, p.DenyHosts, p.DenyPaths)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		gate.Logger = logger.With("component", "permissions")
	}
	return gate, nil
}

// UserAgent returns the outbound identification for the given build version.
func (c *Config) UserAgent(version string) string {
	return c.Fetch.Product + "/" + version
}
