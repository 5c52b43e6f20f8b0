package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the walc.yaml / walc.toml configuration. Every field has a
// default, so an absent file is equivalent to an empty one.
type Config struct {
	Engine EngineConfig `yaml:"engine" toml:"engine"`
	Codec  CodecConfig  `yaml:"codec" toml:"codec"`
	Store  StoreConfig  `yaml:"store" toml:"store"`
	Batch  BatchConfig  `yaml:"batch" toml:"batch"`
	Server ServerConfig `yaml:"server" toml:"server"`
	Log    LogConfig    `yaml:"log" toml:"log"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-" toml:"-"`
}

// EngineConfig bounds both execution engines.
type EngineConfig struct {
	// MaxDepth caps the tree-walk evaluator's recursion.
	MaxDepth int `yaml:"max_depth,omitempty" toml:"max_depth,omitempty"`

	// MaxStack caps the VM operand stack, in values.
	MaxStack int `yaml:"max_stack,omitempty" toml:"max_stack,omitempty"`

	// Backend is "treewalk", "vm" or "both" (differential).
	Backend string `yaml:"backend,omitempty" toml:"backend,omitempty"`
}

// CodecConfig selects the tree format used when it cannot be inferred
// from a file extension (stdin, gRPC payloads are always JSON).
type CodecConfig struct {
	Format string `yaml:"format,omitempty" toml:"format,omitempty"`
}

// StoreConfig locates the artifact database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// BatchConfig sizes the batch runner.
type BatchConfig struct {
	// Workers is the number of concurrent runs; 0 means one per CPU.
	Workers int `yaml:"workers,omitempty" toml:"workers,omitempty"`
}

// ServerConfig configures `walc serve`.
type ServerConfig struct {
	Listen string `yaml:"listen,omitempty" toml:"listen,omitempty"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	// Verbosity: 0 notices, 1 adds info, 2 adds debug; negative is quieter.
	Verbosity int `yaml:"verbosity,omitempty" toml:"verbosity,omitempty"`

	// File receives log output instead of stderr when set.
	File string `yaml:"file,omitempty" toml:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load finds a config file starting from dir, parses it and applies
// WALC_* environment overrides. No file is not an error.
func Load(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a config file. The format follows the extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses config content from bytes. The path selects YAML or
// TOML by extension and is used in error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF and means all defaults.
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	cfg.Path = path
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig searches for a config file starting from dir and walking up
// to parent directories. Returns "" and nil error if none is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

type envOverride struct {
	name  string
	apply func(c *Config, value string) error
}

func intOverride(field func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func stringOverride(field func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

var envOverrides = []envOverride{
	{"MAX_DEPTH", intOverride(func(c *Config) *int { return &c.Engine.MaxDepth })},
	{"MAX_STACK", intOverride(func(c *Config) *int { return &c.Engine.MaxStack })},
	{"BACKEND", stringOverride(func(c *Config) *string { return &c.Engine.Backend })},
	{"FORMAT", stringOverride(func(c *Config) *string { return &c.Codec.Format })},
	{"STORE", stringOverride(func(c *Config) *string { return &c.Store.Path })},
	{"WORKERS", intOverride(func(c *Config) *int { return &c.Batch.Workers })},
	{"LISTEN", stringOverride(func(c *Config) *string { return &c.Server.Listen })},
	{"VERBOSITY", intOverride(func(c *Config) *int { return &c.Log.Verbosity })},
	{"LOG_FILE", stringOverride(func(c *Config) *string { return &c.Log.File })},
}

// ApplyEnv overrides fields from WALC_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		value, ok := lookup(EnvPrefix + o.name)
		if !ok || value == "" {
			continue
		}
		if err := o.apply(c, value); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, o.name, err)
		}
	}
	c.setDefaults()
	return c.validate("environment")
}

func (c *Config) setDefaults() {
	if c.Engine.MaxDepth == 0 {
		c.Engine.MaxDepth = DefaultMaxDepth
	}
	if c.Engine.MaxStack == 0 {
		c.Engine.MaxStack = DefaultMaxStack
	}
	if c.Engine.Backend == "" {
		c.Engine.Backend = DefaultBackend
	}
	if c.Codec.Format == "" {
		c.Codec.Format = DefaultFormat
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = runtime.NumCPU()
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListenAddr
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.Engine.MaxDepth < 0 {
		return fmt.Errorf("%s: engine.max_depth must be positive, got %d", path, c.Engine.MaxDepth)
	}
	if c.Engine.MaxStack < 0 {
		return fmt.Errorf("%s: engine.max_stack must be positive, got %d", path, c.Engine.MaxStack)
	}
	switch c.Engine.Backend {
	case TreeWalkBackendName, VMBackendName, DifferentialBackendName:
	default:
		return fmt.Errorf("%s: engine.backend must be %s, %s or %s, got %q",
			path, TreeWalkBackendName, VMBackendName, DifferentialBackendName, c.Engine.Backend)
	}
	switch strings.ToLower(c.Codec.Format) {
	case "json", "yaml", "yml", "cbor":
	default:
		return fmt.Errorf("%s: codec.format %q is not json, yaml or cbor", path, c.Codec.Format)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("%s: batch.workers must not be negative, got %d", path, c.Batch.Workers)
	}
	return nil
}
