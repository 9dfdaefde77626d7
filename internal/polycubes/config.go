package polycubes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config selects the engine strategies and run limits.
type Config struct {
	// Generations is the last generation to compute; 0 runs without a limit.
	Generations   int    `yaml:"generations"`
	Symmetry      string `yaml:"symmetry"`      // rotations | full
	Canonicalizer string `yaml:"canonicalizer"` // bound | sorted
	Store         string `yaml:"store"`         // memory | disk | badger
	// Strict confirms fingerprint matches with an exact cell-set comparison.
	Strict      bool   `yaml:"strict"`
	Workers     int    `yaml:"workers,omitempty"`
	Dir         string `yaml:"dir,omitempty"`          // disk and badger data directory
	Ledger      string `yaml:"ledger,omitempty"`       // sqlite run ledger path
	MetricsAddr string `yaml:"metrics_addr,omitempty"` // e.g. ":9102"
	LogLevel    string `yaml:"log_level,omitempty"`
	LogFormat   string `yaml:"log_format,omitempty"` // text | json
}

// DefaultConfig returns the configuration that reproduces 1, 1, 2, 8, 29, 166, 1023.
func DefaultConfig() Config {
	return Config{
		Symmetry:      SymmetryRotations,
		Canonicalizer: CanonicalizerBound,
		Store:         DefaultStore,
		Strict:        true,
		Dir:           DefaultDir,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field without building anything.
func (c Config) Validate() error {
	if c.Generations < 0 {
		return fmt.Errorf("%w: generations must be >= 0, got %d", ErrInvalidConfig, c.Generations)
	}
	if c.Generations > MaxCoord+1 {
		return fmt.Errorf("%w: generations must be <= %d, got %d", ErrInvalidConfig, MaxCoord+1, c.Generations)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	}
	g, err := ParseSymmetry(c.Symmetry)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := ParseCanonicalizer(c.Canonicalizer, g); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Store) {
	case StoreMemory, "":
	case StoreDisk, StoreBadger:
		if c.Dir == "" {
			return fmt.Errorf("%w: store %q needs dir", ErrInvalidConfig, c.Store)
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownStore, c.Store)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Build validates c and constructs the engine it describes. The caller owns the
// engine and must Close it.
func (c Config) Build(logger *slog.Logger, metrics *Metrics) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	g, _ := ParseSymmetry(c.Symmetry)
	canon, _ := ParseCanonicalizer(c.Canonicalizer, g)
	store, err := OpenStore(c, g, logger)
	if err != nil {
		return nil, err
	}
	return NewEngine(canon, store,
		WithWorkers(c.Workers),
		WithLogger(logger),
		WithMetrics(metrics),
	), nil
}

// ParseLogLevel maps a level name onto slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// NewLogger builds a slog logger writing to w in the configured format and level.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
