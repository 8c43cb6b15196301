// Package config loads invphys experiment files.
//
// An experiment file is TOML; every key is optional and overlays Default():
//
//	img_size   = [2, 64, 64]
//	batch_size = 4
//	batches    = 16
//	workers    = 4
//	seed       = 7
//	operator   = "haze,beta=0.2"
//	generator  = "mri,acceleration=8"
//	device     = "cpu"
//	store      = "samples.db"
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/born-ml/invphys/internal/physics"
	"github.com/pkg/errors"
)

// Config describes one simulation run.
type Config struct {
	ImgSize   []int
	BatchSize int
	Batches   int
	Workers   int
	Seed      uint64
	Operator  string
	Generator string
	Device    string
	Store     string
}

type fileConfig struct {
	ImgSize   []int  `toml:"img_size"`
	BatchSize int    `toml:"batch_size"`
	Batches   int    `toml:"batches"`
	Workers   int    `toml:"workers"`
	Seed      int64  `toml:"seed"`
	Operator  string `toml:"operator"`
	Generator string `toml:"generator"`
	Device    string `toml:"device"`
	Store     string `toml:"store"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ImgSize:   []int{16, 16},
		BatchSize: 1,
		Batches:   1,
		Workers:   1,
		Seed:      1,
		Operator:  "haze,beta=0.1",
		Generator: "mri,acceleration=4",
		Device:    "cpu",
	}
}

// Load reads the TOML file at path over Default() and validates the result.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrapf(physics.ErrConfig, "load %q: %v", path, err)
	}
	return fromFile(meta, raw)
}

// Parse is like Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, errors.Wrapf(physics.ErrConfig, "parse config: %v", err)
	}
	return fromFile(meta, raw)
}

func fromFile(meta toml.MetaData, raw fileConfig) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.Wrapf(physics.ErrConfig, "unknown keys %v", keys)
	}

	cfg := Default()
	if meta.IsDefined("img_size") {
		cfg.ImgSize = raw.ImgSize
	}
	if meta.IsDefined("batch_size") {
		cfg.BatchSize = raw.BatchSize
	}
	if meta.IsDefined("batches") {
		cfg.Batches = raw.Batches
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("seed") {
		if raw.Seed < 0 {
			return Config{}, errors.Wrapf(physics.ErrConfig, "seed must be >= 0, got %d", raw.Seed)
		}
		cfg.Seed = uint64(raw.Seed)
	}
	if meta.IsDefined("operator") {
		cfg.Operator = strings.TrimSpace(raw.Operator)
	}
	if meta.IsDefined("generator") {
		cfg.Generator = strings.TrimSpace(raw.Generator)
	}
	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("store") {
		cfg.Store = strings.TrimSpace(raw.Store)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the structural constraints of cfg. Operator and generator strings are
// checked when they are built.
func (cfg Config) Validate() error {
	if n := len(cfg.ImgSize); n != 2 && n != 3 {
		return errors.Wrapf(physics.ErrConfig, "img_size must have 2 or 3 entries, got %v", cfg.ImgSize)
	}
	for _, d := range cfg.ImgSize {
		if d <= 0 {
			return errors.Wrapf(physics.ErrConfig, "img_size entries must be positive, got %v", cfg.ImgSize)
		}
	}
	if cfg.BatchSize < 1 {
		return errors.Wrapf(physics.ErrConfig, "batch_size must be >= 1, got %d", cfg.BatchSize)
	}
	if cfg.Batches < 1 {
		return errors.Wrapf(physics.ErrConfig, "batches must be >= 1, got %d", cfg.Batches)
	}
	if cfg.Workers < 1 {
		return errors.Wrapf(physics.ErrConfig, "workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.Operator == "" {
		return errors.Wrap(physics.ErrConfig, "operator must not be empty")
	}
	if cfg.Generator == "" {
		return errors.Wrap(physics.ErrConfig, "generator must not be empty")
	}
	return nil
}

// Channels returns C for the configured image size (2 when only (H, W) is given).
func (cfg Config) Channels() int {
	if len(cfg.ImgSize) == 3 {
		return cfg.ImgSize[0]
	}
	return 2
}

// Plane returns (H, W).
func (cfg Config) Plane() (h, w int) {
	n := len(cfg.ImgSize)
	return cfg.ImgSize[n-2], cfg.ImgSize[n-1]
}
