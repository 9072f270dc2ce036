// Package config loads the YAML configuration of the dataset preparation
// pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"demprep/pkg/demprep"
)

// DefaultConfigPath is where the CLI looks for a config file when none is given.
const DefaultConfigPath = "demprep.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Dirs are the artifact output directories.
type Dirs struct {
	Tiles    string `yaml:"tiles"`
	Masks    string `yaml:"masks"`
	Weights  string `yaml:"weights"`
	Previews string `yaml:"previews"`
}

// Config is the root configuration.
type Config struct {
	// Input DEM used when the command line names none.
	Input             string          `yaml:"input"`
	CanvasSize        int             `yaml:"canvas_size"`
	TileSize          int             `yaml:"tile_size"`
	BorderColumns     int             `yaml:"border_columns"`
	MaxTilesPerSource int             `yaml:"max_tiles_per_source"`
	BatchSize         int             `yaml:"batch_size"`
	Workers           int             `yaml:"workers"`
	TensorExt         string          `yaml:"tensor_ext"`
	Dirs              Dirs            `yaml:"dirs"`
	LookupPath        string          `yaml:"lookup_path"`
	ManifestPath      string          `yaml:"manifest_path"`
	Shapes            map[string]bool `yaml:"shapes"`
	LogLevel          string          `yaml:"log_level"`
	HumanLogs         bool            `yaml:"human_logs"`
	// Side length of preview panels; zero disables previews.
	PreviewThumb int `yaml:"preview_thumb"`
}

// Default returns the configuration used when no file overrides a key.
func Default() *Config {
	shapes := make(map[string]bool)
	for id, on := range demprep.DefaultSelection() {
		shapes[string(id)] = on
	}
	return &Config{
		CanvasSize:        512,
		TileSize:          512,
		BorderColumns:     demprep.DefaultBorderColumns,
		MaxTilesPerSource: 0,
		BatchSize:         8,
		Workers:           1,
		TensorExt:         demprep.DefaultTensorExt,
		Dirs: Dirs{
			Tiles:    "data/tiles",
			Masks:    "data/masks",
			Weights:  "data/weights",
			Previews: "data/previews",
		},
		LookupPath:   "data/lookup.csv",
		ManifestPath: "data/manifest.db",
		Shapes:       shapes,
		LogLevel:     "info",
		PreviewThumb: demprep.DefaultThumbSize,
	}
}

// Load reads a YAML config file. The file must have a .yaml or .yml extension
// and be under 1MB. Keys omitted from the file keep their Default values. A
// shapes map in the file replaces the default selection as a whole; shapes it
// does not list are disabled.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	defaultShapes := cfg.Shapes
	cfg.Shapes = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if cfg.Shapes == nil {
		cfg.Shapes = defaultShapes
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.CanvasSize <= 0 {
		return fmt.Errorf("canvas_size must be positive, got %d: %w", c.CanvasSize, demprep.ErrInvalidSize)
	}
	if c.TileSize <= 0 {
		return fmt.Errorf("tile_size must be positive, got %d: %w", c.TileSize, demprep.ErrInvalidSize)
	}
	if c.BorderColumns < 0 {
		return fmt.Errorf("border_columns must be non-negative, got %d: %w", c.BorderColumns, demprep.ErrInvalidSize)
	}
	if c.MaxTilesPerSource < 0 {
		return fmt.Errorf("max_tiles_per_source must be non-negative, got %d: %w", c.MaxTilesPerSource, demprep.ErrInvalidSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d: %w", c.BatchSize, demprep.ErrInvalidSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.PreviewThumb < 0 {
		return fmt.Errorf("preview_thumb must be non-negative, got %d", c.PreviewThumb)
	}
	if c.TensorExt == "" {
		return fmt.Errorf("tensor_ext must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return c.Selection().Validate()
}

// Selection converts the shapes map into a catalog selection.
func (c *Config) Selection() demprep.Selection {
	sel := make(demprep.Selection, len(c.Shapes))
	for id, on := range c.Shapes {
		sel[demprep.ShapeID(id)] = on
	}
	return sel
}

// Level returns the configured zerolog level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
