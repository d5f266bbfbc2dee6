// Package config loads the optional .tracekit.yaml project file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tracekit/internal/substitute"
	"tracekit/internal/validate"
)

// Candidate file names, in lookup order.
var FileNames = []string{".tracekit.yaml", ".tracekit.yml", ".tracekit.json"}

// Config is the project file. Fields left out of the file keep their defaults.
type Config struct {
	Log        LogConfig        `yaml:"log" json:"log"`
	Validate   ValidateConfig   `yaml:"validate" json:"validate"`
	Substitute SubstituteConfig `yaml:"substitute" json:"substitute"`
	Catalog    CatalogConfig    `yaml:"catalog" json:"catalog"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type ValidateConfig struct {
	Thresholds validate.Thresholds `yaml:"thresholds" json:"thresholds"`
	Skip       []string            `yaml:"skip" json:"skip"`
	CheckSync  bool                `yaml:"check_sync" json:"check_sync"`
	Verbose    bool                `yaml:"verbose" json:"verbose"`
}

type SubstituteConfig struct {
	// Multiplicity is "error" (default) or "replace-all".
	Multiplicity string `yaml:"multiplicity" json:"multiplicity"`
}

type CatalogConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Validate: ValidateConfig{Thresholds: validate.DefaultThresholds()},
		Catalog:  CatalogConfig{Path: DefaultCatalogPath()},
	}
}

// DefaultCatalogPath is catalog.db under the user cache directory, or under
// .tracekit in the working directory when no cache directory is available.
func DefaultCatalogPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "tracekit", "catalog.db")
	}
	return filepath.Join(".tracekit", "catalog.db")
}

// Find returns the first project file present in dir, or "" when none is.
func Find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// LoadFromPath reads a YAML or JSON config file.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses config from bytes on top of Default. ext is a format hint
// (".json", ".yaml"); when empty the format is detected from the content.
func Load(data []byte, ext string) (*Config, error) {
	c := Default()
	ext = strings.ToLower(ext)
	if ext == "" {
		ext = ".yaml"
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		}
	}
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("parse config: unsupported extension %q", ext)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) check() error {
	t := c.Validate.Thresholds
	if t.Query < 0 || t.Data < 0 || t.Visual < 0 {
		return fmt.Errorf("config: validate.thresholds must not be negative")
	}
	if _, err := c.skipChecks(); err != nil {
		return fmt.Errorf("config: validate.skip: %w", err)
	}
	if _, err := substitute.ParseMultiplicity(c.Substitute.Multiplicity); err != nil {
		return fmt.Errorf("config: substitute.multiplicity: %w", err)
	}
	return nil
}

func (c *Config) skipChecks() ([]validate.Check, error) {
	var out []validate.Check
	for _, s := range c.Validate.Skip {
		chk, err := validate.ParseCheck(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, chk)
	}
	return out, nil
}

// ValidateOptions converts the validate section into engine options.
func (c *Config) ValidateOptions() validate.Options {
	skip, _ := c.skipChecks()
	return validate.Options{
		Thresholds: c.Validate.Thresholds,
		Skip:       skip,
		CheckSync:  c.Validate.CheckSync,
		Verbose:    c.Validate.Verbose,
	}
}

// Multiplicity returns the configured substitution policy.
func (c *Config) Multiplicity() substitute.Multiplicity {
	m, _ := substitute.ParseMultiplicity(c.Substitute.Multiplicity)
	return m
}
