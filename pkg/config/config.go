// Package config loads go-amptools settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-amptools/pkg/amp"
)

// EnvVar names the configuration file used by the CLI when --config is unset.
const EnvVar = "AMPTOOLS_CONFIG"

// Built-in loader identifiers.
const (
	LoaderFilesystem = "filesystem"
	LoaderEmbedded   = "embedded"
)

// Config is the full settings tree.
type Config struct {
	// TemplatePrefix is prepended to every AMP-rewritten template name.
	TemplatePrefix string `yaml:"template_prefix"`
	// TemplateLoaders lists, in priority order, the loader identifiers the
	// AMP loader delegates to.
	TemplateLoaders []string `yaml:"template_loaders"`
	// FallbackLoaders resolve plain names when no AMP variant exists.
	FallbackLoaders []string `yaml:"fallback_loaders"`
	// TemplateDirs are searched by the filesystem loader.
	TemplateDirs []string `yaml:"template_dirs"`

	AMP   AMP   `yaml:"amp"`
	Cache Cache `yaml:"cache"`
}

// AMP configures request detection.
type AMP struct {
	GetParameter string   `yaml:"get_parameter"`
	GetValue     string   `yaml:"get_value"`
	Folder       string   `yaml:"folder"`
	DefaultTag   string   `yaml:"default_tag"`
	ActiveURLs   []string `yaml:"active_urls"`
}

// Cache configures the cached loader.
type Cache struct {
	Enabled bool `yaml:"enabled"`
	// Size bounds the number of cached templates. Zero means unbounded.
	Size         int  `yaml:"size"`
	Singleflight bool `yaml:"singleflight"`
}

// Default returns the stock configuration.
func Default() Config {
	settings := amp.DefaultSettings()
	return Config{
		TemplateLoaders: []string{LoaderFilesystem, LoaderEmbedded},
		FallbackLoaders: []string{LoaderFilesystem, LoaderEmbedded},
		TemplateDirs:    []string{"templates"},
		AMP: AMP{
			GetParameter: settings.GetParameter,
			GetValue:     settings.GetValue,
			Folder:       string(settings.Folder),
			DefaultTag:   string(settings.DefaultTag),
		},
		Cache: Cache{Enabled: true},
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("config: cache.size must not be negative, got %d", c.Cache.Size))
	}
	for i, id := range c.TemplateLoaders {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("config: template_loaders[%d] is empty", i))
		}
	}
	if _, err := c.AMPSettings(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AMPSettings returns compiled detection settings.
func (c Config) AMPSettings() (amp.Settings, error) {
	return amp.Settings{
		GetParameter: c.AMP.GetParameter,
		GetValue:     c.AMP.GetValue,
		Folder:       amp.Tag(c.AMP.Folder),
		DefaultTag:   amp.Tag(c.AMP.DefaultTag),
		ActiveURLs:   c.AMP.ActiveURLs,
	}.Compile()
}
