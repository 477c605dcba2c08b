// Package config handles configuration loading and validation for routegen.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/imyousuf/routegen/internal/descriptor"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".routegen"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
)

// Config holds all configuration for routegen.
type Config struct {
	// Project contains project metadata used in the API document.
	Project ProjectConfig `mapstructure:"project"`
	// Source describes the handler tree that gets scanned.
	Source SourceConfig `mapstructure:"source"`
	// Output describes where generated artifacts go.
	Output OutputConfig `mapstructure:"output"`
	// Classify tunes verb assignment.
	Classify ClassifyConfig `mapstructure:"classify"`
	// Context tunes request-context detection.
	Context ContextConfig `mapstructure:"context"`
	// Scan tunes incremental regeneration.
	Scan ScanConfig `mapstructure:"scan"`
}

// ProjectConfig holds project metadata.
type ProjectConfig struct {
	// Name is the API title in the generated document.
	Name string `mapstructure:"name"`
	// Version is the API version in the generated document.
	Version string `mapstructure:"version"`
}

// SourceConfig describes the handler source tree.
type SourceConfig struct {
	// Dir is the root of the handler modules.
	Dir string `mapstructure:"dir"`
	// Extensions are the file suffixes treated as handler modules.
	Extensions []string `mapstructure:"extensions"`
	// Exclude lists gitignore-style patterns to skip when scanning and watching.
	Exclude []string `mapstructure:"exclude"`
}

// OutputConfig describes artifact destinations.
type OutputConfig struct {
	// RoutesDir receives one route-handler module per exported function.
	RoutesDir string `mapstructure:"routes_dir"`
	// ClientDir receives one client-stub module per source module.
	ClientDir string `mapstructure:"client_dir"`
	// DocsPath is the generated API document.
	DocsPath string `mapstructure:"docs_path"`
}

// ClassifyConfig tunes verb assignment from function names.
type ClassifyConfig struct {
	// VerbPrefixes maps a verb (FETCH, CREATE, REPLACE, MODIFY, REMOVE) to
	// the name prefixes that select it, replacing the built-in table for
	// that verb.
	VerbPrefixes map[string][]string `mapstructure:"verb_prefixes"`
	// SingleParamCreateDowngrade demotes FETCH to CREATE for functions whose
	// only parameter is a structured object.
	SingleParamCreateDowngrade bool `mapstructure:"single_param_create_downgrade"`
}

// ContextConfig tunes detection of request-context usage.
type ContextConfig struct {
	// TypeNames are parameter types recognized as the per-request context.
	TypeNames []string `mapstructure:"type_names"`
	// Accessors are helper call names that mark a handler as context-needing.
	Accessors []string `mapstructure:"accessors"`
}

// ScanConfig tunes incremental regeneration.
type ScanConfig struct {
	// Debounce is the quiet period applied to file events.
	Debounce time.Duration `mapstructure:"debounce"`
	// Staleness forces a full rescan when the last one is older than this.
	Staleness time.Duration `mapstructure:"staleness"`
	// MaxFilesPerScan caps how many sources one scan cycle processes.
	MaxFilesPerScan int `mapstructure:"max_files_per_scan"`
	// FullScanDirtyFraction escalates to a full scan when the dirty set
	// exceeds this fraction of MaxFilesPerScan.
	FullScanDirtyFraction float64 `mapstructure:"full_scan_dirty_fraction"`
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Check if a specific config file was set via CLI flag (stored in global viper).
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)

		// Look for config in the working directory, then config/.
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	// Environment variables
	v.SetEnvPrefix("ROUTEGEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Source.Dir == "" {
		return fmt.Errorf("source.dir is required")
	}
	if c.Output.RoutesDir == "" {
		return fmt.Errorf("output.routes_dir is required")
	}
	if c.Output.ClientDir == "" {
		return fmt.Errorf("output.client_dir is required")
	}

	for verb := range c.Classify.VerbPrefixes {
		if !validVerb(verb) {
			return fmt.Errorf("classify.verb_prefixes: unknown verb %q (want one of %v)",
				verb, descriptor.VerbOrder)
		}
	}

	if c.Scan.FullScanDirtyFraction < 0 || c.Scan.FullScanDirtyFraction > 1 {
		return fmt.Errorf("scan.full_scan_dirty_fraction must be between 0 and 1, got %v",
			c.Scan.FullScanDirtyFraction)
	}
	if c.Scan.MaxFilesPerScan < 0 {
		return fmt.Errorf("scan.max_files_per_scan must not be negative")
	}
	return nil
}

// VerbPrefixes converts the configured prefix table to descriptor verbs.
// Call Validate first; unknown verbs are skipped here.
func (c *Config) VerbPrefixes() map[descriptor.RequestVerb][]string {
	if len(c.Classify.VerbPrefixes) == 0 {
		return nil
	}
	out := make(map[descriptor.RequestVerb][]string, len(c.Classify.VerbPrefixes))
	for verb, prefixes := range c.Classify.VerbPrefixes {
		key := descriptor.RequestVerb(strings.ToUpper(verb))
		if validVerb(string(key)) {
			out[key] = prefixes
		}
	}
	return out
}

func validVerb(verb string) bool {
	candidate := descriptor.RequestVerb(strings.ToUpper(verb))
	for _, v := range descriptor.VerbOrder {
		if v == candidate {
			return true
		}
	}
	return false
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "")
	v.SetDefault("project.version", "0.0.0")

	v.SetDefault("source.dir", "src/server")
	v.SetDefault("source.extensions", []string{".ts"})
	v.SetDefault("source.exclude", []string{
		"**/node_modules/**",
		"**/.git/**",
		"**/dist/**",
		"**/build/**",
		"**/generated/**",
	})

	v.SetDefault("output.routes_dir", "src/server/generated/routes")
	v.SetDefault("output.client_dir", "src/client/generated")
	v.SetDefault("output.docs_path", "src/server/generated/openapi.json")

	v.SetDefault("classify.single_param_create_downgrade", false)

	v.SetDefault("scan.debounce", "300ms")
	v.SetDefault("scan.staleness", "5m")
	v.SetDefault("scan.max_files_per_scan", 500)
	v.SetDefault("scan.full_scan_dirty_fraction", 0.5)
}
